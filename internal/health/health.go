package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CheckPortal hits the portal's player_api endpoint without credentials.
// Returns nil if the portal answers at all with HTTP 200; the login step
// decides whether the credentials are good.
func CheckPortal(ctx context.Context, serverURL string) error {
	if serverURL == "" {
		return fmt.Errorf("no portal URL configured")
	}
	// Some panels don't support HEAD; use GET and discard the body.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/player_api.php", nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("portal unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("portal returned HTTP %d", resp.StatusCode)
	}
	return nil
}
