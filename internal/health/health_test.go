package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckPortal_ok(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/player_api.php" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	if err := CheckPortal(context.Background(), srv.URL); err != nil {
		t.Fatalf("CheckPortal: %v", err)
	}
}

func TestCheckPortal_badStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	if err := CheckPortal(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestCheckPortal_emptyURL(t *testing.T) {
	if err := CheckPortal(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty URL")
	}
}
