// Package session owns one login's worth of state: portal client, catalog
// cache, navigation context, and the guide service. Logging in again
// replaces all of it and invalidates anything still in flight.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/iptvdeck/iptvdeck/internal/catalog"
	"github.com/iptvdeck/iptvdeck/internal/config"
	"github.com/iptvdeck/iptvdeck/internal/guide"
	"github.com/iptvdeck/iptvdeck/internal/httpclient"
	"github.com/iptvdeck/iptvdeck/internal/matchdb"
	"github.com/iptvdeck/iptvdeck/internal/nav"
	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

// Session is the root object the browser works against.
type Session struct {
	cfg *config.Config

	Catalog *catalog.Store
	Nav     *nav.SessionContext
	Guide   *guide.Service

	mu      sync.RWMutex
	client  *xtream.Client
	account *xtream.AccountInfo
	memo    *matchdb.DB
}

// New builds a logged-out session from config. The match memo opens lazily
// here; a broken memo file only costs the optimization.
func New(cfg *config.Config) *Session {
	var memo *matchdb.DB
	if cfg.MatchDB != "" {
		d, err := matchdb.Open(cfg.MatchDB)
		if err != nil {
			log.Printf("session: match db disabled: %v", err)
		} else {
			memo = d
		}
	}
	cache := guide.NewCache(cfg.GuideCachePath(), cfg.GuideTTL)
	var gmemo guide.MatchMemo
	if memo != nil {
		gmemo = memo
	}
	return &Session{
		cfg:     cfg,
		Catalog: catalog.NewStore(),
		Nav:     nav.NewSessionContext(),
		Guide:   guide.NewService(cache, guide.SequenceMatcher{}, cfg.FuzzyThreshold, cfg.Workers, gmemo),
		memo:    memo,
	}
}

// Login authenticates against the portal and, on success, resets every
// piece of per-session state: navigation stacks, catalog cache, guide
// index, on-disk guide cache, and the fuzzy-match memo. In-flight guide
// work from the previous login is cancelled and its results dropped.
func (s *Session) Login(ctx context.Context, server, username, password string) (*xtream.AccountInfo, error) {
	client, err := xtream.New(server, username, password, s.cfg.CatalogRate, httpclient.WithTimeout(s.cfg.HTTPTimeout))
	if err != nil {
		return nil, err
	}
	account, err := client.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.client = client
	s.account = account
	s.mu.Unlock()

	s.Guide.Invalidate()
	s.Nav.Reset()
	s.Catalog.Reset()
	if s.memo != nil {
		if err := s.memo.Clear(); err != nil {
			log.Printf("session: %v", err)
		}
	}
	log.Printf("session: logged in as %s", account.Username)
	return account, nil
}

// LoginM3U extracts credentials from a pasted M3U-plus URL and logs in.
func (s *Session) LoginM3U(ctx context.Context, m3uURL string) (*xtream.AccountInfo, error) {
	server, user, pass, err := ParseM3UPlusURL(m3uURL)
	if err != nil {
		return nil, err
	}
	return s.Login(ctx, server, user, pass)
}

// Client returns the portal client; nil before the first login.
func (s *Session) Client() *xtream.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Account returns the authenticated account; nil before the first login.
func (s *Session) Account() *xtream.AccountInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

// LoggedIn reports whether a login succeeded.
func (s *Session) LoggedIn() bool {
	return s.Client() != nil
}

// RefreshGuide kicks off an asynchronous guide load for the current login.
// done may be nil.
func (s *Session) RefreshGuide(ctx context.Context, done func(error)) error {
	client := s.Client()
	if client == nil {
		return &xtream.ValidationError{Msg: "not logged in"}
	}
	s.Guide.Refresh(ctx, guideFetch(client), done)
	return nil
}

// Close releases session resources and waits for guide workers.
func (s *Session) Close() error {
	s.Guide.Wait()
	if s.memo != nil {
		return s.memo.Close()
	}
	return nil
}

// guideFetch downloads the portal's XMLTV feed, decompressed, as raw bytes.
func guideFetch(client *xtream.Client) guide.FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		resp, err := httpclient.DoWithRetry(ctx, nil, client.GuideURL(), httpclient.DefaultRetryPolicy)
		if err != nil {
			return nil, &xtream.TransportError{Op: "guide fetch", Err: err}
		}
		body, err := httpclient.DecodeBody(resp)
		if err != nil {
			return nil, &xtream.DecodeError{Op: "guide fetch", Err: err}
		}
		defer body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, body)
			return nil, &xtream.TransportError{Op: "guide fetch", Err: fmt.Errorf("status %d", resp.StatusCode)}
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, &xtream.TransportError{Op: "guide fetch", Err: err}
		}
		return raw, nil
	}
}

// ParseM3UPlusURL pulls server, username and password out of a get.php
// playlist URL, so a pasted M3U link works as a login.
func ParseM3UPlusURL(raw string) (server, username, password string, err error) {
	u, parseErr := url.Parse(strings.TrimSpace(raw))
	if parseErr != nil {
		return "", "", "", &xtream.ValidationError{Msg: fmt.Sprintf("m3u url: %v", parseErr)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", "", &xtream.ValidationError{Msg: fmt.Sprintf("m3u url: scheme %q not supported", u.Scheme)}
	}
	if !strings.HasSuffix(u.Path, "get.php") {
		return "", "", "", &xtream.ValidationError{Msg: "m3u url: expected a get.php playlist link"}
	}
	q := u.Query()
	username = q.Get("username")
	password = q.Get("password")
	if username == "" || password == "" {
		return "", "", "", &xtream.ValidationError{Msg: "m3u url: username and password query params required"}
	}
	server = u.Scheme + "://" + u.Host
	return server, username, password, nil
}
