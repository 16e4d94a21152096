// Package credentials holds the Google OAuth access token shared by the
// Gmail and Drive clients.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
)

// Scopes requested for the refresh token: send mail and create files.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/drive.file",
}

var ErrNoCredential = errors.New("no google credential available")

// RefreshFunc exchanges the long-lived refresh token for a fresh access token.
type RefreshFunc func(ctx context.Context) (*oauth2.Token, error)

// Holder caches one access token and refreshes it once it is older than ttl
// or past its own expiry, whichever comes first. Concurrent callers that
// find the token stale share a single refresh.
type Holder struct {
	refresh RefreshFunc
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.RWMutex
	token     *oauth2.Token
	fetchedAt time.Time

	group singleflight.Group
}

func NewHolder(refresh RefreshFunc, ttl time.Duration, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{refresh: refresh, ttl: ttl, now: time.Now, logger: logger}
}

// NewGoogleHolder builds a holder backed by the Google token endpoint.
func NewGoogleHolder(clientID, clientSecret, refreshToken string, ttl time.Duration, logger *slog.Logger) *Holder {
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
	refresh := func(ctx context.Context) (*oauth2.Token, error) {
		// An expired seed forces the source to hit the token endpoint.
		src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)})
		return src.Token()
	}
	return NewHolder(refresh, ttl, logger)
}

// Token implements oauth2.TokenSource for the Google API clients.
func (h *Holder) Token() (*oauth2.Token, error) {
	return h.Get(context.Background())
}

// Get returns a valid access token, refreshing it when stale.
func (h *Holder) Get(ctx context.Context) (*oauth2.Token, error) {
	h.mu.RLock()
	tok, fetched := h.token, h.fetchedAt
	h.mu.RUnlock()
	if h.fresh(tok, fetched) {
		return tok, nil
	}
	return h.Refresh(ctx)
}

// Refresh fetches a new access token regardless of the cached one. The
// shared refresh outlives any single caller; a caller whose ctx ends first
// gets ctx.Err() while the others still receive the token.
func (h *Holder) Refresh(ctx context.Context) (*oauth2.Token, error) {
	refreshCtx := context.WithoutCancel(ctx)
	ch := h.group.DoChan("refresh", func() (any, error) {
		tok, err := h.refresh(refreshCtx)
		if err != nil {
			return nil, err
		}
		if tok == nil || tok.AccessToken == "" {
			return nil, ErrNoCredential
		}
		h.mu.Lock()
		h.token = tok
		h.fetchedAt = h.now()
		h.mu.Unlock()
		return tok, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		h.logger.Warn("google credential refresh failed", "error", res.Err)
		return nil, fmt.Errorf("refresh google credential: %w", res.Err)
	}
	if !res.Shared {
		h.logger.Debug("google credential refreshed")
	}
	return res.Val.(*oauth2.Token), nil
}

// Invalidate drops the cached token so the next Get refreshes.
func (h *Holder) Invalidate() {
	h.mu.Lock()
	h.token = nil
	h.fetchedAt = time.Time{}
	h.mu.Unlock()
}

func (h *Holder) fresh(tok *oauth2.Token, fetched time.Time) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	now := h.now()
	if h.ttl > 0 && now.Sub(fetched) >= h.ttl {
		return false
	}
	if !tok.Expiry.IsZero() && !now.Before(tok.Expiry.Add(-10*time.Second)) {
		return false
	}
	return true
}
