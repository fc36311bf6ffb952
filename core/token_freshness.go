package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenSeconds returns the whole seconds left before the token of the given
// kind expires, or 0 when the token is absent or already expired.
func (s *Session) TokenSeconds(kind TokenKind) int64 {
	if s == nil {
		return 0
	}
	return tokenSeconds(s.State(), kind, s.clock.Now())
}

func tokenSeconds(state SessionState, kind TokenKind, now time.Time) int64 {
	var token string
	var expiresAt int64
	switch kind {
	case TokenKindAccess:
		token, expiresAt = state.AccessToken, state.AccessTokenExpiresAt
	case TokenKindRefresh:
		token, expiresAt = state.RefreshToken, state.RefreshTokenExpiresAt
	default:
		return 0
	}
	if strings.TrimSpace(token) == "" {
		return 0
	}
	remaining := time.Unix(expiresAt, 0).Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

// SilentSSO restores an authenticated session without user interaction,
// using the refresh token when the access token is no longer usable.
func (s *Session) SilentSSO(ctx context.Context) (ok bool, err error) {
	if s == nil {
		return false, fmt.Errorf("core: session is nil")
	}
	s.authMu.Lock()
	defer s.authMu.Unlock()
	return s.silentSSOLocked(ctx)
}

func (s *Session) silentSSOLocked(ctx context.Context) (ok bool, err error) {
	startedAt := time.Now().UTC()
	refreshed := false
	defer func() {
		s.observeOperation(ctx, startedAt, "silent_sso", err, map[string]any{
			"logged_in": ok,
			"refreshed": refreshed,
		})
	}()

	if s.TokenSeconds(TokenKindAccess) > 0 {
		s.setAuthState(AuthStateAuthenticated)
		return true, nil
	}
	if s.TokenSeconds(TokenKindRefresh) <= 0 {
		return false, nil
	}
	if strings.TrimSpace(s.State().RefreshToken) == "" {
		return false, nil
	}
	refreshed = true
	return s.refreshLocked(ctx)
}

// ensureFresh refreshes the access token when it is inside the configured
// threshold. A failed refresh is logged and the request proceeds with
// whatever state remains; the provider's response then decides the outcome.
func (s *Session) ensureFresh(ctx context.Context) {
	if !s.config.RefreshEnabled() {
		return
	}
	s.authMu.Lock()
	defer s.authMu.Unlock()

	if s.TokenSeconds(TokenKindAccess) >= s.config.RefreshThresholdSeconds {
		return
	}
	if s.TokenSeconds(TokenKindRefresh) <= 0 {
		return
	}
	ok, err := s.refreshLocked(ctx)
	if err != nil || !ok {
		fields := map[string]any{"token_kind": string(TokenKindRefresh)}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.logWarn(ctx, "pre-request token refresh failed", fields)
	}
}

// Token implements oauth2.TokenSource over the session, refreshing first
// when the access token is inside the refresh threshold.
func (s *Session) Token() (*oauth2.Token, error) {
	if s == nil {
		return nil, fmt.Errorf("core: session is nil")
	}
	ctx := context.Background()
	s.ensureFresh(ctx)
	state := s.State()
	if tokenSeconds(state, TokenKindAccess, s.clock.Now()) <= 0 {
		return nil, s.mapError(fmt.Errorf("core: session is not authenticated"))
	}
	return &oauth2.Token{
		AccessToken:  state.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: state.RefreshToken,
		Expiry:       time.Unix(state.AccessTokenExpiresAt, 0).UTC(),
	}, nil
}

var _ oauth2.TokenSource = (*Session)(nil)
