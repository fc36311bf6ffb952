package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
)

const (
	grantTypeAuthorizationCode = "authorization_code"
	grantTypeRefreshToken      = "refresh_token"
	accessTypeOffline          = "offline"
)

// AuthorizationURL builds the URL the user opens to grant access.
func (s *Session) AuthorizationURL() string {
	if s == nil {
		return ""
	}
	cfg := oauth2.Config{
		ClientID:    s.audienceClientID(),
		RedirectURL: s.credentials.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL: strings.TrimRight(s.config.AuthEndpoint, "/") + "/",
		},
	}
	return cfg.AuthCodeURL("")
}

func (s *Session) audienceClientID() string {
	return s.credentials.ClientID + s.config.ClientIDSuffix
}

// Login authenticates the session. With state caching enabled it first tries
// to resume silently; otherwise it asks the redirect prompter to complete the
// interactive consent and exchanges the returned code.
//
// A provider response without an access token yields (false, nil) and clears
// the session.
func (s *Session) Login(ctx context.Context) (ok bool, err error) {
	if s == nil {
		return false, fmt.Errorf("core: session is nil")
	}
	startedAt := time.Now().UTC()
	interactive := false
	defer func() {
		s.observeOperation(ctx, startedAt, "login", err, map[string]any{
			"logged_in":   ok,
			"interactive": interactive,
		})
	}()

	s.authMu.Lock()
	defer s.authMu.Unlock()

	if s.config.CacheState() {
		resumed, ssoErr := s.silentSSOLocked(ctx)
		if resumed {
			return true, nil
		}
		if ssoErr != nil {
			s.logWarn(ctx, "silent sign-on failed, falling back to interactive login", map[string]any{
				"error": ssoErr.Error(),
			})
		}
	}

	interactive = true
	if s.prompter == nil {
		return false, s.mapError(NewConfigurationError("core: redirect prompter is required for interactive login", nil))
	}

	authURL := s.AuthorizationURL()
	if saveErr := s.updateState(ctx, func(state *SessionState) {
		state.AuthorizationURL = authURL
	}); saveErr != nil {
		return false, s.mapError(saveErr)
	}
	s.setAuthState(AuthStateAwaitingUserAuthorization)

	redirect, promptErr := s.prompter.PromptRedirect(ctx, authURL)
	if promptErr != nil {
		s.setAuthState(AuthStateUnauthenticated)
		return false, s.mapError(goerrors.Wrap(promptErr, goerrors.CategoryAuth, "core: authorization redirect was not received").
			WithTextCode(ErrorCodeNotAuthenticated))
	}
	return s.exchangeRedirectLocked(ctx, redirect)
}

// ExchangeCode stores the post-authorization redirect URL and exchanges the
// code it carries for tokens.
func (s *Session) ExchangeCode(ctx context.Context, redirectURL string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: session is nil")
	}
	s.authMu.Lock()
	defer s.authMu.Unlock()
	return s.exchangeRedirectLocked(ctx, redirectURL)
}

func (s *Session) exchangeRedirectLocked(ctx context.Context, redirectURL string) (bool, error) {
	if err := s.updateState(ctx, func(state *SessionState) {
		state.RedirectCode = strings.TrimSpace(redirectURL)
	}); err != nil {
		return false, s.mapError(err)
	}
	s.setAuthState(AuthStateExchangingCode)
	return s.grabAccessTokenLocked(ctx)
}

// GrabAccessToken exchanges the stored redirect code for tokens.
func (s *Session) GrabAccessToken(ctx context.Context) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: session is nil")
	}
	s.authMu.Lock()
	defer s.authMu.Unlock()
	return s.grabAccessTokenLocked(ctx)
}

func (s *Session) grabAccessTokenLocked(ctx context.Context) (ok bool, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "exchange_code", err, map[string]any{"logged_in": ok})
	}()

	code, err := AuthorizationCodeFromRedirect(s.State().RedirectCode)
	if err != nil {
		s.clearAfterFailure(ctx, "exchange_code")
		return false, s.mapError(err)
	}
	form := url.Values{}
	form.Set("grant_type", grantTypeAuthorizationCode)
	form.Set("client_id", s.audienceClientID())
	form.Set("access_type", accessTypeOffline)
	form.Set("code", code)
	form.Set("redirect_uri", s.credentials.RedirectURI)
	return s.requestTokenLocked(ctx, form)
}

// GrabRefreshToken trades the stored refresh token for a new access token.
func (s *Session) GrabRefreshToken(ctx context.Context) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: session is nil")
	}
	s.authMu.Lock()
	defer s.authMu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) (ok bool, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh", err, map[string]any{"logged_in": ok})
	}()

	form := url.Values{}
	form.Set("grant_type", grantTypeRefreshToken)
	form.Set("client_id", s.credentials.ClientID)
	form.Set("access_type", accessTypeOffline)
	form.Set("refresh_token", s.State().RefreshToken)
	return s.requestTokenLocked(ctx, form)
}

func (s *Session) requestTokenLocked(ctx context.Context, form url.Values) (bool, error) {
	result, err := s.dispatch(ctx, OutboundRequest{
		Method:   http.MethodPost,
		Endpoint: s.config.TokenEndpoint,
		Mode:     BodyModeForm,
		Form:     form,
	})
	if err != nil {
		s.clearAfterFailure(ctx, "token_request")
		return false, s.mapError(err)
	}
	payload, err := parseTokenPayload(result.Body, result.Headers.Get("Content-Type"))
	if err != nil {
		s.clearAfterFailure(ctx, "token_decode")
		return false, s.mapError(goerrors.Wrap(err, goerrors.CategoryExternal, "core: decode token response").
			WithTextCode(ErrorCodeExternalFailure))
	}
	return s.commitToken(ctx, payload)
}

// clearAfterFailure resets the session once a grant has failed. The grant
// error is what the caller sees, so a failed persist is only logged.
func (s *Session) clearAfterFailure(ctx context.Context, stage string) {
	if err := s.clear(ctx); err != nil {
		s.logWarn(ctx, "clearing session after failed grant did not persist", map[string]any{
			"stage": stage,
			"error": err.Error(),
		})
	}
}

// commitToken stores a token endpoint response. A response without an access
// token clears the session instead.
func (s *Session) commitToken(ctx context.Context, payload tokenEndpointPayload) (bool, error) {
	if strings.TrimSpace(payload.AccessToken) == "" {
		fields := map[string]any{}
		if payload.ErrorCode != "" {
			fields["error_code"] = payload.ErrorCode
			fields["error_description"] = payload.ErrorDescription
		}
		s.logWarn(ctx, "token response missing access token, clearing session", fields)
		if err := s.clear(ctx); err != nil {
			return false, s.mapError(err)
		}
		return false, nil
	}

	now := s.clock.Now().Unix()
	err := s.updateState(ctx, func(state *SessionState) {
		state.AccessToken = payload.AccessToken
		state.AccessTokenExpiresAt = now + payload.ExpiresIn
		if payload.RefreshToken != "" {
			state.RefreshToken = payload.RefreshToken
		}
		if payload.RefreshTokenExpiresIn > 0 {
			state.RefreshTokenExpiresAt = now + payload.RefreshTokenExpiresIn
		}
		state.LoggedIn = true
	})
	s.setAuthState(AuthStateAuthenticated)
	if err != nil {
		return true, s.mapError(err)
	}
	return true, nil
}

// AuthorizationCodeFromRedirect extracts the "code" query value from the URL
// the provider redirected to after consent.
func AuthorizationCodeFromRedirect(redirectURL string) (string, error) {
	redirectURL = strings.TrimSpace(redirectURL)
	if redirectURL == "" {
		return "", goerrors.New("core: redirect url is required", goerrors.CategoryBadInput).
			WithTextCode(ErrorCodeBadInput)
	}
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "core: redirect url is invalid").
			WithTextCode(ErrorCodeBadInput)
	}
	code := strings.TrimSpace(parsed.Query().Get("code"))
	if code == "" {
		return "", goerrors.New("core: redirect url has no authorization code", goerrors.CategoryBadInput).
			WithTextCode(ErrorCodeBadInput)
	}
	return code, nil
}

type tokenEndpointPayload struct {
	AccessToken           string
	RefreshToken          string
	TokenType             string
	Scope                 string
	ExpiresIn             int64
	RefreshTokenExpiresIn int64
	ErrorCode             string
	ErrorDescription      string
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:           readAnyString(decoded["access_token"]),
		RefreshToken:          readAnyString(decoded["refresh_token"]),
		TokenType:             readAnyString(decoded["token_type"]),
		Scope:                 readAnyString(decoded["scope"]),
		ExpiresIn:             readAnyInt64(decoded["expires_in"]),
		RefreshTokenExpiresIn: readAnyInt64(decoded["refresh_token_expires_in"]),
		ErrorCode:             readAnyString(decoded["error"]),
		ErrorDescription:      readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	refreshExpiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("refresh_token_expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:           strings.TrimSpace(values.Get("access_token")),
		RefreshToken:          strings.TrimSpace(values.Get("refresh_token")),
		TokenType:             strings.TrimSpace(values.Get("token_type")),
		Scope:                 strings.TrimSpace(values.Get("scope")),
		ExpiresIn:             expiresIn,
		RefreshTokenExpiresIn: refreshExpiresIn,
		ErrorCode:             strings.TrimSpace(values.Get("error")),
		ErrorDescription:      strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return parsed
		}
		if parsed, err := typed.Float64(); err == nil {
			return int64(parsed)
		}
		return 0
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
