package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const StatePayloadFormatJSON = "session_state_json"

// SessionState is the mutable token state owned by a single Session.
// Expiries are absolute epoch seconds.
type SessionState struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  int64
	RefreshTokenExpiresAt int64
	AuthorizationURL      string
	RedirectCode          string
	LoggedIn              bool
}

// StateCodec converts session state to and from its persisted form.
type StateCodec interface {
	Format() string
	Encode(state SessionState) ([]byte, error)
	Decode(payload []byte) (SessionState, error)
}

// JSONStateCodec writes the flat JSON object used by the state file. Output
// is deterministic: the same state always encodes to the same bytes.
type JSONStateCodec struct{}

func (JSONStateCodec) Format() string {
	return StatePayloadFormatJSON
}

type jsonStatePayload struct {
	AccessToken           *string      `json:"access_token"`
	RefreshToken          *string      `json:"refresh_token"`
	AccessTokenExpiresAt  epochSeconds `json:"access_token_expires_at"`
	RefreshTokenExpiresAt epochSeconds `json:"refresh_token_expires_at"`
	AuthorizationURL      *string      `json:"authorization_url"`
	RedirectCode          *string      `json:"redirect_code"`
	LoggedIn              bool         `json:"loggedin"`
}

func (JSONStateCodec) Encode(state SessionState) ([]byte, error) {
	payload := jsonStatePayload{
		AccessToken:           optionalString(state.AccessToken),
		RefreshToken:          optionalString(state.RefreshToken),
		AccessTokenExpiresAt:  epochSeconds(state.AccessTokenExpiresAt),
		RefreshTokenExpiresAt: epochSeconds(state.RefreshTokenExpiresAt),
		AuthorizationURL:      optionalString(state.AuthorizationURL),
		RedirectCode:          optionalString(state.RedirectCode),
		LoggedIn:              state.LoggedIn,
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return nil, fmt.Errorf("core: encode session state: %w", err)
	}
	return buf.Bytes(), nil
}

func (JSONStateCodec) Decode(payload []byte) (SessionState, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return SessionState{}, fmt.Errorf("core: session state payload is empty")
	}
	decoded := jsonStatePayload{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return SessionState{}, fmt.Errorf("core: decode session state: %w", err)
	}
	return SessionState{
		AccessToken:           derefString(decoded.AccessToken),
		RefreshToken:          derefString(decoded.RefreshToken),
		AccessTokenExpiresAt:  int64(decoded.AccessTokenExpiresAt),
		RefreshTokenExpiresAt: int64(decoded.RefreshTokenExpiresAt),
		AuthorizationURL:      derefString(decoded.AuthorizationURL),
		RedirectCode:          derefString(decoded.RedirectCode),
		LoggedIn:              decoded.LoggedIn,
	}, nil
}

// epochSeconds accepts integer, fractional or null expiry values. Fractional
// seconds are truncated.
type epochSeconds int64

func (e epochSeconds) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", int64(e))), nil
}

func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*e = 0
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("core: expiry must be a number: %w", err)
	}
	if parsed, err := number.Int64(); err == nil {
		*e = epochSeconds(parsed)
		return nil
	}
	parsed, err := number.Float64()
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return fmt.Errorf("core: invalid expiry value %q", raw)
	}
	*e = epochSeconds(int64(parsed))
	return nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
