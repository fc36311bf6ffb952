package sqlstore

import (
	"time"

	"github.com/goliatone/go-brokerage/core"
	"github.com/uptrace/bun"
)

type sessionStateRecord struct {
	bun.BaseModel `bun:"table:brokerage_session_states,alias:bss"`

	ID                    string    `bun:"id,pk"`
	ClientID              string    `bun:"client_id,notnull"`
	AccessToken           string    `bun:"access_token,notnull"`
	RefreshToken          string    `bun:"refresh_token,notnull"`
	AccessTokenExpiresAt  int64     `bun:"access_token_expires_at,notnull"`
	RefreshTokenExpiresAt int64     `bun:"refresh_token_expires_at,notnull"`
	AuthorizationURL      string    `bun:"authorization_url,notnull"`
	RedirectCode          string    `bun:"redirect_code,notnull"`
	LoggedIn              bool      `bun:"logged_in,notnull"`
	CreatedAt             time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt             time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newSessionStateRecord(clientID string, state core.SessionState, now time.Time) *sessionStateRecord {
	return &sessionStateRecord{
		ClientID:              clientID,
		AccessToken:           state.AccessToken,
		RefreshToken:          state.RefreshToken,
		AccessTokenExpiresAt:  state.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: state.RefreshTokenExpiresAt,
		AuthorizationURL:      state.AuthorizationURL,
		RedirectCode:          state.RedirectCode,
		LoggedIn:              state.LoggedIn,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (r *sessionStateRecord) toDomain() core.SessionState {
	if r == nil {
		return core.SessionState{}
	}
	return core.SessionState{
		AccessToken:           r.AccessToken,
		RefreshToken:          r.RefreshToken,
		AccessTokenExpiresAt:  r.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: r.RefreshTokenExpiresAt,
		AuthorizationURL:      r.AuthorizationURL,
		RedirectCode:          r.RedirectCode,
		LoggedIn:              r.LoggedIn,
	}
}
