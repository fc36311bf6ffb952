package query

import (
	"context"

	"github.com/goliatone/go-brokerage/core"
	"github.com/goliatone/go-brokerage/streaming"
)

const redactedToken = "[REDACTED]"

type TokenStatusReader interface {
	TokenSeconds(kind core.TokenKind) int64
	AuthState() core.AuthState
	LoggedIn() bool
}

type HandoffSource interface {
	StreamingHandoff(ctx context.Context) (streaming.Handoff, error)
}

type TokenStatus struct {
	AuthState           core.AuthState `json:"auth_state"`
	LoggedIn            bool           `json:"logged_in"`
	AccessTokenSeconds  int64          `json:"access_token_seconds"`
	RefreshTokenSeconds int64          `json:"refresh_token_seconds"`
}

type PersistedState struct {
	Found bool              `json:"found"`
	State core.SessionState `json:"state"`
}

type TokenStatusQuery struct {
	reader TokenStatusReader
}

func NewTokenStatusQuery(reader TokenStatusReader) *TokenStatusQuery {
	return &TokenStatusQuery{reader: reader}
}

func (q *TokenStatusQuery) Query(_ context.Context, _ TokenStatusMessage) (TokenStatus, error) {
	if q == nil || q.reader == nil {
		return TokenStatus{}, queryDependencyError("query: token status reader is required")
	}
	return TokenStatus{
		AuthState:           q.reader.AuthState(),
		LoggedIn:            q.reader.LoggedIn(),
		AccessTokenSeconds:  q.reader.TokenSeconds(core.TokenKindAccess),
		RefreshTokenSeconds: q.reader.TokenSeconds(core.TokenKindRefresh),
	}, nil
}

type PersistedStateQuery struct {
	store core.StateStore
}

func NewPersistedStateQuery(store core.StateStore) *PersistedStateQuery {
	return &PersistedStateQuery{store: store}
}

func (q *PersistedStateQuery) Query(ctx context.Context, msg PersistedStateMessage) (PersistedState, error) {
	if q == nil || q.store == nil {
		return PersistedState{}, queryDependencyError("query: state store is required")
	}
	state, found, err := q.store.Load(ctx)
	if err != nil {
		return PersistedState{}, err
	}
	if !msg.RevealTokens {
		state.AccessToken = maskToken(state.AccessToken)
		state.RefreshToken = maskToken(state.RefreshToken)
		state.RedirectCode = maskToken(state.RedirectCode)
	}
	return PersistedState{Found: found, State: state}, nil
}

type StreamingHandoffQuery struct {
	source HandoffSource
}

func NewStreamingHandoffQuery(source HandoffSource) *StreamingHandoffQuery {
	return &StreamingHandoffQuery{source: source}
}

func (q *StreamingHandoffQuery) Query(ctx context.Context, _ StreamingHandoffMessage) (streaming.Handoff, error) {
	if q == nil || q.source == nil {
		return streaming.Handoff{}, queryDependencyError("query: streaming handoff source is required")
	}
	return q.source.StreamingHandoff(ctx)
}

func maskToken(value string) string {
	if value == "" {
		return ""
	}
	return redactedToken
}
