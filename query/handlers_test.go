package query

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-brokerage/core"
	"github.com/goliatone/go-brokerage/streaming"
	goerrors "github.com/goliatone/go-errors"
)

type stubTokenStatusReader struct {
	seconds  map[core.TokenKind]int64
	state    core.AuthState
	loggedIn bool
}

func (s stubTokenStatusReader) TokenSeconds(kind core.TokenKind) int64 { return s.seconds[kind] }
func (s stubTokenStatusReader) AuthState() core.AuthState              { return s.state }
func (s stubTokenStatusReader) LoggedIn() bool                         { return s.loggedIn }

type stubHandoffSource struct {
	handoff streaming.Handoff
	err     error
}

func (s stubHandoffSource) StreamingHandoff(context.Context) (streaming.Handoff, error) {
	return s.handoff, s.err
}

func TestTokenStatusQuery_ReportsBothTokens(t *testing.T) {
	reader := stubTokenStatusReader{
		seconds: map[core.TokenKind]int64{
			core.TokenKindAccess:  1200,
			core.TokenKindRefresh: 7_776_000,
		},
		state:    core.AuthStateAuthenticated,
		loggedIn: true,
	}
	status, err := NewTokenStatusQuery(reader).Query(context.Background(), TokenStatusMessage{})
	if err != nil {
		t.Fatalf("query token status: %v", err)
	}
	if status.AccessTokenSeconds != 1200 || status.RefreshTokenSeconds != 7_776_000 {
		t.Fatalf("unexpected token seconds %#v", status)
	}
	if !status.LoggedIn || status.AuthState != core.AuthStateAuthenticated {
		t.Fatalf("unexpected auth status %#v", status)
	}
}

func TestPersistedStateQuery_MasksTokensByDefault(t *testing.T) {
	ctx := context.Background()
	store := core.NewMemoryStateStore()
	if err := store.Save(ctx, core.SessionState{
		AccessToken:  "access",
		RefreshToken: "refresh",
		LoggedIn:     true,
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	q := NewPersistedStateQuery(store)

	masked, err := q.Query(ctx, PersistedStateMessage{})
	if err != nil {
		t.Fatalf("query masked: %v", err)
	}
	if !masked.Found || masked.State.AccessToken != redactedToken || masked.State.RefreshToken != redactedToken {
		t.Fatalf("expected masked tokens, got %#v", masked)
	}
	if masked.State.RedirectCode != "" {
		t.Fatalf("expected empty redirect code to stay empty, got %q", masked.State.RedirectCode)
	}

	revealed, err := q.Query(ctx, PersistedStateMessage{RevealTokens: true})
	if err != nil {
		t.Fatalf("query revealed: %v", err)
	}
	if revealed.State.AccessToken != "access" {
		t.Fatalf("expected raw access token, got %q", revealed.State.AccessToken)
	}
}

func TestStreamingHandoffQuery_DelegatesToSource(t *testing.T) {
	expected := streaming.Handoff{SocketURL: "wss://streamer.example/ws"}
	got, err := NewStreamingHandoffQuery(stubHandoffSource{handoff: expected}).
		Query(context.Background(), StreamingHandoffMessage{})
	if err != nil {
		t.Fatalf("query handoff: %v", err)
	}
	if got.SocketURL != expected.SocketURL {
		t.Fatalf("expected %q, got %q", expected.SocketURL, got.SocketURL)
	}

	failure := errors.New("principals unavailable")
	_, err = NewStreamingHandoffQuery(stubHandoffSource{err: failure}).
		Query(context.Background(), StreamingHandoffMessage{})
	if !errors.Is(err, failure) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestQueries_NilDependencyReturnsRichError(t *testing.T) {
	var q *PersistedStateQuery
	_, err := q.Query(context.Background(), PersistedStateMessage{})

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorCodeInternal {
		t.Fatalf("expected %q text code, got %q", core.ErrorCodeInternal, rich.TextCode)
	}
	if rich.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d code, got %d", http.StatusInternalServerError, rich.Code)
	}
}
