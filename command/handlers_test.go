package command

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-brokerage/core"
	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

type stubSessionService struct {
	loginFn    func(context.Context) (bool, error)
	logoutFn   func(context.Context) error
	silentFn   func(context.Context) (bool, error)
	refreshFn  func(context.Context) (bool, error)
	exchangeFn func(context.Context, string) (bool, error)
	state      core.AuthState
}

func (s stubSessionService) Login(ctx context.Context) (bool, error) {
	if s.loginFn == nil {
		return false, nil
	}
	return s.loginFn(ctx)
}

func (s stubSessionService) Logout(ctx context.Context) error {
	if s.logoutFn == nil {
		return nil
	}
	return s.logoutFn(ctx)
}

func (s stubSessionService) SilentSSO(ctx context.Context) (bool, error) {
	if s.silentFn == nil {
		return false, nil
	}
	return s.silentFn(ctx)
}

func (s stubSessionService) GrabRefreshToken(ctx context.Context) (bool, error) {
	if s.refreshFn == nil {
		return false, nil
	}
	return s.refreshFn(ctx)
}

func (s stubSessionService) ExchangeCode(ctx context.Context, redirectURL string) (bool, error) {
	if s.exchangeFn == nil {
		return false, nil
	}
	return s.exchangeFn(ctx, redirectURL)
}

func (s stubSessionService) AuthState() core.AuthState {
	return s.state
}

func TestLoginCommand_ExecuteStoresOutcome(t *testing.T) {
	svc := stubSessionService{
		loginFn: func(context.Context) (bool, error) { return true, nil },
		state:   core.AuthStateAuthenticated,
	}
	collector := gocmd.NewResult[AuthOutcome]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := NewLoginCommand(svc).Execute(ctx, LoginMessage{}); err != nil {
		t.Fatalf("execute login: %v", err)
	}
	outcome, ok := collector.Load()
	if !ok {
		t.Fatalf("expected outcome to be stored")
	}
	if !outcome.Authenticated || outcome.AuthState != core.AuthStateAuthenticated {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
}

func TestRefreshCommand_ForceSelectsRefreshGrant(t *testing.T) {
	var silentCalls, refreshCalls int
	svc := stubSessionService{
		silentFn:  func(context.Context) (bool, error) { silentCalls++; return true, nil },
		refreshFn: func(context.Context) (bool, error) { refreshCalls++; return true, nil },
	}
	cmd := NewRefreshCommand(svc)

	if err := cmd.Execute(context.Background(), RefreshMessage{}); err != nil {
		t.Fatalf("execute refresh: %v", err)
	}
	if err := cmd.Execute(context.Background(), RefreshMessage{Force: true}); err != nil {
		t.Fatalf("execute forced refresh: %v", err)
	}
	if silentCalls != 1 || refreshCalls != 1 {
		t.Fatalf("expected one silent and one forced refresh, got silent=%d forced=%d", silentCalls, refreshCalls)
	}
}

func TestExchangeCodeCommand_ValidatesBeforeExchange(t *testing.T) {
	called := false
	svc := stubSessionService{
		exchangeFn: func(_ context.Context, redirectURL string) (bool, error) {
			called = true
			return true, nil
		},
	}
	cmd := NewExchangeCodeCommand(svc)

	err := cmd.Execute(context.Background(), ExchangeCodeMessage{RedirectURL: "https://127.0.0.1/callback?state=x"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if called {
		t.Fatalf("expected exchange to be skipped for invalid redirect")
	}

	if err := cmd.Execute(context.Background(), ExchangeCodeMessage{
		RedirectURL: "https://127.0.0.1/callback?code=abc%2F123",
	}); err != nil {
		t.Fatalf("execute exchange: %v", err)
	}
	if !called {
		t.Fatalf("expected exchange invocation")
	}
}

func TestLogoutCommand_PropagatesError(t *testing.T) {
	expected := errors.New("store unavailable")
	svc := stubSessionService{logoutFn: func(context.Context) error { return expected }}
	if err := NewLogoutCommand(svc).Execute(context.Background(), LogoutMessage{}); !errors.Is(err, expected) {
		t.Fatalf("expected logout error, got %v", err)
	}
}

func TestCommands_NilServiceReturnsDependencyError(t *testing.T) {
	var cmd *LoginCommand
	err := cmd.Execute(context.Background(), LoginMessage{})

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
}

func TestExchangeCodeMessage_ValidateReturnsRichError(t *testing.T) {
	err := (ExchangeCodeMessage{}).Validate()

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.Code != http.StatusBadRequest {
		t.Fatalf("expected %d code, got %d", http.StatusBadRequest, rich.Code)
	}
	validation := rich.AllValidationErrors()
	if len(validation) == 0 || validation[0].Field != "redirect_url" {
		t.Fatalf("expected redirect_url validation field, got %#v", validation)
	}
}
