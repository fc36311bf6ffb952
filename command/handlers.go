package command

import (
	"context"

	"github.com/goliatone/go-brokerage/core"
	gocmd "github.com/goliatone/go-command"
)

// SessionService is the subset of *core.Session the commands drive.
type SessionService interface {
	Login(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error
	SilentSSO(ctx context.Context) (bool, error)
	GrabRefreshToken(ctx context.Context) (bool, error)
	ExchangeCode(ctx context.Context, redirectURL string) (bool, error)
	AuthState() core.AuthState
}

// AuthOutcome is stored in the command result collector when one is present.
type AuthOutcome struct {
	Authenticated bool
	AuthState     core.AuthState
}

type LoginCommand struct {
	service SessionService
}

func NewLoginCommand(service SessionService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, _ LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login session is required")
	}
	ok, err := c.service.Login(ctx)
	storeResult(ctx, AuthOutcome{Authenticated: ok, AuthState: c.service.AuthState()})
	return err
}

type LogoutCommand struct {
	service SessionService
}

func NewLogoutCommand(service SessionService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout session is required")
	}
	return c.service.Logout(ctx)
}

type RefreshCommand struct {
	service SessionService
}

func NewRefreshCommand(service SessionService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, msg RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh session is required")
	}
	var (
		ok  bool
		err error
	)
	if msg.Force {
		ok, err = c.service.GrabRefreshToken(ctx)
	} else {
		ok, err = c.service.SilentSSO(ctx)
	}
	storeResult(ctx, AuthOutcome{Authenticated: ok, AuthState: c.service.AuthState()})
	return err
}

type ExchangeCodeCommand struct {
	service SessionService
}

func NewExchangeCodeCommand(service SessionService) *ExchangeCodeCommand {
	return &ExchangeCodeCommand{service: service}
}

func (c *ExchangeCodeCommand) Execute(ctx context.Context, msg ExchangeCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: exchange code session is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	ok, err := c.service.ExchangeCode(ctx, msg.RedirectURL)
	storeResult(ctx, AuthOutcome{Authenticated: ok, AuthState: c.service.AuthState()})
	return err
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
