package command

import (
	"net/url"
	"strings"
)

const (
	TypeLogin        = "brokerage.command.login"
	TypeLogout       = "brokerage.command.logout"
	TypeRefresh      = "brokerage.command.refresh"
	TypeExchangeCode = "brokerage.command.exchange_code"
)

type LoginMessage struct{}

func (LoginMessage) Type() string { return TypeLogin }

func (LoginMessage) Validate() error { return nil }

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

func (LogoutMessage) Validate() error { return nil }

// RefreshMessage renews the access token. Without Force the refresh only runs
// when the access token is inside the refresh threshold.
type RefreshMessage struct {
	Force bool
}

func (RefreshMessage) Type() string { return TypeRefresh }

func (RefreshMessage) Validate() error { return nil }

// ExchangeCodeMessage carries the URL the browser was redirected to after
// the user approved access.
type ExchangeCodeMessage struct {
	RedirectURL string
}

func (ExchangeCodeMessage) Type() string { return TypeExchangeCode }

func (m ExchangeCodeMessage) Validate() error {
	trimmed := strings.TrimSpace(m.RedirectURL)
	if trimmed == "" {
		return commandValidationError("redirect_url", "redirect url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return commandWrapValidation(err, "command: redirect url is malformed")
	}
	if strings.TrimSpace(parsed.Query().Get("code")) == "" {
		return commandValidationError("redirect_url", "redirect url has no code parameter")
	}
	return nil
}
