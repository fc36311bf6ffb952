package command

import (
	"github.com/goliatone/go-brokerage/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[LoginMessage]        = (*LoginCommand)(nil)
	_ gocmd.Commander[LogoutMessage]       = (*LogoutCommand)(nil)
	_ gocmd.Commander[RefreshMessage]      = (*RefreshCommand)(nil)
	_ gocmd.Commander[ExchangeCodeMessage] = (*ExchangeCodeCommand)(nil)
	_ SessionService                       = (*core.Session)(nil)
)
