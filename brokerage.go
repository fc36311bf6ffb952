// Package brokerage is a client for a brokerage REST API that authenticates
// with an OAuth2 authorization code flow, keeps its tokens fresh and persists
// them between runs.
package brokerage

import "github.com/goliatone/go-brokerage/core"

type Config = core.Config

type Credentials = core.Credentials

type Option = core.Option

type Session = core.Session

type SessionState = core.SessionState

type StateStore = core.StateStore

type DispatchResult = core.DispatchResult

type OrderDetails = core.OrderDetails

type RawOrder = core.RawOrder

type OrderPayload = core.OrderPayload

type RedirectPrompter = core.RedirectPrompter

type RedirectPrompterFunc = core.RedirectPrompterFunc

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorMapper      = core.WithErrorMapper
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithClock            = core.WithClock
	WithTransport        = core.WithTransport
	WithStateStore       = core.WithStateStore
	WithRedirectPrompter = core.WithRedirectPrompter
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
