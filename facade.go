package brokerage

import (
	"fmt"

	brokeragecommand "github.com/goliatone/go-brokerage/command"
	"github.com/goliatone/go-brokerage/core"
	brokeragequery "github.com/goliatone/go-brokerage/query"
)

type Commands struct {
	Login        *brokeragecommand.LoginCommand
	Logout       *brokeragecommand.LogoutCommand
	Refresh      *brokeragecommand.RefreshCommand
	ExchangeCode *brokeragecommand.ExchangeCodeCommand
}

type Queries struct {
	TokenStatus      *brokeragequery.TokenStatusQuery
	PersistedState   *brokeragequery.PersistedStateQuery
	StreamingHandoff *brokeragequery.StreamingHandoffQuery
}

// Facade exposes a client's session operations as go-command handlers.
type Facade struct {
	client   *Client
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	store   core.StateStore
	handoff brokeragequery.HandoffSource
}

// WithPersistedStateStore points the persisted state query at store instead
// of the session's own store.
func WithPersistedStateStore(store core.StateStore) FacadeOption {
	return func(options *facadeOptions) {
		options.store = store
	}
}

func WithHandoffSource(source brokeragequery.HandoffSource) FacadeOption {
	return func(options *facadeOptions) {
		options.handoff = source
	}
}

func NewFacade(client *Client, opts ...FacadeOption) (*Facade, error) {
	if client == nil || client.session == nil {
		return nil, fmt.Errorf("brokerage: client is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	store := cfg.store
	if store == nil {
		store = client.StateStore()
	}
	handoff := cfg.handoff
	if handoff == nil {
		handoff = client
	}

	session := client.session
	facade := &Facade{client: client}
	facade.commands = Commands{
		Login:        brokeragecommand.NewLoginCommand(session),
		Logout:       brokeragecommand.NewLogoutCommand(session),
		Refresh:      brokeragecommand.NewRefreshCommand(session),
		ExchangeCode: brokeragecommand.NewExchangeCodeCommand(session),
	}
	facade.queries = Queries{
		TokenStatus:      brokeragequery.NewTokenStatusQuery(session),
		PersistedState:   brokeragequery.NewPersistedStateQuery(store),
		StreamingHandoff: brokeragequery.NewStreamingHandoffQuery(handoff),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Client() *Client {
	if f == nil {
		return nil
	}
	return f.client
}

var _ brokeragequery.HandoffSource = (*Client)(nil)
