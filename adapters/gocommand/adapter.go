// Package gocommand puts the session commands and queries on the go-command
// dispatcher so callers can drive a session by message.
package gocommand

import (
	"context"
	"fmt"

	brokeragecommand "github.com/goliatone/go-brokerage/command"
	brokeragequery "github.com/goliatone/go-brokerage/query"
	"github.com/goliatone/go-brokerage/streaming"
	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

// RegistryAdapter records every handler bound by RegisterSession in a
// go-command registry.
type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) register(handler any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(handler)
}

func bindCommand[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if err := adapter.register(cmd); err != nil {
		return nil, err
	}
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...), nil
}

func bindQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if err := adapter.register(qry); err != nil {
		return nil, err
	}
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...), nil
}

// Login dispatches brokerage.command.login and returns the outcome stored by
// the handler.
func Login(ctx context.Context) (brokeragecommand.AuthOutcome, error) {
	return dispatchForOutcome(ctx, brokeragecommand.LoginMessage{})
}

func Logout(ctx context.Context) error {
	return commanddispatcher.Dispatch(ctx, brokeragecommand.LogoutMessage{})
}

// Refresh runs a refresh grant when force is set, otherwise silent sign-on.
func Refresh(ctx context.Context, force bool) (brokeragecommand.AuthOutcome, error) {
	return dispatchForOutcome(ctx, brokeragecommand.RefreshMessage{Force: force})
}

func ExchangeCode(ctx context.Context, redirectURL string) (brokeragecommand.AuthOutcome, error) {
	return dispatchForOutcome(ctx, brokeragecommand.ExchangeCodeMessage{RedirectURL: redirectURL})
}

func TokenStatus(ctx context.Context) (brokeragequery.TokenStatus, error) {
	return commanddispatcher.Query[brokeragequery.TokenStatusMessage, brokeragequery.TokenStatus](
		ctx, brokeragequery.TokenStatusMessage{},
	)
}

func PersistedState(ctx context.Context, revealTokens bool) (brokeragequery.PersistedState, error) {
	return commanddispatcher.Query[brokeragequery.PersistedStateMessage, brokeragequery.PersistedState](
		ctx, brokeragequery.PersistedStateMessage{RevealTokens: revealTokens},
	)
}

func StreamingHandoff(ctx context.Context) (streaming.Handoff, error) {
	return commanddispatcher.Query[brokeragequery.StreamingHandoffMessage, streaming.Handoff](
		ctx, brokeragequery.StreamingHandoffMessage{},
	)
}

// dispatchForOutcome keeps the handler error as is rather than the
// dispatcher's wrapped result error.
func dispatchForOutcome[T any](ctx context.Context, msg T) (brokeragecommand.AuthOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := command.NewResult[brokeragecommand.AuthOutcome]()
	err := commanddispatcher.Dispatch(command.ContextWithResult(ctx, result), msg)
	outcome, _ := result.Load()
	return outcome, err
}
