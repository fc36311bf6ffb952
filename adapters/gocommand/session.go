package gocommand

import (
	"fmt"

	brokeragecommand "github.com/goliatone/go-brokerage/command"
	"github.com/goliatone/go-brokerage/core"
	brokeragequery "github.com/goliatone/go-brokerage/query"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

// SessionBindings lists the subscriptions created by RegisterSession so the
// caller can release them together.
type SessionBindings struct {
	Subscriptions []commanddispatcher.Subscription
}

func (b *SessionBindings) Unsubscribe() {
	if b == nil {
		return
	}
	for _, subscription := range b.Subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	b.Subscriptions = nil
}

// RegisterSession registers the session commands and queries with the
// adapter's registry and subscribes them on the default dispatcher. The
// streaming handoff query is only bound when handoff is non-nil.
func RegisterSession(
	adapter *RegistryAdapter,
	session *core.Session,
	store core.StateStore,
	handoff brokeragequery.HandoffSource,
	runnerOpts ...runner.Option,
) (*SessionBindings, error) {
	if session == nil {
		return nil, fmt.Errorf("gocommand: session is required")
	}
	if store == nil {
		store = session.Dependencies().StateStore
	}

	bindings := &SessionBindings{}
	register := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			bindings.Unsubscribe()
			return err
		}
		bindings.Subscriptions = append(bindings.Subscriptions, subscription)
		return nil
	}

	if err := register(bindCommand(adapter, brokeragecommand.NewLoginCommand(session), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := register(bindCommand(adapter, brokeragecommand.NewLogoutCommand(session), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := register(bindCommand(adapter, brokeragecommand.NewRefreshCommand(session), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := register(bindCommand(adapter, brokeragecommand.NewExchangeCodeCommand(session), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := register(bindQuery(adapter, brokeragequery.NewTokenStatusQuery(session), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := register(bindQuery(adapter, brokeragequery.NewPersistedStateQuery(store), runnerOpts...)); err != nil {
		return nil, err
	}
	if handoff != nil {
		if err := register(bindQuery(adapter, brokeragequery.NewStreamingHandoffQuery(handoff), runnerOpts...)); err != nil {
			return nil, err
		}
	}
	return bindings, nil
}
