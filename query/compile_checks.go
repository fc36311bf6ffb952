package query

import (
	"github.com/goliatone/go-brokerage/core"
	"github.com/goliatone/go-brokerage/streaming"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[TokenStatusMessage, TokenStatus]            = (*TokenStatusQuery)(nil)
	_ gocmd.Querier[PersistedStateMessage, PersistedState]      = (*PersistedStateQuery)(nil)
	_ gocmd.Querier[StreamingHandoffMessage, streaming.Handoff] = (*StreamingHandoffQuery)(nil)
	_ TokenStatusReader                                         = (*core.Session)(nil)
)
