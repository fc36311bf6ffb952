package sqlstore

import "github.com/goliatone/go-brokerage/core"

var (
	_ core.StateStore = (*SessionStateStore)(nil)
	_ core.StateStore = (*CachedSessionStateStore)(nil)
)
