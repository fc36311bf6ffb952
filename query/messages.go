package query

const (
	TypeTokenStatus      = "brokerage.query.token_status"
	TypePersistedState   = "brokerage.query.persisted_state"
	TypeStreamingHandoff = "brokerage.query.streaming_handoff"
)

type TokenStatusMessage struct{}

func (TokenStatusMessage) Type() string { return TypeTokenStatus }

func (TokenStatusMessage) Validate() error { return nil }

// PersistedStateMessage reads the stored session state. Token values are
// masked unless RevealTokens is set.
type PersistedStateMessage struct {
	RevealTokens bool
}

func (PersistedStateMessage) Type() string { return TypePersistedState }

func (PersistedStateMessage) Validate() error { return nil }

type StreamingHandoffMessage struct{}

func (StreamingHandoffMessage) Type() string { return TypeStreamingHandoff }

func (StreamingHandoffMessage) Validate() error { return nil }
