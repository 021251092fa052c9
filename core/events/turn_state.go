package events

const (
	// KindTurnCompleted identifies the remote service closing a turn.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnCancelled identifies turn cancellation by barge-in.
	KindTurnCancelled Kind = "turn_state.cancelled"
)

// TurnCompleted marks the end of a conversational turn.
type TurnCompleted struct{ Base }

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted() TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted)}
}

// TurnCancelled marks cancellation of the response in flight.
type TurnCancelled struct {
	Base
	ResponseID string
}

// NewTurnCancelled creates a turn cancelled event.
func NewTurnCancelled(responseID string) TurnCancelled {
	return TurnCancelled{Base: NewBase(KindTurnCancelled), ResponseID: responseID}
}
