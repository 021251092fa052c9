package orchestration

import (
	"errors"
	"fmt"

	"github.com/chukwumela909/voice-agent-market/core/events"
)

type ConnectionState = events.ConnectionState

const (
	StateIdle          = events.StateIdle
	StateRequesting    = events.StateRequesting
	StateNegotiating   = events.StateNegotiating
	StateConnected     = events.StateConnected
	StateListening     = events.StateListening
	StateAgentSpeaking = events.StateAgentSpeaking
	StateFetching      = events.StateFetching
	StateClosed        = events.StateClosed
	StateError         = events.StateError
)

var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[ConnectionState][]ConnectionState{
	StateIdle:          {StateRequesting},
	StateRequesting:    {StateNegotiating, StateIdle, StateClosed, StateError},
	StateNegotiating:   {StateConnected, StateIdle, StateClosed, StateError},
	StateConnected:     {StateListening, StateAgentSpeaking, StateFetching, StateClosed, StateError},
	StateListening:     {StateAgentSpeaking, StateFetching, StateClosed, StateError},
	StateAgentSpeaking: {StateListening, StateFetching, StateClosed, StateError},
	StateFetching:      {StateListening, StateAgentSpeaking, StateClosed, StateError},
	StateError:         {StateClosed},
	StateClosed:        {StateIdle},
}

// transition validates a move between lifecycle states. A torn down session
// always passes through Closed before the orchestrator is Idle again.
func transition(from, to ConnectionState) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// derivedState is the reported state of an open session.
func derivedState(fetching, vocalizing bool) ConnectionState {
	switch {
	case fetching:
		return StateFetching
	case vocalizing:
		return StateAgentSpeaking
	default:
		return StateListening
	}
}
