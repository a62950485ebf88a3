package trial

import "fmt"

// State is a step of the session state machine.
type State int

const (
	StateIdle State = iota
	StateInstructions
	StateTraining
	StateReadyPrompt
	StatePause
	StatePlayback
	StateResponseWait
	StateRecorded
	StateComplete
	StateAborted
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateInstructions: "instructions",
	StateTraining:     "training",
	StateReadyPrompt:  "ready_prompt",
	StatePause:        "inter_stimulus_pause",
	StatePlayback:     "playback",
	StateResponseWait: "response_wait",
	StateRecorded:     "recorded",
	StateComplete:     "complete",
	StateAborted:      "aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(s State) bool {
	return s == StateComplete || s == StateAborted
}

func isAllowedTransition(from, to State) bool {
	if to == StateAborted {
		return !IsTerminal(from)
	}
	switch from {
	case StateIdle:
		return to == StateInstructions
	case StateInstructions:
		return to == StateTraining || to == StateReadyPrompt
	case StateTraining:
		return to == StateReadyPrompt
	case StateReadyPrompt:
		// Complete directly when there is nothing to present.
		return to == StatePause || to == StateComplete
	case StatePause:
		return to == StatePlayback
	case StatePlayback:
		return to == StateResponseWait
	case StateResponseWait:
		return to == StateRecorded
	case StateRecorded:
		return to == StatePause || to == StateComplete
	default:
		return false
	}
}
