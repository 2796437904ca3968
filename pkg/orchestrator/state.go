package orchestrator

// State is a step of a conversation run.
type State int

const (
	// StateAwaitingModel waits for the model's next turn
	StateAwaitingModel State = iota
	// StateDispatchingTools runs the tool calls of the latest model turn
	StateDispatchingTools
	// StateDone means the model gave a final answer
	StateDone
	// StateFailed means the run stopped with an error
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateDispatchingTools:
		return "DISPATCHING_TOOLS"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// TransitionHook observes every state change of a run
type TransitionHook func(runID string, from, to State)
