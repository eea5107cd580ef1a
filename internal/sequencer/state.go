package sequencer

// State is the sequencer's playback state.
type State int

const (
	// StateIdle indicates nothing is playing.
	StateIdle State = iota
	// StatePlaying indicates a run is in progress.
	StatePlaying
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// stateMachine guards transitions between states. It is not safe for
// concurrent use; the sequencer holds its lock around every call.
type stateMachine struct {
	current     State
	transitions map[State][]State
	onEnter     map[State]func()
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:    {StatePlaying},
			StatePlaying: {StateIdle},
		},
		onEnter: make(map[State]func()),
	}
}

// Transition moves to the given state if the table allows it.
func (sm *stateMachine) Transition(to State) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to
	if fn := sm.onEnter[to]; fn != nil {
		fn()
	}
	return true
}

// Current returns the current state.
func (sm *stateMachine) Current() State {
	return sm.current
}

// OnEnter registers a callback run after entering state.
func (sm *stateMachine) OnEnter(state State, fn func()) {
	sm.onEnter[state] = fn
}
