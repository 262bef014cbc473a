package model

// State is a document's position in the extraction workflow.
type State string

// Workflow states. The happy path is linear; error is reachable from the
// first four states and returns to pending only through an operator reset.
const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateExtracted  State = "extracted"
	StateValidated  State = "validated"
	StateApproved   State = "approved"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

// AllStates lists every defined state in workflow order.
var AllStates = []State{
	StatePending,
	StateProcessing,
	StateExtracted,
	StateValidated,
	StateApproved,
	StateCompleted,
	StateError,
}

var stateSuccessors = map[State][]State{
	StatePending:    {StateProcessing, StateError},
	StateProcessing: {StateExtracted, StateError},
	StateExtracted:  {StateValidated, StateError},
	StateValidated:  {StateApproved, StateError},
	StateApproved:   {StateCompleted},
	StateError:      {StatePending},
	StateCompleted:  {},
}

// ParseState maps a stored string to a State.
func ParseState(s string) (State, bool) {
	st := State(s)
	return st, st.Valid()
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	_, ok := stateSuccessors[s]
	return ok
}

// CanTransitionTo reports whether to is a legal direct successor of s.
func (s State) CanTransitionTo(to State) bool {
	for _, next := range stateSuccessors[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the workflow ends at s absent operator action.
func (s State) Terminal() bool {
	return s == StateCompleted
}
