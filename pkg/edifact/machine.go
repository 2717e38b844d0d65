package edifact

// Machine is a cursor over an Automaton. It converts a sequence of segment
// tags into routes of transitions and tracks the current state.
type Machine struct {
	a     *Automaton
	state StateID
}

// NewMachine creates a cursor positioned on the start state.
func NewMachine(a *Automaton) *Machine {
	return &Machine{a: a, state: a.begin}
}

// Handle resolves tag from the current state and moves the cursor to the
// destination. On error the cursor does not move.
func (m *Machine) Handle(tag string) ([]Transition, error) {
	route, err := m.a.Resolve(m.state, tag)
	if err != nil {
		return nil, err
	}
	last := route[len(route)-1]
	if last.Enter != NoState {
		m.state = last.Enter
	} else {
		m.state = last.Exit
	}
	return route, nil
}

// Finish resolves the finish trigger. It fails unless the cursor lands on the final state.
func (m *Machine) Finish() ([]Transition, error) {
	route, err := m.Handle(FinalName)
	if err != nil || m.state != m.a.end {
		e := structuralErrorf("failed final transition to end state %s", m.a.states[m.a.end])
		e.State = m.a.states[m.state].String()
		e.Tag = FinalName
		e.Err = err
		return nil, e
	}
	return route, nil
}

// Reset moves the cursor back to the start state.
func (m *Machine) Reset() {
	m.state = m.a.begin
}

// State returns the current state.
func (m *Machine) State() *State {
	return m.a.states[m.state]
}

// Automaton returns the graph the cursor runs on.
func (m *Machine) Automaton() *Automaton {
	return m.a
}
