package edifact

import (
	"fmt"
)

// Reserved triggers and synthetic state names.
const (
	// TriggerEnterGroup keys the transition from a group to its first child.
	TriggerEnterGroup = "to-group-first"
	// TriggerUp keys the transition from a state to its parent.
	TriggerUp = ""
	// StartName names the synthetic state before the first segment.
	StartName = "start"
	// FinalName names the synthetic state after the last segment. It doubles as the finish trigger.
	FinalName = "final"
)

// StateID addresses a State inside its Automaton.
type StateID int

// NoState is the zero reference: no parent, or no exit/enter side of a Transition.
const NoState StateID = -1

// Transition leaves Exit (going up) and/or enters Enter (going down).
// At least one side is set.
type Transition struct {
	Exit  StateID `json:"exit"`
	Enter StateID `json:"enter"`
}

// Edge is a keyed Transition, in the order the builder linked it.
type Edge struct {
	Trigger    string
	Transition Transition
}

// State is one node of the message structure plus the synthetic start and final states.
type State struct {
	ID       StateID
	Path     string
	Node     *Node
	Segment  *Segment
	Format   *Format
	Children []StateID
	Parent   StateID
	// Trigger is the segment tag entering this state. For a group it is the trigger of its first child.
	Trigger string

	byTrigger map[string]Transition
	edges     []Edge
}

// IsGroup reports whether the state has child states.
func (s *State) IsGroup() bool {
	return len(s.Children) > 0
}

// Transition returns the transition keyed by trigger.
func (s *State) Transition(trigger string) (Transition, bool) {
	t, ok := s.byTrigger[trigger]
	return t, ok
}

// Edges returns the outgoing transitions in link order.
func (s *State) Edges() []Edge {
	return append([]Edge(nil), s.edges...)
}

func (s *State) String() string {
	return s.Node.ID + "@" + s.Path
}

// Automaton is the compiled state graph of a Definition. It is immutable.
type Automaton struct {
	def    *Definition
	states []*State
	top    []StateID
	byPath map[string]StateID
	begin  StateID
	end    StateID
}

// Build compiles def into an Automaton.
// It fails on an invalid definition, an invalid segment template, or a trigger
// that would be claimed twice from the same state.
func Build(def *Definition) (*Automaton, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	a := &Automaton{
		def:    def,
		byPath: make(map[string]StateID),
	}

	topNodes := make([]*Node, 0, len(def.Root.Children)+2)
	topNodes = append(topNodes, &Node{ID: StartName, Name: StartName, Min: 1, Max: 1})
	topNodes = append(topNodes, def.Root.Children...)
	topNodes = append(topNodes, &Node{ID: FinalName, Name: FinalName, Min: 1, Max: 1})

	segments := def.segmentByID()
	top, err := a.create(topNodes, NoState, segments)
	if err != nil {
		return nil, err
	}
	a.top = top
	a.begin = top[0]
	a.end = top[len(top)-1]

	for _, id := range a.top {
		if err := a.link(id, a.top); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Automaton) create(nodes []*Node, parent StateID, segments map[string]*Segment) ([]StateID, error) {
	prefix := ""
	if parent != NoState {
		prefix = a.states[parent].Path
	}
	ids := make([]StateID, 0, len(nodes))
	for _, node := range nodes {
		s := &State{
			ID:        StateID(len(a.states)),
			Path:      joinPath(prefix, node.Name),
			Node:      node,
			Parent:    parent,
			Trigger:   node.Name,
			byTrigger: make(map[string]Transition),
		}
		if _, dup := a.byPath[s.Path]; dup {
			return nil, buildErrorf("path %s of node %s is not unique", s.Path, node.ID)
		}
		a.states = append(a.states, s)
		a.byPath[s.Path] = s.ID
		ids = append(ids, s.ID)

		if node.IsGroup() {
			children, err := a.create(node.Children, s.ID, segments)
			if err != nil {
				return nil, err
			}
			s.Children = children
			s.Trigger = a.states[children[0]].Trigger
			continue
		}
		if seg, ok := segments[node.ID]; ok {
			format, err := CompileFormat(seg.Format, a.def.Config)
			if err != nil {
				return nil, fmt.Errorf("segment %s at %s: %w", node.ID, s.Path, err)
			}
			if format.Name != node.Name {
				return nil, buildErrorf("segment %s at %s: template names segment %q", node.ID, s.Path, format.Name)
			}
			s.Segment = seg
			s.Format = format
		}
	}
	return ids, nil
}

// link adds, in order: the enter-group transition (then the children's links),
// the repeat self-loop, transitions to younger siblings up to and including the
// first mandatory one, and the go-up transition.
func (a *Automaton) link(id StateID, siblings []StateID) error {
	s := a.states[id]
	if s.IsGroup() {
		if err := a.add(s, TriggerEnterGroup, Transition{Exit: NoState, Enter: s.Children[0]}); err != nil {
			return err
		}
		for _, child := range s.Children {
			if err := a.link(child, s.Children); err != nil {
				return err
			}
		}
	}
	if s.Node.Repeatable() {
		if err := a.add(s, s.Trigger, Transition{Exit: id, Enter: id}); err != nil {
			return err
		}
	}
	pos := 0
	for i, sib := range siblings {
		if sib == id {
			pos = i
			break
		}
	}
	for _, sib := range siblings[pos+1:] {
		younger := a.states[sib]
		if err := a.add(s, younger.Trigger, Transition{Exit: id, Enter: sib}); err != nil {
			return err
		}
		if younger.Node.Mandatory() {
			break
		}
	}
	if s.Parent != NoState {
		if err := a.add(s, TriggerUp, Transition{Exit: id, Enter: NoState}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Automaton) add(s *State, trigger string, t Transition) error {
	if existing, ok := s.byTrigger[trigger]; ok {
		e := buildErrorf("trigger %q for %s already exists: %s", trigger, s, a.describe(existing))
		e.State = s.String()
		e.Tag = trigger
		return e
	}
	s.byTrigger[trigger] = t
	s.edges = append(s.edges, Edge{Trigger: trigger, Transition: t})
	return nil
}

func (a *Automaton) describe(t Transition) string {
	if t.Enter != NoState {
		return a.states[t.Enter].String()
	}
	if t.Exit != NoState {
		return "exit " + a.states[t.Exit].String()
	}
	return "unknown"
}

// Resolve returns the route from state from to the state entered by tag.
//
// When from has no transition for tag, go-up transitions are taken until an
// ancestor has one. When the destination is a group, the route continues into
// its first child, recursively, so the route always ends on a leaf or on the
// final state.
func (a *Automaton) Resolve(from StateID, tag string) ([]Transition, error) {
	if tag == TriggerUp {
		return nil, a.invalid(from, tag)
	}
	var route []Transition
	cur := a.states[from]
	next, ok := cur.byTrigger[tag]
	for !ok {
		up, has := cur.byTrigger[TriggerUp]
		if !has {
			return nil, a.invalid(from, tag)
		}
		route = append(route, up)
		cur = a.states[a.states[up.Exit].Parent]
		next, ok = cur.byTrigger[tag]
	}
	route = append(route, next)

	if next.Enter != NoState && a.states[next.Enter].IsGroup() {
		inner, err := a.Resolve(next.Enter, TriggerEnterGroup)
		if err != nil {
			e := structuralErrorf("could not go to first group member: trigger %q from %s", tag, a.states[from])
			e.State = a.states[from].String()
			e.Tag = tag
			e.Err = err
			return nil, e
		}
		route = append(route, inner...)
	}
	return route, nil
}

func (a *Automaton) invalid(from StateID, tag string) *Error {
	s := a.states[from]
	e := structuralErrorf("invalid trigger %q at node %s at path %s", tag, s.Node.ID, s.Path)
	e.State = s.String()
	e.Tag = tag
	return e
}

// State returns the state with the given id. The returned value must not be modified.
func (a *Automaton) State(id StateID) *State {
	return a.states[id]
}

// States returns all states in creation order: depth first, start state first.
func (a *Automaton) States() []*State {
	return append([]*State(nil), a.states...)
}

// Begin returns the synthetic start state.
func (a *Automaton) Begin() StateID { return a.begin }

// End returns the synthetic final state.
func (a *Automaton) End() StateID { return a.end }

// Top returns the top level states, start and final included.
func (a *Automaton) Top() []StateID {
	return append([]StateID(nil), a.top...)
}

// Lookup finds the state at path.
func (a *Automaton) Lookup(path string) (*State, bool) {
	id, ok := a.byPath[path]
	if !ok {
		return nil, false
	}
	return a.states[id], true
}

// Definition returns the compiled definition.
func (a *Automaton) Definition() *Definition {
	return a.def
}

// Paths returns the structural paths of all non-synthetic states in depth first order.
func (a *Automaton) Paths() []string {
	out := make([]string, 0, len(a.states))
	for _, s := range a.states {
		if s.ID == a.begin || s.ID == a.end {
			continue
		}
		out = append(out, s.Path)
	}
	return out
}

// IsAncestor reports whether anc is a strict ancestor of id.
func (a *Automaton) IsAncestor(anc, id StateID) bool {
	for p := a.states[id].Parent; p != NoState; p = a.states[p].Parent {
		if p == anc {
			return true
		}
	}
	return false
}
