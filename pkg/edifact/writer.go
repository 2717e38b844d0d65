package edifact

import (
	"fmt"
	"sort"
)

// Writer serializes segments one at a time. It runs its own Machine so every
// produced line is guaranteed to be accepted by a Reader in the same order.
type Writer struct {
	a       *Automaton
	m       *Machine
	formats map[string]*Format
}

// NewWriter creates a Writer positioned on the start state.
func NewWriter(a *Automaton) *Writer {
	w := &Writer{
		a:       a,
		m:       NewMachine(a),
		formats: make(map[string]*Format),
	}
	for _, s := range a.states {
		if s.Format != nil {
			w.formats[s.Path] = s.Format
		}
	}
	return w
}

// WriteSegment renders the segment at path with the given field values.
//
// Every name in defaultsFor is first filled with the constant declared in the
// template; such a name must exist and declare a constant. The values are then
// applied; unknown names are rejected. The segment must be reachable from the
// writer's current position; the position then advances to path.
func (w *Writer) WriteSegment(path string, values map[string]string, defaultsFor []string) (string, error) {
	format, ok := w.formats[path]
	if !ok {
		return "", structuralErrorf("could not find a format for segment at %q", path)
	}
	from := w.m.State()
	route, err := w.a.Resolve(from.ID, format.Name)
	if err != nil {
		return "", fmt.Errorf("could not add %q: %w", path, err)
	}
	target := "(none)"
	if last := route[len(route)-1]; last.Enter != NoState {
		target = w.a.states[last.Enter].Path
	}
	if target != path {
		e := structuralErrorf("segment name %s expects path %q but given is %q", format.Name, target, path)
		e.State = from.String()
		e.Tag = format.Name
		return "", e
	}

	leaf := NewLeaf(path, format)
	for _, name := range defaultsFor {
		field, ok := format.Field(name)
		if !ok {
			return "", fmt.Errorf("no field %q defined in %q: %w", name, path, ErrUnknownField)
		}
		if !field.HasExpected {
			return "", fmt.Errorf("no expected/default value for field %q defined in %q", name, path)
		}
		if err := leaf.Set(name, field.Expected); err != nil {
			return "", err
		}
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := leaf.Set(name, values[name]); err != nil {
			return "", err
		}
	}

	if _, err := w.m.Handle(format.Name); err != nil {
		return "", err
	}
	return format.Encode(leaf), nil
}

// Finish checks that the written stream is complete, i.e. the final state is reachable.
func (w *Writer) Finish() error {
	_, err := w.m.Finish()
	return err
}

// Reset moves the writer back to the start state.
func (w *Writer) Reset() {
	w.m.Reset()
}

// Format returns the compiled format of the segment at path.
func (w *Writer) Format(path string) (*Format, bool) {
	f, ok := w.formats[path]
	return f, ok
}
