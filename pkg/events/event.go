// Package events records the structural events of a parsed stream and
// writes them as text, NDJSON or CBOR.
package events

import "github.com/aretw0/merits/pkg/edifact"

// Kind tells what happened.
type Kind string

const (
	KindEnter   Kind = "enter"
	KindExit    Kind = "exit"
	KindSegment Kind = "segment"
)

// Event is one structural event. Values is only set for segments.
type Event struct {
	Seq    int               `json:"seq" cbor:"1,keyasint"`
	Kind   Kind              `json:"kind" cbor:"2,keyasint"`
	Path   string            `json:"path" cbor:"3,keyasint"`
	Values map[string]string `json:"values,omitempty" cbor:"4,keyasint,omitempty"`
}

// Recorder is an edifact.Handler that keeps every event in memory.
// The exit of a leaf is not recorded, it always follows its segment event.
type Recorder struct {
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(kind Kind, path string, values map[string]string) {
	r.events = append(r.events, Event{Seq: len(r.events) + 1, Kind: kind, Path: path, Values: values})
}

func (r *Recorder) EnterBranch(b edifact.Branch) error {
	r.add(KindEnter, b.Path, nil)
	return nil
}

func (r *Recorder) ExitBranch(path string) error {
	r.add(KindExit, path, nil)
	return nil
}

func (r *Recorder) EnterLeaf(l *edifact.Leaf) error {
	r.add(KindSegment, l.Path, l.Values())
	return nil
}

func (r *Recorder) ExitLeaf(string) error { return nil }

// Events returns the recorded events.
func (r *Recorder) Events() []Event {
	return r.events
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.events = nil
}
