package edifact

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
)

// TagLength is the number of leading characters of a line naming its segment.
const TagLength = 3

// Reader parses segment streams against an Automaton.
type Reader struct {
	a      *Automaton
	m      *Machine
	stack  []StateID
	logger *slog.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithReaderLogger sets the logger used for per-segment debug output.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader creates a Reader. The Automaton may be shared; the Reader may not.
func NewReader(a *Automaton, opts ...ReaderOption) *Reader {
	r := &Reader{
		a:      a,
		m:      NewMachine(a),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read parses lines, one segment per line, and reports the structure to h.
// Empty lines are skipped. After the last line the stream must be able to
// reach the final state.
func (r *Reader) Read(lines iter.Seq[string], h Handler) error {
	r.stack = r.stack[:0]
	r.m.Reset()
	r.stack = append(r.stack, r.a.begin)

	lineNo := 0
	for line := range lines {
		lineNo++
		if line == "" {
			continue
		}
		tag := line
		if rs := []rune(line); len(rs) > TagLength {
			tag = string(rs[:TagLength])
		}
		from := r.m.State()
		route, err := r.m.Handle(tag)
		if err != nil {
			return r.wrap(err, lineNo, from, tag, "illegal segment")
		}
		r.logger.Debug("segment", "line", lineNo, "tag", tag, "path", r.m.State().Path)
		if err := r.apply(route, h, lineNo, line); err != nil {
			return err
		}
	}

	from := r.m.State()
	route, err := r.m.Finish()
	if err != nil {
		return r.wrap(err, 0, from, FinalName, "could not finalize")
	}
	return r.apply(route, h, lineNo+1, "")
}

// ReadString splits text into lines and parses them.
func (r *Reader) ReadString(text string, h Handler) error {
	return r.Read(func(yield func(string) bool) {
		for line := range strings.Lines(text) {
			if !yield(strings.TrimRight(line, "\r\n")) {
				return
			}
		}
	}, h)
}

// ReadFrom parses the lines of rd.
func (r *Reader) ReadFrom(rd io.Reader, h Handler) error {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	err := r.Read(func(yield func(string) bool) {
		for sc.Scan() {
			if !yield(strings.TrimRight(sc.Text(), "\r")) {
				return
			}
		}
	}, h)
	if err != nil {
		return err
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read segments: %w", err)
	}
	return nil
}

func (r *Reader) apply(route []Transition, h Handler, lineNo int, line string) error {
	for _, t := range route {
		if t.Exit != NoState {
			s := r.a.states[t.Exit]
			if err := r.pop(s); err != nil {
				return r.wrap(err, lineNo, s, "", "stack")
			}
			var err error
			switch {
			case s.ID == r.a.begin:
				// The start state was never announced.
			case s.IsGroup():
				err = h.ExitBranch(s.Path)
			default:
				err = h.ExitLeaf(s.Path)
			}
			if err != nil {
				return fmt.Errorf("line %d: exit %s: %w", lineNo, s.Path, err)
			}
		}
		if t.Enter == NoState {
			continue
		}
		s := r.a.states[t.Enter]
		switch {
		case s.IsGroup():
			if err := h.EnterBranch(Branch{Path: s.Path}); err != nil {
				return fmt.Errorf("line %d: enter %s: %w", lineNo, s.Path, err)
			}
		case line != "" && s.Format != nil:
			leaf, err := s.Format.Decode(s.Path, line)
			if err != nil {
				return r.wrap(err, lineNo, s, s.Trigger, "failed to read segment")
			}
			if derr := leaf.err; derr != nil {
				e := *derr
				e.Line = lineNo
				e.State = s.String()
				e.Msg = fmt.Sprintf("failed to read line %d as segment type %s: %s", lineNo, s, derr.Msg)
				return &e
			}
			if err := h.EnterLeaf(leaf); err != nil {
				return fmt.Errorf("line %d: enter %s: %w", lineNo, s.Path, err)
			}
		default:
			// Entering the final state carries no segment.
		}
		if err := r.push(s); err != nil {
			return r.wrap(err, lineNo, s, "", "stack")
		}
	}
	return nil
}

func (r *Reader) pop(s *State) error {
	if len(r.stack) == 0 {
		return structuralErrorf("cannot exit state %s: currently in root", s)
	}
	if top := r.stack[len(r.stack)-1]; top != s.ID {
		return structuralErrorf("cannot exit state %s: not top of stack %s", s, r.stackString())
	}
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

func (r *Reader) push(s *State) error {
	if len(r.stack) > 0 {
		if top := r.stack[len(r.stack)-1]; s.Parent != top {
			return structuralErrorf("cannot enter state %s: it is no child of current top of stack %s", s, r.stackString())
		}
	}
	r.stack = append(r.stack, s.ID)
	return nil
}

func (r *Reader) stackString() string {
	parts := make([]string, len(r.stack))
	for i, id := range r.stack {
		parts[i] = r.a.states[id].String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// wrap attaches line and state context to err.
func (r *Reader) wrap(err error, lineNo int, s *State, tag, what string) error {
	e, ok := err.(*Error)
	if !ok {
		e = structuralErrorf("%s", what)
		e.Err = err
	} else {
		cp := *e
		cp.Msg = what + " coming from state " + s.String() + ": " + e.Msg
		e = &cp
	}
	if lineNo > 0 {
		e.Line = lineNo
	}
	e.State = s.String()
	if tag != "" {
		e.Tag = tag
	}
	return e
}
