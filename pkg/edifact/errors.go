package edifact

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	// KindBuild marks schema errors found while compiling a Definition.
	KindBuild Kind = iota + 1
	// KindStructural marks grammar errors: invalid tags, broken nesting, truncated streams.
	KindStructural
	// KindData marks field level errors: a decoded value contradicts a declared constant.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindBuild:
		return "build"
	case KindStructural:
		return "structural"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// ErrUnknownField is returned when a field name is not declared in a segment format.
var ErrUnknownField = errors.New("field not in definition")

// ErrFieldAlreadySet is returned on a second write to the same leaf field.
var ErrFieldAlreadySet = errors.New("field already set")

// Error is the single error type raised by the engine.
// Line is 1-based; zero means the error is not tied to an input line.
type Error struct {
	Kind  Kind
	Msg   string
	Line  int
	State string
	Tag   string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.State != "" {
		fmt.Fprintf(&b, " in state %s", e.State)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func buildErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindBuild, Msg: fmt.Sprintf(format, args...)}
}

func structuralErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindStructural, Msg: fmt.Sprintf(format, args...)}
}

func dataErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindData, Msg: fmt.Sprintf(format, args...)}
}

// IsBuild reports whether err carries a schema error.
func IsBuild(err error) bool { return hasKind(err, KindBuild) }

// IsStructural reports whether err carries a structural grammar error.
func IsStructural(err error) bool { return hasKind(err, KindStructural) }

// IsData reports whether err carries a field level data error.
func IsData(err error) bool { return hasKind(err, KindData) }

func hasKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
