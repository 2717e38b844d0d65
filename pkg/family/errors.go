package family

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a registry has no family of the given name.
var ErrNotFound = errors.New("family not found")

// ErrNoTables is returned when a conversion needs tables the family does not declare.
var ErrNoTables = errors.New("family declares no tables")

// ValidationError lists every problem found in a family document.
type ValidationError struct {
	Family   string
	Problems []string
}

func (e *ValidationError) Error() string {
	name := e.Family
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("family %s: found %d errors:\n- %s", name, len(e.Problems), strings.Join(e.Problems, "\n- "))
}
