package edifact

import (
	"strings"
	"unicode/utf8"
)

// MaxLevels is the deepest field nesting a Config can describe.
const MaxLevels = 4

// PathSeparator joins node names into structural paths, e.g. "2_ALS/4_PRD/PRD".
const PathSeparator = "/"

// Node is a group or segment in a message structure.
// Min and Max only distinguish optional from mandatory and single from repeatable.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Min      int     `json:"min"`
	Max      int     `json:"max"`
	Children []*Node `json:"children,omitempty"`
}

// IsGroup reports whether the node has children.
func (n *Node) IsGroup() bool {
	return len(n.Children) > 0
}

// Mandatory reports whether at least one occurrence is required.
func (n *Node) Mandatory() bool {
	return n.Min >= 1
}

// Repeatable reports whether the node may occur more than once.
func (n *Node) Repeatable() bool {
	return n.Max > 1
}

// Segment holds the template of one segment node, linked by NodeID.
//
// The template is a wire line with values replaced by field names, for example
//
//	ALS+location_function_code+uic_code:::location_name
//
// Whitespace in the template is ignored, so it may be indented by level.
type Segment struct {
	NodeID string `json:"node_id"`
	Format string `json:"format"`
}

// Config holds the control characters of the wire format.
type Config struct {
	Terminator rune   `json:"terminator"`
	Separators string `json:"separators"`
	Escape     rune   `json:"escape"`
}

// DefaultConfig returns the control characters used by the railway message families.
func DefaultConfig() Config {
	return Config{
		Terminator: '\'',
		Separators: "+*:",
		Escape:     '?',
	}
}

// separatorLevel returns the level bound to r, or 0 if r is not a separator.
func (c Config) separatorLevel(r rune) int {
	i := strings.IndexRune(c.Separators, r)
	if i < 0 {
		return 0
	}
	return utf8.RuneCountInString(c.Separators[:i]) + 1
}

func (c Config) separator(level int) rune {
	return []rune(c.Separators)[level-1]
}

// Validate checks that the control characters are usable.
func (c Config) Validate() error {
	seps := []rune(c.Separators)
	if len(seps) == 0 || len(seps) > MaxLevels {
		return buildErrorf("config needs 1 to %d separators, got %q", MaxLevels, c.Separators)
	}
	seen := map[rune]bool{c.Terminator: true}
	if seen[c.Escape] {
		return buildErrorf("escape %q equals terminator", c.Escape)
	}
	seen[c.Escape] = true
	for _, r := range seps {
		if seen[r] {
			return buildErrorf("control character %q used twice", r)
		}
		seen[r] = true
	}
	return nil
}

// Definition describes one message family.
type Definition struct {
	Version  string    `json:"version"`
	Root     *Node     `json:"root"`
	Segments []Segment `json:"segments"`
	Config   Config    `json:"config"`
}

// Validate checks node ID uniqueness and that segment definitions match segment nodes one to one.
func (d *Definition) Validate() error {
	if d.Root == nil || !d.Root.IsGroup() {
		return buildErrorf("definition %q has no root group", d.Version)
	}
	if err := d.Config.Validate(); err != nil {
		return err
	}
	segments := make(map[string]bool, len(d.Segments))
	for _, seg := range d.Segments {
		if segments[seg.NodeID] {
			return buildErrorf("segment %s defined twice", seg.NodeID)
		}
		segments[seg.NodeID] = true
	}

	ids := make(map[string]bool)
	var walk func(n *Node, path string) error
	walk = func(n *Node, path string) error {
		if ids[n.ID] {
			return buildErrorf("duplicate node id %s at %s", n.ID, path)
		}
		ids[n.ID] = true
		if n.Min < 0 || n.Min > 1 {
			return buildErrorf("node %s at %s: minimal occurrences must be 0 or 1, got %d", n.ID, path, n.Min)
		}
		if n.Max < 1 {
			return buildErrorf("node %s at %s: maximal occurrences must be at least 1, got %d", n.ID, path, n.Max)
		}
		if !n.IsGroup() {
			if !segments[n.ID] {
				return buildErrorf("could not find segment %s %s in definition", n.ID, path)
			}
			return nil
		}
		if segments[n.ID] {
			return buildErrorf("segment %s is attached to group %s", n.ID, path)
		}
		for _, child := range n.Children {
			if err := walk(child, joinPath(path, child.Name)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, top := range d.Root.Children {
		if err := walk(top, top.Name); err != nil {
			return err
		}
	}
	for _, seg := range d.Segments {
		if !ids[seg.NodeID] {
			return buildErrorf("segment %s matches no node", seg.NodeID)
		}
	}
	return nil
}

// segmentByID indexes the segment templates by node ID.
func (d *Definition) segmentByID() map[string]*Segment {
	out := make(map[string]*Segment, len(d.Segments))
	for i := range d.Segments {
		out[d.Segments[i].NodeID] = &d.Segments[i]
	}
	return out
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + PathSeparator + name
}
