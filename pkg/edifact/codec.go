package edifact

import (
	"errors"
	"slices"
	"strings"
)

// ErrSegmentName is returned when a line is decoded with the format of another segment.
var ErrSegmentName = errors.New("wrong segment name")

// Decode parses one wire line into a Leaf.
//
// Input problems do not fail the call: a misplaced separator or a value that
// contradicts a declared constant is recorded on the leaf (see Leaf.Err) and
// decoding stops there. A build error wrapping ErrSegmentName is returned only
// when the line does not start with this format's segment name.
func (f *Format) Decode(path, line string) (*Leaf, error) {
	cfg := f.Config
	leaf := NewLeaf(path, f)
	var (
		buf     strings.Builder
		escaped bool
		idx     = -1
		pos     int
	)

scan:
	for _, c := range line {
		pos++
		switch {
		case !escaped && c == cfg.Terminator:
			break scan
		case !escaped && cfg.separatorLevel(c) > 0:
			if err := f.setField(leaf, idx, buf.String()); err != nil {
				return nil, err
			}
			buf.Reset()
			if leaf.err != nil {
				return leaf, nil
			}

			from := idx
			next := cfg.separatorLevel(c)
			idx++
			for idx < len(f.Fields) && f.Fields[idx].Level > next {
				idx++
			}
			if idx >= len(f.Fields) || f.Fields[idx].Level != next {
				name := f.Name
				if from >= 0 {
					name = f.Fields[from].Name
				}
				leaf.err = structuralErrorf("unexpected separator %q at %d coming from field index %d %q", c, pos, from, name)
				leaf.err.Tag = f.Name
				return leaf, nil
			}
		case !escaped && c == cfg.Escape:
			escaped = true
		default:
			buf.WriteRune(c)
			escaped = false
		}
	}
	if buf.Len() > 0 {
		if err := f.setField(leaf, idx, buf.String()); err != nil {
			return nil, err
		}
	}
	return leaf, nil
}

func (f *Format) setField(leaf *Leaf, idx int, value string) error {
	if idx < 0 {
		if value != f.Name {
			e := buildErrorf("line starts with %q, format is for %q", value, f.Name)
			e.Err = ErrSegmentName
			return e
		}
		return nil
	}
	field := f.Fields[idx]
	if field.HasExpected && field.Expected != value {
		leaf.err = dataErrorf("expected value %q at field %q but found %q", field.Expected, field.Name, value)
		leaf.err.Tag = f.Name
	}
	if field.Name != "" {
		leaf.values[field.Name] = value
	}
	return nil
}

// Encode renders a Leaf as one wire line, terminator included.
//
// The line is built from the last field backward so that trailing empty
// components and elements produce no separators. Once a value has been seen,
// every separator needed to position it is emitted.
func (f *Format) Encode(leaf *Leaf) string {
	cfg := f.Config
	out := []string{string(cfg.Terminator)}
	current := 0
	for i := len(f.Fields) - 1; i >= 0; i-- {
		field := f.Fields[i]
		var value string
		if field.Name != "" {
			value = leaf.values[field.Name]
		}
		if value != "" {
			out = append(out, f.escape(value))
			current = field.Level
		}
		if current > 0 && field.Level <= current {
			out = append(out, string(cfg.separator(field.Level)))
			current = field.Level
		}
	}
	out = append(out, f.Name)
	slices.Reverse(out)
	return strings.Join(out, "")
}

func (f *Format) escape(value string) string {
	cfg := f.Config
	esc := string(cfg.Escape)
	value = strings.ReplaceAll(value, esc, esc+esc)
	for _, sep := range cfg.Separators {
		value = strings.ReplaceAll(value, string(sep), esc+string(sep))
	}
	return strings.ReplaceAll(value, string(cfg.Terminator), esc+string(cfg.Terminator))
}
