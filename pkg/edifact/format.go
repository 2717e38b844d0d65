package edifact

import (
	"strings"
	"unicode"
)

// Field is one value slot in a segment template.
// An empty Name marks a positional placeholder whose value is discarded.
type Field struct {
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Expected    string `json:"expected,omitempty"`
	HasExpected bool   `json:"-"`
}

// Format is a compiled segment template.
type Format struct {
	Name   string
	Fields []Field
	Config Config

	byName map[string]int
}

// CompileFormat parses a segment template into the segment name and its ordered fields.
//
// A field token takes the level of the separator in front of it. A token of the
// form name=value declares value as the expected constant of the field.
func CompileFormat(template string, cfg Config) (*Format, error) {
	plain := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, template)

	f := &Format{Config: cfg, byName: make(map[string]int)}
	var (
		buf     strings.Builder
		escaped bool
		named   bool
		level   = 1
	)
	flush := func() error {
		token := buf.String()
		buf.Reset()
		if !named {
			f.Name = token
			named = true
			return nil
		}
		return f.addField(token, level)
	}

scan:
	for _, c := range plain {
		switch {
		case !escaped && c == cfg.Terminator:
			break scan
		case !escaped && cfg.separatorLevel(c) > 0:
			if err := flush(); err != nil {
				return nil, err
			}
			level = cfg.separatorLevel(c)
		case !escaped && c == cfg.Escape:
			escaped = true
		default:
			buf.WriteRune(c)
			escaped = false
		}
	}
	if buf.Len() > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	if f.Name == "" {
		return nil, buildErrorf("template %q has no segment name", template)
	}
	return f, nil
}

func (f *Format) addField(token string, level int) error {
	name, expected, has := strings.Cut(token, "=")
	if name != "" {
		if _, dup := f.byName[name]; dup {
			return buildErrorf("segment %s: field %q declared twice", f.Name, name)
		}
		f.byName[name] = len(f.Fields)
	}
	f.Fields = append(f.Fields, Field{
		Name:        name,
		Level:       level,
		Expected:    expected,
		HasExpected: has && expected != "",
	})
	return nil
}

// Field looks up a named field.
func (f *Format) Field(name string) (Field, bool) {
	i, ok := f.byName[name]
	if !ok {
		return Field{}, false
	}
	return f.Fields[i], true
}

// Names returns the declared field names in template order.
func (f *Format) Names() []string {
	names := make([]string, 0, len(f.byName))
	for _, field := range f.Fields {
		if field.Name != "" {
			names = append(names, field.Name)
		}
	}
	return names
}

func (f *Format) has(name string) bool {
	_, ok := f.byName[name]
	return ok
}
