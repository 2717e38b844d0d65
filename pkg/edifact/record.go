package edifact

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Branch marks entering a group. It only carries the structural path.
type Branch struct {
	Path string `json:"path"`
}

// Leaf holds the field values of one segment.
// Every name must be declared in the Format and can be set only once.
type Leaf struct {
	Path   string
	Format *Format

	values map[string]string
	err    *Error
}

// NewLeaf creates an empty leaf for the segment at path.
func NewLeaf(path string, format *Format) *Leaf {
	return &Leaf{
		Path:   path,
		Format: format,
		values: make(map[string]string),
	}
}

// Set stores value under name.
func (l *Leaf) Set(name, value string) error {
	if old, ok := l.values[name]; ok {
		return fmt.Errorf("failed to set %q=%q: %w with %q", name, value, ErrFieldAlreadySet, old)
	}
	if name == "" || !l.Format.has(name) {
		return fmt.Errorf("failed to set %q=%q at %s: %w", name, value, l.Path, ErrUnknownField)
	}
	l.values[name] = value
	return nil
}

// Get returns the value for name, or "" if the field was not present.
func (l *Leaf) Get(name string) (string, error) {
	return l.GetOr(name, "")
}

// GetOr returns the value for name, or fallback if the field was not present.
func (l *Leaf) GetOr(name, fallback string) (string, error) {
	if !l.Format.has(name) {
		return "", fmt.Errorf("failed to get %q at %s: %w", name, l.Path, ErrUnknownField)
	}
	if v, ok := l.values[name]; ok {
		return v, nil
	}
	return fallback, nil
}

// Lookup returns the value for name and whether it was set. Unknown names are reported as unset.
func (l *Leaf) Lookup(name string) (string, bool) {
	v, ok := l.values[name]
	return v, ok
}

// Values returns a copy of all set values.
func (l *Leaf) Values() map[string]string {
	out := make(map[string]string, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

// Err returns the data error recorded while decoding, if any.
func (l *Leaf) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// Decode copies the leaf values into out, a pointer to a struct whose fields
// carry `edifact:"name"` tags. Untagged fields use the field name.
func (l *Leaf) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "edifact",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(l.values); err != nil {
		return fmt.Errorf("failed to decode %s: %w", l.Path, err)
	}
	return nil
}
