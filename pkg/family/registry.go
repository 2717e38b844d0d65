package family

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
)

//go:embed families/*.yaml
var builtinFS embed.FS

// Registry holds families by name. Names are matched case-insensitively.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*Family
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*Family)}
}

// Register adds a family. A family with the same name is replaced.
func (r *Registry) Register(f *Family) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[strings.ToLower(f.Name)] = f
}

// Get looks up a family by name.
func (r *Registry) Get(name string) (*Family, error) {
	r.mu.RLock()
	f, ok := r.families[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, nil
}

// MustGet is like Get but panics when the family is missing.
func (r *Registry) MustGet(name string) *Family {
	f, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return f
}

// Names returns the registered family names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.families))
	for _, f := range r.families {
		names = append(names, f.Name)
	}
	slices.Sort(names)
	return names
}

// Families returns the registered families sorted by name.
func (r *Registry) Families() []*Family {
	var out []*Family
	for _, name := range r.Names() {
		out = append(out, r.MustGet(name))
	}
	return out
}

// LoadDir registers every family file in dir.
func (r *Registry) LoadDir(dir string) error {
	families, err := LoadDir(dir)
	if err != nil {
		return err
	}
	for _, f := range families {
		r.Register(f)
	}
	return nil
}

var builtin = sync.OnceValues(func() ([]*Family, error) {
	entries, err := fs.ReadDir(builtinFS, "families")
	if err != nil {
		return nil, err
	}
	var out []*Family
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("families", e.Name()))
		if err != nil {
			return nil, err
		}
		f, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", e.Name(), err)
		}
		out = append(out, f)
	}
	return out, nil
})

// Builtin returns a new registry holding the embedded demo families.
func Builtin() (*Registry, error) {
	families, err := builtin()
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, f := range families {
		r.Register(f)
	}
	return r, nil
}
