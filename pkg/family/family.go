// Package family loads message families: a segment tree with inline
// templates, the control characters of the wire format and the CSV tables
// the messages convert to.
package family

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/aretw0/merits/internal/validator"
	"github.com/aretw0/merits/pkg/edifact"
	"github.com/aretw0/merits/pkg/mapping"
	"gopkg.in/yaml.v3"
)

// RootID is the node ID given to the implicit root group.
const RootID = "root"

// Family is one message family as written in YAML.
type Family struct {
	Name        string           `yaml:"name" json:"name" validate:"required"`
	Version     string           `yaml:"version" json:"version" validate:"required"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Control     Control          `yaml:"config" json:"config"`
	Structure   []*NodeSpec      `yaml:"structure" json:"structure" validate:"required,min=1,dive"`
	Tables      []*mapping.Table `yaml:"tables" json:"tables" validate:"dive"`

	once sync.Once
	a    *edifact.Automaton
	plan *mapping.Plan
	err  error
}

// Control holds the control characters. Empty values take the defaults.
type Control struct {
	Terminator string `yaml:"terminator,omitempty" json:"terminator,omitempty" validate:"omitempty,len=1"`
	Separators string `yaml:"separators,omitempty" json:"separators,omitempty" validate:"omitempty,min=1,max=4"`
	Escape     string `yaml:"escape,omitempty" json:"escape,omitempty" validate:"omitempty,len=1"`
}

// NodeSpec is a group (with children) or a segment (with a format).
type NodeSpec struct {
	ID       string      `yaml:"id,omitempty" json:"id,omitempty"`
	Name     string      `yaml:"name" json:"name" validate:"required,excludes=/"`
	Min      int         `yaml:"min" json:"min" validate:"min=0,max=1"`
	Max      int         `yaml:"max,omitempty" json:"max,omitempty" validate:"min=0"`
	Format   string      `yaml:"format,omitempty" json:"format,omitempty"`
	Children []*NodeSpec `yaml:"children,omitempty" json:"children,omitempty" validate:"dive"`
}

// Config returns the control characters with defaults applied.
func (c Control) Config() edifact.Config {
	cfg := edifact.DefaultConfig()
	if c.Terminator != "" {
		cfg.Terminator = []rune(c.Terminator)[0]
	}
	if c.Separators != "" {
		cfg.Separators = c.Separators
	}
	if c.Escape != "" {
		cfg.Escape = []rune(c.Escape)[0]
	}
	return cfg
}

// Parse decodes and validates one family document. Unknown keys are rejected.
func Parse(data []byte) (*Family, error) {
	var f Family
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("failed to parse family: empty document")
		}
		return nil, fmt.Errorf("failed to parse family: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses a family file.
func Load(path string) (*Family, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read family: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Family, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	families := make([]*Family, 0, len(paths))
	for _, p := range paths {
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		families = append(families, f)
	}
	return families, nil
}

func (f *Family) validate() error {
	problems := validator.Problems(f)
	if len(problems) == 0 {
		f.build()
		problems = validator.Flatten(f.err)
	}
	if len(problems) > 0 {
		return &ValidationError{Family: f.Name, Problems: problems}
	}
	return nil
}

// Definition converts the structure into an engine definition. Nodes without
// an ID are identified by their path; a missing max means 1.
func (f *Family) Definition() *edifact.Definition {
	def := &edifact.Definition{
		Version: f.Name + " " + f.Version,
		Root:    &edifact.Node{ID: RootID, Name: RootID, Min: 1, Max: 1},
		Config:  f.Control.Config(),
	}
	var convert func(specs []*NodeSpec, parent string) []*edifact.Node
	convert = func(specs []*NodeSpec, parent string) []*edifact.Node {
		nodes := make([]*edifact.Node, 0, len(specs))
		for _, s := range specs {
			path := s.Name
			if parent != "" {
				path = parent + edifact.PathSeparator + s.Name
			}
			n := &edifact.Node{ID: s.ID, Name: s.Name, Min: s.Min, Max: s.Max}
			if n.ID == "" {
				n.ID = path
			}
			if n.Max == 0 {
				n.Max = 1
			}
			n.Children = convert(s.Children, path)
			if s.Format != "" {
				def.Segments = append(def.Segments, edifact.Segment{NodeID: n.ID, Format: s.Format})
			}
			nodes = append(nodes, n)
		}
		return nodes
	}
	def.Root.Children = convert(f.Structure, "")
	return def
}

// Plan builds the automaton and the table plan once and caches both.
// A family without tables has no plan and fails with ErrNoTables.
func (f *Family) Plan() (*mapping.Plan, error) {
	f.build()
	if f.err != nil {
		return nil, f.err
	}
	if f.plan == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTables, f.Name)
	}
	return f.plan, nil
}

// Automaton returns the cached automaton.
func (f *Family) Automaton() (*edifact.Automaton, error) {
	f.build()
	if f.a == nil {
		return nil, f.err
	}
	return f.a, nil
}

func (f *Family) build() {
	f.once.Do(func() {
		f.a, f.err = edifact.Build(f.Definition())
		if f.err != nil || len(f.Tables) == 0 {
			return
		}
		f.plan, f.err = mapping.Compile(f.a, f.Tables)
	})
}

// Paths returns every structural path in document order.
func (f *Family) Paths() []string {
	a, err := f.Automaton()
	if err != nil {
		return nil
	}
	return a.Paths()
}
