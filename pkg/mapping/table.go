// Package mapping converts between segment streams and CSV tables using a
// declarative table description instead of hand-written per-message code.
//
// A Table is either the single meta table, a branch table (one row per
// occurrence of a group) or a leaf table (one row per matching segment). Its
// SegmentMaps bind segment fields to CSV columns in both directions.
package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/aretw0/merits/pkg/edifact"
	"github.com/samber/lo"
)

// Segment positions within a row.
const (
	PositionHeader  = "header"
	PositionTrailer = "trailer"
)

// Table describes one CSV file and where its rows live in the segment tree.
type Table struct {
	File   string `yaml:"file" json:"file" validate:"required"`
	ID     string `yaml:"id" json:"id" validate:"required"`
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`
	Meta   bool   `yaml:"meta,omitempty" json:"meta,omitempty"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
	Leaf   string `yaml:"leaf,omitempty" json:"leaf,omitempty"`
	// Fields lists the CSV columns in output order.
	Fields []string `yaml:"fields" json:"fields" validate:"required,min=1,unique"`
	// Inherit copies parent columns into each row: column → parent column.
	Inherit  map[string]string `yaml:"inherit,omitempty" json:"inherit,omitempty"`
	Segments []SegmentMap      `yaml:"segments" json:"segments" validate:"dive"`
}

// SegmentMap binds the fields of the segment at Path to columns of a Table.
type SegmentMap struct {
	Path string `yaml:"path" json:"path" validate:"required"`
	// When restricts the mapping to segments carrying these constants. On
	// output the constants are written.
	When map[string]string `yaml:"when,omitempty" json:"when,omitempty"`
	// Columns maps a CSV column to a segment field.
	Columns map[string]string `yaml:"columns,omitempty" json:"columns,omitempty"`
	// Parts maps the components of one field, joined by Sep, to several columns.
	Parts []Part `yaml:"parts,omitempty" json:"parts,omitempty" validate:"dive"`
	// Defaults lists fields written with the constant of their template.
	Defaults []string `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	// Values computes output fields from ${column}, ${meta.column} and ${segment_count}.
	Values map[string]string `yaml:"values,omitempty" json:"values,omitempty"`
	// Split joins the values of a repeated segment into one column and writes
	// one segment per non-empty part.
	Split string `yaml:"split,omitempty" json:"split,omitempty"`
	// Optional skips output when every mapped column is empty.
	Optional bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
	Position string `yaml:"position,omitempty" json:"position,omitempty" validate:"omitempty,oneof=header trailer"`
}

// Part splits one segment field into several columns.
type Part struct {
	Field   string   `yaml:"field" json:"field" validate:"required"`
	Sep     string   `yaml:"sep" json:"sep" validate:"required"`
	Columns []string `yaml:"columns" json:"columns" validate:"required,min=2"`
}

// columns returns every CSV column the mapping reads or writes.
func (m *SegmentMap) columns() []string {
	cols := lo.Keys(m.Columns)
	for _, p := range m.Parts {
		cols = append(cols, p.Columns...)
	}
	return cols
}

func (m *SegmentMap) trailer() bool { return m.Position == PositionTrailer }

func (t *Table) kind() string {
	switch {
	case t.Meta:
		return "meta"
	case t.Branch != "":
		return "branch"
	default:
		return "leaf"
	}
}

// binding ties a segment path to one mapping of one table.
type binding struct {
	table *Table
	seg   *SegmentMap
}

// Plan is a validated set of tables bound to an automaton.
type Plan struct {
	a         *edifact.Automaton
	tables    []*Table
	meta      *Table
	byFile    map[string]*Table
	byBranch  map[string][]*Table
	bindings  map[string][]binding
	csvTables map[string]*csvzip.Table
	order     []*csvzip.Table
	hierarchy *csvzip.Hierarchy
}

// Compile checks tables against the automaton and indexes them.
// All findings are reported together.
func Compile(a *edifact.Automaton, tables []*Table) (*Plan, error) {
	p := &Plan{
		a:         a,
		tables:    tables,
		byFile:    make(map[string]*Table, len(tables)),
		byBranch:  make(map[string][]*Table),
		bindings:  make(map[string][]binding),
		csvTables: make(map[string]*csvzip.Table, len(tables)),
	}

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for _, t := range tables {
		if _, dup := p.byFile[t.File]; dup {
			fail("duplicate table %s", t.File)
			continue
		}
		p.byFile[t.File] = t
		if t.Meta {
			if p.meta != nil {
				fail("tables %s and %s are both meta", p.meta.File, t.File)
			}
			p.meta = t
		}
		ct := &csvzip.Table{File: t.File, ID: t.ID, Fields: t.Fields}
		p.csvTables[t.File] = ct
		p.order = append(p.order, ct)
	}
	if p.meta == nil {
		fail("no meta table")
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, t := range tables {
		errs = append(errs, p.check(t)...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, t := range tables {
		if t.Parent != "" {
			p.csvTables[t.File].Parent = p.csvTables[t.Parent]
		}
		if t.Branch != "" {
			p.byBranch[t.Branch] = append(p.byBranch[t.Branch], t)
		}
		for i := range t.Segments {
			s := &t.Segments[i]
			p.bindings[s.Path] = append(p.bindings[s.Path], binding{table: t, seg: s})
		}
	}
	h, err := csvzip.NewHierarchy(p.order, p.meta.File)
	if err != nil {
		return nil, err
	}
	p.hierarchy = h
	return p, nil
}

func (p *Plan) check(t *Table) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("table %s: "+format, append([]any{t.File}, args...)...))
	}

	kinds := lo.Count([]bool{t.Meta, t.Branch != "", t.Leaf != ""}, true)
	if kinds != 1 {
		fail("exactly one of meta, branch and leaf must be set")
		return errs
	}
	if !lo.Contains(t.Fields, t.ID) {
		fail("id column %s is not a field", t.ID)
	}

	// scope is the path every segment of the table must live in.
	var scope string
	switch {
	case t.Meta:
		if t.Parent != "" {
			fail("meta table cannot have a parent")
		}
	case t.Branch != "":
		s, ok := p.a.Lookup(t.Branch)
		if !ok || !s.IsGroup() {
			fail("branch %s is not a group", t.Branch)
			return errs
		}
		scope = t.Branch
	default:
		s, ok := p.a.Lookup(t.Leaf)
		if !ok || s.IsGroup() {
			fail("leaf %s is not a segment", t.Leaf)
			return errs
		}
		scope = t.Leaf
	}

	if t.Parent != "" {
		parent, ok := p.byFile[t.Parent]
		switch {
		case !ok:
			fail("unknown parent %s", t.Parent)
		case parent.Branch == "":
			fail("parent %s is not a branch table", t.Parent)
		case !strings.HasPrefix(scope, parent.Branch+edifact.PathSeparator):
			fail("%s is not inside parent branch %s", scope, parent.Branch)
		default:
			if !lo.Contains(t.Fields, parent.ID) {
				fail("parent id column %s is not a field", parent.ID)
			}
			for col, pcol := range t.Inherit {
				if !lo.Contains(parent.Fields, pcol) {
					fail("inherited column %s is not a field of %s", pcol, parent.File)
				}
				if !lo.Contains(t.Fields, col) {
					fail("inheriting column %s is not a field", col)
				}
			}
		}
	} else if len(t.Inherit) > 0 {
		fail("inherit requires a parent")
	}

	for i := range t.Segments {
		s := &t.Segments[i]
		where := fmt.Sprintf("segment %d (%s)", i, s.Path)
		state, ok := p.a.Lookup(s.Path)
		if !ok || state.Format == nil {
			fail("%s: path is not a segment", where)
			continue
		}
		switch {
		case t.Leaf != "" && s.Path != t.Leaf:
			fail("%s: leaf table segments must be at %s", where, t.Leaf)
		case scope != "" && t.Branch != "" && !strings.HasPrefix(s.Path, scope+edifact.PathSeparator):
			fail("%s: not inside branch %s", where, scope)
		}
		if t.Meta && s.Position == "" {
			fail("%s: meta segments need a position", where)
		}

		var fields []string
		fields = append(fields, lo.Keys(s.When)...)
		fields = append(fields, lo.Values(s.Columns)...)
		fields = append(fields, lo.Keys(s.Values)...)
		fields = append(fields, s.Defaults...)
		for _, part := range s.Parts {
			fields = append(fields, part.Field)
		}
		for _, f := range fields {
			if _, ok := state.Format.Field(f); !ok {
				fail("%s: unknown field %q", where, f)
			}
		}
		if dups := lo.FindDuplicates(fields); len(dups) > 0 {
			fail("%s: fields mapped more than once %v", where, dups)
		}
		for _, f := range s.Defaults {
			if field, ok := state.Format.Field(f); ok && !field.HasExpected {
				fail("%s: default for %q has no constant", where, f)
			}
		}
		for _, col := range s.columns() {
			if !lo.Contains(t.Fields, col) {
				fail("%s: column %s is not a field", where, col)
			}
		}
	}
	return errs
}

// Automaton returns the automaton the plan was compiled against.
func (p *Plan) Automaton() *edifact.Automaton { return p.a }

// Hierarchy returns the CSV table hierarchy.
func (p *Plan) Hierarchy() *csvzip.Hierarchy { return p.hierarchy }

// CSVTables returns the CSV tables in declaration order.
func (p *Plan) CSVTables() []*csvzip.Table { return p.hierarchy.Tables() }

// Tables returns the table descriptions in declaration order.
func (p *Plan) Tables() []*Table { return p.tables }

// Table looks up a table description by file name.
func (p *Plan) Table(file string) (*Table, bool) {
	t, ok := p.byFile[file]
	return t, ok
}

// Meta returns the meta table.
func (p *Plan) Meta() *Table { return p.meta }

// Files returns every CSV file name in declaration order.
func (p *Plan) Files() []string { return p.hierarchy.Files() }

// isAncestor reports whether anc is a strict ancestor table of t.
func (p *Plan) isAncestor(anc, t *Table) bool {
	for t.Parent != "" {
		t = p.byFile[t.Parent]
		if t == anc {
			return true
		}
	}
	return false
}
