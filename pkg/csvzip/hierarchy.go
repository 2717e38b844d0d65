package csvzip

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Table declares one CSV file of a Hierarchy.
type Table struct {
	File   string
	ID     string
	Parent *Table
	// Fields lists the expected headers in output order. Empty disables the header check.
	Fields []string
}

// CheckFields fails when headers differ from the declared fields.
func (t *Table) CheckFields(headers []string) error {
	if len(t.Fields) == 0 {
		return nil
	}
	missing, extra := lo.Difference(t.Fields, headers)
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing in %s fields %v", t.File, missing)
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return fmt.Errorf("found in %s extra fields %v", t.File, extra)
	}
	return nil
}

// Hierarchy is a tree of tables plus one metadata table.
// Every child table carries its parent's ID column.
type Hierarchy struct {
	meta     *Table
	root     *Table
	tables   []*Table
	byFile   map[string]*Table
	children map[string][]*Table
}

// NewHierarchy checks that tables contain exactly one table named metaFile and
// exactly one other table without a parent.
func NewHierarchy(tables []*Table, metaFile string) (*Hierarchy, error) {
	h := &Hierarchy{
		tables:   tables,
		byFile:   make(map[string]*Table, len(tables)),
		children: make(map[string][]*Table),
	}

	metas := lo.Filter(tables, func(t *Table, _ int) bool { return t.File == metaFile })
	if len(metas) != 1 {
		return nil, fmt.Errorf("expected exactly one meta table (%s) but found %d", metaFile, len(metas))
	}
	h.meta = metas[0]

	var roots []string
	for _, t := range tables {
		if _, dup := h.byFile[t.File]; dup {
			return nil, fmt.Errorf("duplicate table %s", t.File)
		}
		h.byFile[t.File] = t
		if t == h.meta {
			continue
		}
		if t.Parent == nil {
			roots = append(roots, t.File)
			h.root = t
			continue
		}
		h.children[t.Parent.File] = append(h.children[t.Parent.File], t)
	}
	if len(roots) != 1 {
		return nil, fmt.Errorf("expected exactly one root but found %v", roots)
	}
	for _, t := range tables {
		if t.Parent != nil && h.byFile[t.Parent.File] != t.Parent {
			return nil, fmt.Errorf("parent %s of %s is not part of the hierarchy", t.Parent.File, t.File)
		}
	}
	return h, nil
}

func (h *Hierarchy) Meta() *Table { return h.meta }

func (h *Hierarchy) Root() *Table { return h.root }

// Tables returns all tables in declaration order.
func (h *Hierarchy) Tables() []*Table { return slices.Clone(h.tables) }

// Table looks up a table by file name.
func (h *Hierarchy) Table(file string) (*Table, bool) {
	t, ok := h.byFile[file]
	return t, ok
}

// Children returns the direct child tables of file in declaration order.
func (h *Hierarchy) Children(file string) []*Table {
	return h.children[file]
}

// Files returns every file name, meta included.
func (h *Hierarchy) Files() []string {
	return lo.Map(h.tables, func(t *Table, _ int) string { return t.File })
}
