package mapping

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/aretw0/merits/pkg/edifact"
)

type openRow struct {
	id  string
	row csvzip.Row
}

// ToCSV is an edifact.Handler that turns structural events into CSV rows.
//
// A branch row opens when its group is entered and receives an ID on the first
// matching segment; rows of groups where nothing matched are dropped. Leaf rows
// are collected as soon as their segment matches. The meta row is collected by
// Finish.
type ToCSV struct {
	p    *Plan
	out  csvzip.Collector
	meta csvzip.Row
	open map[string]*openRow
	next map[string]int
}

var _ edifact.Handler = (*ToCSV)(nil)

// NewToCSV creates a converter whose row IDs all start at 1.
func NewToCSV(p *Plan, out csvzip.Collector) *ToCSV {
	c := &ToCSV{
		p:    p,
		out:  out,
		meta: csvzip.Row{},
		open: make(map[string]*openRow),
		next: make(map[string]int),
	}
	for _, t := range p.tables {
		if !t.Meta {
			c.next[t.File] = 1
		}
	}
	return c
}

// NextIDs returns the next row ID of every non-meta table.
func (c *ToCSV) NextIDs() map[string]int {
	return maps.Clone(c.next)
}

// SetNextIDs overrides the next row IDs of the given tables. Unknown files are ignored.
func (c *ToCSV) SetNextIDs(ids map[string]int) {
	for file, id := range ids {
		if _, ok := c.next[file]; ok {
			c.next[file] = id
		}
	}
}

func (c *ToCSV) EnterBranch(b edifact.Branch) error {
	for _, t := range c.p.byBranch[b.Path] {
		c.open[t.File] = &openRow{row: csvzip.Row{}}
	}
	return nil
}

func (c *ToCSV) ExitBranch(path string) error {
	for _, t := range c.p.byBranch[path] {
		o := c.open[t.File]
		delete(c.open, t.File)
		if o == nil || o.id == "" {
			continue
		}
		if err := c.inherit(t, o.row); err != nil {
			return err
		}
		if err := c.out.Collect(t.File, o.row); err != nil {
			return err
		}
	}
	return nil
}

func (c *ToCSV) EnterLeaf(l *edifact.Leaf) error {
	for _, b := range c.p.bindings[l.Path] {
		if !matches(b.seg, l) {
			continue
		}
		t := b.table
		switch {
		case t.Meta:
			read(b.seg, l, c.meta)
		case t.Branch != "":
			o, err := c.ensure(t)
			if err != nil {
				return err
			}
			read(b.seg, l, o.row)
		default:
			row := csvzip.Row{t.ID: c.nextID(t)}
			if t.Parent != "" {
				parent, err := c.ensure(c.p.byFile[t.Parent])
				if err != nil {
					return err
				}
				row[c.p.byFile[t.Parent].ID] = parent.id
			}
			if err := c.inherit(t, row); err != nil {
				return err
			}
			read(b.seg, l, row)
			if err := c.out.Collect(t.File, row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *ToCSV) ExitLeaf(string) error { return nil }

// Finish collects the meta row and clears open rows so the converter can be reused.
func (c *ToCSV) Finish() error {
	meta := c.meta
	c.meta = csvzip.Row{}
	clear(c.open)
	return c.out.Collect(c.p.meta.File, meta)
}

// ensure assigns IDs to the open row of t and to its open ancestors.
func (c *ToCSV) ensure(t *Table) (*openRow, error) {
	o := c.open[t.File]
	if o == nil {
		return nil, fmt.Errorf("no open row for %s", t.File)
	}
	if o.id != "" {
		return o, nil
	}
	o.id = c.nextID(t)
	o.row[t.ID] = o.id
	if t.Parent != "" {
		pt := c.p.byFile[t.Parent]
		parent, err := c.ensure(pt)
		if err != nil {
			return nil, err
		}
		o.row[pt.ID] = parent.id
	}
	return o, nil
}

func (c *ToCSV) nextID(t *Table) string {
	id := c.next[t.File]
	c.next[t.File] = id + 1
	return strconv.Itoa(id)
}

func (c *ToCSV) inherit(t *Table, row csvzip.Row) error {
	if len(t.Inherit) == 0 {
		return nil
	}
	parent := c.open[t.Parent]
	if parent == nil {
		return fmt.Errorf("no open row for %s", t.Parent)
	}
	for col, pcol := range t.Inherit {
		row[col] = parent.row[pcol]
	}
	return nil
}

func matches(m *SegmentMap, l *edifact.Leaf) bool {
	for field, want := range m.When {
		if got, _ := l.Lookup(field); got != want {
			return false
		}
	}
	return true
}

// read copies the mapped fields of l into row.
func read(m *SegmentMap, l *edifact.Leaf, row csvzip.Row) {
	put := func(col, v string) {
		if prev, ok := row[col]; ok && m.Split != "" {
			v = prev + m.Split + v
		}
		row[col] = v
	}
	for col, field := range m.Columns {
		v, _ := l.Lookup(field)
		put(col, v)
	}
	for _, part := range m.Parts {
		v, _ := l.Lookup(part.Field)
		values := strings.SplitN(v, part.Sep, len(part.Columns))
		for i, col := range part.Columns {
			if i < len(values) {
				put(col, values[i])
			} else {
				put(col, "")
			}
		}
	}
}
