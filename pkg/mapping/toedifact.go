package mapping

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/aretw0/merits/pkg/edifact"
	"github.com/samber/lo"
)

type pendingRow struct {
	table *Table
	row   csvzip.Row
}

// ToEdifact is a csvzip.Handler that writes segments for every row it receives.
//
// Header segments of a row are written immediately; trailer segments are held
// until every child row has been written.
type ToEdifact struct {
	p       *Plan
	w       *edifact.Writer
	out     edifact.Collector
	meta    csvzip.Row
	pending []pendingRow
	count   int
}

var _ csvzip.Handler = (*ToEdifact)(nil)

func NewToEdifact(p *Plan, out edifact.Collector) *ToEdifact {
	return &ToEdifact{
		p:   p,
		w:   edifact.NewWriter(p.a),
		out: out,
	}
}

func (e *ToEdifact) Begin(meta csvzip.Row) error {
	e.w.Reset()
	e.meta = meta
	e.pending = e.pending[:0]
	e.count = 0
	return e.writeAll(e.p.meta, meta, false)
}

func (e *ToEdifact) Row(file string, row csvzip.Row) error {
	t, ok := e.p.byFile[file]
	if !ok || t.Meta {
		return fmt.Errorf("no table mapping for %s", file)
	}
	if err := e.flush(t); err != nil {
		return err
	}
	if err := e.writeAll(t, row, false); err != nil {
		return err
	}
	e.pending = append(e.pending, pendingRow{table: t, row: row})
	return nil
}

func (e *ToEdifact) End(meta csvzip.Row) error {
	if err := e.flush(nil); err != nil {
		return err
	}
	if err := e.writeAll(e.p.meta, meta, true); err != nil {
		return err
	}
	return e.w.Finish()
}

// flush writes the trailers of pending rows that are not ancestors of next.
func (e *ToEdifact) flush(next *Table) error {
	for len(e.pending) > 0 {
		top := e.pending[len(e.pending)-1]
		if next != nil && e.p.isAncestor(top.table, next) {
			return nil
		}
		e.pending = e.pending[:len(e.pending)-1]
		if err := e.writeAll(top.table, top.row, true); err != nil {
			return err
		}
	}
	return nil
}

func (e *ToEdifact) writeAll(t *Table, row csvzip.Row, trailer bool) error {
	for i := range t.Segments {
		m := &t.Segments[i]
		if m.trailer() != trailer {
			continue
		}
		if err := e.write(m, row); err != nil {
			return fmt.Errorf("%s: %w", t.File, err)
		}
	}
	return nil
}

func (e *ToEdifact) write(m *SegmentMap, row csvzip.Row) error {
	cols := m.columns()
	empty := lo.EveryBy(cols, func(col string) bool { return row[col] == "" })
	if m.Optional && empty {
		return nil
	}

	n := 1
	parts := make(map[string][]string)
	if m.Split != "" {
		for _, col := range cols {
			parts[col] = lo.Compact(strings.Split(row[col], m.Split))
			n = max(n, len(parts[col]))
		}
		if empty {
			n = 0
		}
	}
	value := func(col string, i int) string {
		if m.Split == "" {
			return row[col]
		}
		if i < len(parts[col]) {
			return parts[col][i]
		}
		return ""
	}

	for i := 0; i < n; i++ {
		values := make(map[string]string)
		for field, c := range m.When {
			values[field] = c
		}
		for col, field := range m.Columns {
			if v := value(col, i); v != "" {
				values[field] = v
			}
		}
		for _, part := range m.Parts {
			comps := lo.Map(part.Columns, func(col string, _ int) string { return value(col, i) })
			for len(comps) > 0 && comps[len(comps)-1] == "" {
				comps = comps[:len(comps)-1]
			}
			if len(comps) > 0 {
				values[part.Field] = strings.Join(comps, part.Sep)
			}
		}
		for field, tmpl := range m.Values {
			if v := os.Expand(tmpl, e.lookup(row)); v != "" {
				values[field] = v
			}
		}
		line, err := e.w.WriteSegment(m.Path, values, m.Defaults)
		if err != nil {
			return err
		}
		e.out.Collect(line)
		e.count++
	}
	return nil
}

func (e *ToEdifact) lookup(row csvzip.Row) func(string) string {
	return func(key string) string {
		switch {
		case key == "segment_count":
			return strconv.Itoa(e.count)
		case strings.HasPrefix(key, "meta."):
			return e.meta[strings.TrimPrefix(key, "meta.")]
		default:
			return row[key]
		}
	}
}
