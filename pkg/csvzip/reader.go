package csvzip

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Handler receives the rows of a Hierarchy in parent-then-children order.
type Handler interface {
	// Begin is called first with the metadata row.
	Begin(meta Row) error
	Row(file string, row Row) error
	// End is called last with the same metadata row.
	End(meta Row) error
}

// Reader walks a set of CSV files according to a Hierarchy.
type Reader struct {
	h *Hierarchy
}

func NewReader(h *Hierarchy) *Reader {
	return &Reader{h: h}
}

// Read checks file and field names, then forwards every row to handler.
// Rows of a child table must be grouped under their parent row in the same
// order as the parent table; a row left unconsumed is reported as an orphan.
func (r *Reader) Read(files map[string]Rows, handler Handler) error {
	expected := r.h.Files()
	missing, extra := lo.Difference(expected, lo.Keys(files))
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing files %v", missing)
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return fmt.Errorf("unexpected files %v", extra)
	}
	for _, t := range r.h.Tables() {
		if err := t.CheckFields(files[t.File].Headers()); err != nil {
			return err
		}
	}

	meta, err := files[r.h.Meta().File].Peek()
	if errors.Is(err, ErrNoMoreRows) {
		return fmt.Errorf("metadata file %s has no rows", r.h.Meta().File)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", r.h.Meta().File, err)
	}

	if err := handler.Begin(meta); err != nil {
		return err
	}
	if err := r.read("", r.h.Root(), files, handler); err != nil {
		return err
	}
	for _, t := range r.h.Tables() {
		if t == r.h.Meta() || !files[t.File].HasMore() {
			continue
		}
		row, err := files[t.File].Peek()
		if err != nil {
			return fmt.Errorf("%s: %w", t.File, err)
		}
		return fmt.Errorf("%s: row %s=%q has no parent %s=%q in %s",
			t.File, t.ID, row[t.ID], t.Parent.ID, row[t.Parent.ID], t.Parent.File)
	}
	return handler.End(meta)
}

func (r *Reader) read(parentID string, t *Table, files map[string]Rows, handler Handler) error {
	rows := files[t.File]
	for rows.HasMore() {
		row, err := rows.Peek()
		if err != nil {
			return fmt.Errorf("%s: %w", t.File, err)
		}
		if t.Parent != nil && row[t.Parent.ID] != parentID {
			return nil
		}
		if _, err := rows.Pop(); err != nil {
			return fmt.Errorf("%s: %w", t.File, err)
		}
		if err := handler.Row(t.File, row); err != nil {
			return fmt.Errorf("%s %s=%q: %w", t.File, t.ID, row[t.ID], err)
		}
		for _, child := range r.h.Children(t.File) {
			if err := r.read(row[t.ID], child, files, handler); err != nil {
				return err
			}
		}
	}
	return nil
}
