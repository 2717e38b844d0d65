package csvzip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/samber/lo"
)

// Collector gathers rows for several CSV files.
type Collector interface {
	Collect(file string, row Row) error
}

// MemoryCollector keeps rows in memory per declared table.
type MemoryCollector struct {
	mu     sync.Mutex
	tables map[string]*Table
	order  []string
	rows   map[string][]Row
}

// NewMemoryCollector accepts rows for the given tables only. The header of each
// file follows the table's declared fields.
func NewMemoryCollector(tables ...*Table) *MemoryCollector {
	c := &MemoryCollector{
		tables: make(map[string]*Table, len(tables)),
		rows:   make(map[string][]Row, len(tables)),
	}
	for _, t := range tables {
		c.tables[t.File] = t
		c.order = append(c.order, t.File)
	}
	return c
}

func (c *MemoryCollector) Collect(file string, row Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[file]
	if !ok {
		return fmt.Errorf("no table declared for %s", file)
	}
	if extra := lo.Without(lo.Keys(row), t.Fields...); len(extra) > 0 {
		slices.Sort(extra)
		return fmt.Errorf("found in %s undeclared fields %v", file, extra)
	}
	c.rows[file] = append(c.rows[file], maps.Clone(row))
	return nil
}

// Rows returns a copy of the rows collected for file.
func (c *MemoryCollector) Rows(file string) []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.rows[file])
}

// Files returns the declared file names in declaration order.
func (c *MemoryCollector) Files() []string {
	return slices.Clone(c.order)
}

// CSV renders one file. A table without rows yields only the header.
func (c *MemoryCollector) CSV(file string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[file]
	if !ok {
		return "", fmt.Errorf("no table declared for %s", file)
	}
	return Format(t.Fields, c.rows[file]), nil
}

// CSVs renders every declared file.
func (c *MemoryCollector) CSVs() map[string]string {
	out := make(map[string]string, len(c.order))
	for _, file := range c.order {
		text, _ := c.CSV(file)
		out[file] = text
	}
	return out
}

// Zip packs every declared file into one archive.
func (c *MemoryCollector) Zip() ([]byte, error) {
	return Zip(c.CSVs())
}

// Zip packs files into a deflate-compressed archive with entries in name order.
func Zip(files map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	for _, name := range slices.Sorted(maps.Keys(files)) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := io.WriteString(w, files[name]); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// MappingCollector renames the columns of each row before passing it on.
type MappingCollector struct {
	next    Collector
	mapping map[string]map[string]string
}

// NewMappingCollector wraps next. mapping goes file → row key → column name.
func NewMappingCollector(next Collector, mapping map[string]map[string]string) *MappingCollector {
	if mapping == nil {
		mapping = make(map[string]map[string]string)
	}
	return &MappingCollector{next: next, mapping: mapping}
}

// AddMapping sets the column mapping of one file.
func (m *MappingCollector) AddMapping(file string, columns map[string]string) {
	m.mapping[file] = columns
}

func (m *MappingCollector) Collect(file string, row Row) error {
	columns, ok := m.mapping[file]
	if !ok || len(columns) == 0 {
		return fmt.Errorf("no mapping for %s", file)
	}
	if missing := lo.Without(lo.Keys(row), lo.Keys(columns)...); len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("no mapping in %s for keys %v", file, missing)
	}
	mapped := make(Row, len(row))
	for k, v := range row {
		mapped[columns[k]] = v
	}
	return m.next.Collect(file, mapped)
}
