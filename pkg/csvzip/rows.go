package csvzip

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/flate"
)

// ErrNoMoreRows is returned by Peek and Pop on an exhausted cursor.
var ErrNoMoreRows = errors.New("no more rows")

// Delimiter separates values in every file.
const Delimiter = ';'

// Row is one CSV record keyed by header.
type Row map[string]string

// Rows is a forward-only cursor over the records of one CSV file with one row of lookahead.
type Rows interface {
	Headers() []string
	HasMore() bool
	// Peek returns the next row without consuming it.
	Peek() (Row, error)
	// Pop returns the next row and consumes it.
	Pop() (Row, error)
}

// MemoryRows holds all rows in memory.
type MemoryRows struct {
	headers []string
	rows    []Row
}

// NewMemoryRows creates a cursor over rows.
func NewMemoryRows(headers []string, rows []Row) *MemoryRows {
	return &MemoryRows{headers: headers, rows: rows}
}

func (m *MemoryRows) Headers() []string { return slices.Clone(m.headers) }

func (m *MemoryRows) HasMore() bool { return len(m.rows) > 0 }

func (m *MemoryRows) Peek() (Row, error) {
	if len(m.rows) == 0 {
		return nil, ErrNoMoreRows
	}
	return m.rows[0], nil
}

func (m *MemoryRows) Pop() (Row, error) {
	if len(m.rows) == 0 {
		return nil, ErrNoMoreRows
	}
	row := m.rows[0]
	m.rows = m.rows[1:]
	return row, nil
}

// ReaderRows decodes records on demand from a CSV stream.
type ReaderRows struct {
	r       *csv.Reader
	headers []string
	next    Row
	err     error
}

// NewReaderRows reads the header of rd and buffers the first record.
func NewReaderRows(rd io.Reader) (*ReaderRows, error) {
	r := csv.NewReader(rd)
	r.Comma = Delimiter
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if err == io.EOF {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	rr := &ReaderRows{r: r, headers: headers}
	rr.fetch()
	return rr, nil
}

func (rr *ReaderRows) fetch() {
	record, err := rr.r.Read()
	if err == io.EOF {
		rr.next = nil
		return
	}
	if err != nil {
		rr.next = nil
		rr.err = fmt.Errorf("failed to read row: %w", err)
		return
	}
	row := make(Row, len(rr.headers))
	for i, h := range rr.headers {
		if i < len(record) {
			row[h] = record[i]
		} else {
			row[h] = ""
		}
	}
	rr.next = row
}

func (rr *ReaderRows) Headers() []string { return slices.Clone(rr.headers) }

// HasMore reports whether Peek would return a row or an error.
func (rr *ReaderRows) HasMore() bool { return rr.next != nil || rr.err != nil }

func (rr *ReaderRows) Peek() (Row, error) {
	if rr.err != nil {
		return nil, rr.err
	}
	if rr.next == nil {
		return nil, ErrNoMoreRows
	}
	return rr.next, nil
}

func (rr *ReaderRows) Pop() (Row, error) {
	row, err := rr.Peek()
	if err != nil {
		return nil, err
	}
	rr.fetch()
	return row, nil
}

// RowsFromString parses the content of one CSV file named name.
func RowsFromString(name, content string) (map[string]Rows, error) {
	return RowsFromStrings(map[string]string{name: content})
}

// RowsFromStrings parses several CSV files held in memory, keyed by file name.
func RowsFromStrings(files map[string]string) (map[string]Rows, error) {
	out := make(map[string]Rows, len(files))
	for name, content := range files {
		rows, err := NewReaderRows(strings.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = rows
	}
	return out, nil
}

// RowsFromFiles reads each file into memory and keys the cursors by base name.
func RowsFromFiles(paths ...string) (map[string]Rows, error) {
	out := make(map[string]Rows, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		rows, err := NewReaderRows(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out[filepath.Base(p)] = rows
	}
	return out, nil
}

// RowsFromDir reads every *.csv file in dir (extension case-insensitive).
// A non-empty names list restricts the files read.
func RowsFromDir(dir string, names ...string) (map[string]Rows, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return RowsFromFiles(paths...)
}

// RowsFromZip reads every CSV file stored in a ZIP archive.
func RowsFromZip(data []byte) (map[string]Rows, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)

	out := make(map[string]Rows)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		rows, err := NewReaderRows(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		out[f.Name] = rows
	}
	return out, nil
}
