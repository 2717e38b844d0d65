package merits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/aretw0/merits/pkg/edifact"
	"github.com/aretw0/merits/pkg/mapping"
	"github.com/aretw0/merits/pkg/observability"
	"github.com/aretw0/merits/pkg/ports"
)

// CSVResult holds the CSV files produced from one or more messages.
type CSVResult struct {
	// Files maps a file name to its CSV text, header included.
	Files map[string]string
	// Order lists the file names in table declaration order.
	Order []string
	// RowCounts maps a file name to its number of data rows.
	RowCounts map[string]int
	// NextIDs holds the next free row ID of every table.
	NextIDs map[string]int
	// Segments counts the segments read.
	Segments int
}

// Zip packs the files into one archive.
func (r *CSVResult) Zip() ([]byte, error) {
	return csvzip.Zip(r.Files)
}

// Rows opens the files for reading, e.g. to convert them back.
func (r *CSVResult) Rows() (map[string]csvzip.Rows, error) {
	return csvzip.RowsFromStrings(r.Files)
}

// Parse validates text against the family and reports its structure to h.
func (c *Converter) Parse(ctx context.Context, text string, h edifact.Handler) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.ObserveConversion(observability.DirectionParse, c.fam.Name, started, err)
	}()
	return c.read(ctx, text, h)
}

func (c *Converter) read(ctx context.Context, text string, h edifact.Handler) error {
	h = c.metrics.Instrument(&ctxHandler{Handler: h, ctx: ctx}, c.fam.Name)
	r := edifact.NewReader(c.a, edifact.WithReaderLogger(c.logger))
	return r.ReadString(text, h)
}

// EdifactToCSV converts one message. Row IDs start at 1 unless WithStartIDs
// says otherwise.
func (c *Converter) EdifactToCSV(ctx context.Context, text string) (*CSVResult, error) {
	return c.toCSV(ctx, []string{text}, c.startIDs)
}

// EdifactToCSVMulti converts several messages into one set of tables.
// Row IDs continue from message to message. With a SequenceStore the run
// starts from the sequences saved under key and saves where it ended; the
// Locker, if any, is held for the whole run.
func (c *Converter) EdifactToCSVMulti(ctx context.Context, key string, texts []string) (*CSVResult, error) {
	if c.store == nil {
		return c.toCSV(ctx, texts, c.startIDs)
	}
	if key == "" {
		return nil, errors.New("a sequence key is required with a sequence store")
	}

	if c.locker != nil {
		unlock, err := c.locker.Lock(ctx, key, c.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock sequences %s: %w", key, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				c.logger.Warn("failed to unlock sequences", "key", key, "error", err)
			}
		}()
	}

	ids, err := c.store.Load(ctx, key)
	switch {
	case errors.Is(err, ports.ErrSequenceNotFound):
		ids = c.startIDs
		c.logger.Debug("no stored sequences", "key", key)
	case err != nil:
		return nil, fmt.Errorf("failed to load sequences %s: %w", key, err)
	}

	res, err := c.toCSV(ctx, texts, ids)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, key, res.NextIDs); err != nil {
		return nil, fmt.Errorf("failed to save sequences %s: %w", key, err)
	}
	return res, nil
}

func (c *Converter) toCSV(ctx context.Context, texts []string, ids map[string]int) (res *CSVResult, err error) {
	started := time.Now()
	defer func() {
		c.metrics.ObserveConversion(observability.DirectionToCSV, c.fam.Name, started, err)
	}()
	if c.planErr != nil {
		return nil, c.planErr
	}

	out := csvzip.NewMemoryCollector(c.plan.CSVTables()...)
	conv := mapping.NewToCSV(c.plan, out)
	conv.SetNextIDs(ids)
	counter := &segmentCounter{Handler: conv}

	for i, text := range texts {
		if err := c.read(ctx, text, counter); err != nil {
			return nil, c.messageErr(len(texts), i, err)
		}
		if err := conv.Finish(); err != nil {
			return nil, c.messageErr(len(texts), i, err)
		}
	}

	res = &CSVResult{
		Files:     out.CSVs(),
		Order:     out.Files(),
		RowCounts: make(map[string]int),
		NextIDs:   conv.NextIDs(),
		Segments:  counter.n,
	}
	for _, file := range res.Order {
		n := len(out.Rows(file))
		res.RowCounts[file] = n
		c.metrics.AddRows(c.fam.Name, file, n)
	}
	c.logger.Info("converted to csv",
		"messages", len(texts),
		"segments", res.Segments,
		"rows", res.RowCounts,
		"duration", time.Since(started),
	)
	return res, nil
}

func (c *Converter) messageErr(total, i int, err error) error {
	if total == 1 {
		return err
	}
	return fmt.Errorf("message %d: %w", i+1, err)
}

// CSVToEdifact writes the message held by files, one CSV per table of the family.
func (c *Converter) CSVToEdifact(ctx context.Context, files map[string]csvzip.Rows) (text string, err error) {
	started := time.Now()
	defer func() {
		c.metrics.ObserveConversion(observability.DirectionToEdifact, c.fam.Name, started, err)
	}()
	if c.planErr != nil {
		return "", c.planErr
	}

	out := edifact.NewMemoryCollector()
	h := &rowCounter{Handler: mapping.NewToEdifact(c.plan, out), ctx: ctx, counts: make(map[string]int)}
	if err := csvzip.NewReader(c.plan.Hierarchy()).Read(files, h); err != nil {
		return "", err
	}

	for file, n := range h.counts {
		c.metrics.AddRows(c.fam.Name, file, n)
	}
	c.metrics.AddSegments(c.fam.Name, out.Count())
	c.logger.Info("converted to edifact",
		"segments", out.Count(),
		"rows", h.counts,
		"duration", time.Since(started),
	)
	return out.String(c.sep), nil
}

// ctxHandler stops a parse once ctx is done.
type ctxHandler struct {
	edifact.Handler
	ctx context.Context
}

func (h *ctxHandler) EnterLeaf(l *edifact.Leaf) error {
	if err := h.ctx.Err(); err != nil {
		return err
	}
	return h.Handler.EnterLeaf(l)
}

type segmentCounter struct {
	edifact.Handler
	n int
}

func (s *segmentCounter) EnterLeaf(l *edifact.Leaf) error {
	s.n++
	return s.Handler.EnterLeaf(l)
}

// rowCounter counts rows per file and stops once ctx is done.
type rowCounter struct {
	csvzip.Handler
	ctx    context.Context
	counts map[string]int
}

func (r *rowCounter) Row(file string, row csvzip.Row) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.counts[file]++
	return r.Handler.Row(file, row)
}
