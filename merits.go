package merits

import (
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/aretw0/merits/pkg/edifact"
	"github.com/aretw0/merits/pkg/family"
	"github.com/aretw0/merits/pkg/mapping"
	"github.com/aretw0/merits/pkg/observability"
	"github.com/aretw0/merits/pkg/ports"
)

// DefaultLockTTL bounds how long a multi-message run holds its sequence lock.
const DefaultLockTTL = 30 * time.Second

// Converter converts messages of one family.
// It is safe for concurrent use; every call works on its own state.
type Converter struct {
	fam     *family.Family
	a       *edifact.Automaton
	plan    *mapping.Plan
	planErr error

	logger   *slog.Logger
	metrics  *observability.Metrics
	store    ports.SequenceStore
	locker   ports.Locker
	lockTTL  time.Duration
	sep      string
	startIDs map[string]int
}

// Option defines a functional option for configuring the Converter.
type Option func(*Converter)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithMetrics records every conversion in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Converter) {
		c.metrics = m
	}
}

// WithSequenceStore keeps row ID sequences between multi-message runs.
func WithSequenceStore(s ports.SequenceStore) Option {
	return func(c *Converter) {
		c.store = s
	}
}

// WithLocker guards the sequences of a key while a run uses them.
func WithLocker(l ports.Locker) Option {
	return func(c *Converter) {
		c.locker = l
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *Converter) {
		c.lockTTL = ttl
	}
}

// WithLineSeparator sets what follows every written segment (default "\n").
func WithLineSeparator(sep string) Option {
	return func(c *Converter) {
		c.sep = sep
	}
}

// WithStartIDs sets the first row ID of the given tables when no stored
// sequence applies.
func WithStartIDs(ids map[string]int) Option {
	return func(c *Converter) {
		c.startIDs = maps.Clone(ids)
	}
}

// New creates a converter for fam. A family without tables can still be
// parsed; only the CSV conversions fail, with family.ErrNoTables.
func New(fam *family.Family, opts ...Option) (*Converter, error) {
	a, err := fam.Automaton()
	if err != nil {
		return nil, err
	}
	c := &Converter{
		fam:     fam,
		a:       a,
		lockTTL: DefaultLockTTL,
		sep:     "\n",
	}
	c.plan, c.planErr = fam.Plan()

	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.logger = c.logger.With("family", fam.Name)
	return c, nil
}

// Family returns the converted family.
func (c *Converter) Family() *family.Family {
	return c.fam
}

// Automaton returns the automaton of the family.
func (c *Converter) Automaton() *edifact.Automaton {
	return c.a
}

// Plan returns the table plan, or the reason the family has none.
func (c *Converter) Plan() (*mapping.Plan, error) {
	return c.plan, c.planErr
}
