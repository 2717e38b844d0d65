package edifact

import (
	"strings"
	"sync"
)

// Collector receives produced wire lines.
type Collector interface {
	// Collect stores one line. Line breaks are removed.
	Collect(line string)
	// Count returns the number of collected lines.
	Count() int
	// Lines returns the collected lines in order.
	Lines() []string
}

// MemoryCollector keeps all lines in memory. Safe for concurrent use.
type MemoryCollector struct {
	mu    sync.Mutex
	lines []string
}

// NewMemoryCollector creates an empty collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

func (c *MemoryCollector) Collect(line string) {
	line = strings.NewReplacer("\n", "", "\r", "").Replace(line)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *MemoryCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *MemoryCollector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// String joins the lines, each followed by sep.
func (c *MemoryCollector) String(sep string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for _, line := range c.lines {
		b.WriteString(line)
		b.WriteString(sep)
	}
	return b.String()
}
