/*
Package edifact is the schema-driven segment stream engine.

A message family is described by a Definition: a tree of Nodes (groups and
segments), one Segment template per non-group node, and the Config holding the
control characters. Build compiles a Definition into an Automaton, an arena of
States linked by precomputed Transitions keyed by the 3 character segment tag.

# Key Types

  - Format: a compiled segment template. It decodes a wire line into a Leaf and
    encodes a Leaf back into a wire line.
  - Automaton: the immutable state graph. It can be shared across goroutines.
  - Machine: a cursor over an Automaton. One per run.
  - Reader: parses a segment stream and reports structural events to a Handler.
  - Writer: turns (path, values) pairs into wire lines, checking that each
    segment is allowed at the current position.
  - Collector: a sink for produced wire lines.

Readers, Writers and Machines hold per-run state and must not be shared between
concurrent runs. After a failed run they must be discarded.
*/
package edifact
