/*
Package merits converts railway timetable messages between their segment
stream form (EDIFACT-style text) and a set of related CSV tables.

A message family (see pkg/family) declares the segment tree of a message
type, the inline template of every segment and the CSV tables its content
maps to. The Converter drives both directions:

  - EdifactToCSV parses a message and returns one CSV file per table.
  - CSVToEdifact reads the CSV files, parent rows before their children,
    and writes the message back.
  - EdifactToCSVMulti converts several messages into one table set and keeps
    the row numbering in a ports.SequenceStore between runs.

# Usage

	reg, err := family.Builtin()
	if err != nil {
		log.Fatal(err)
	}
	conv, err := merits.New(reg.MustGet("TSDUPD"), merits.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	res, err := conv.EdifactToCSV(ctx, text)
	if err != nil {
		log.Fatal(err)
	}
	zipped, err := res.Zip()

Every conversion is logged through log/slog and, when WithMetrics is given,
recorded in Prometheus collectors.
*/
package merits
