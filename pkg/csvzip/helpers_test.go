package csvzip_test

import (
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/merits/pkg/csvzip"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func keys(m map[string]csvzip.Rows) []string {
	return slices.Sorted(maps.Keys(m))
}

// stopTables mirrors a small timetable: stops with synonyms and connections.
func stopTables() (meta, stop, synonym, mct *csvzip.Table) {
	meta = &csvzip.Table{File: "META.csv", ID: "reference", Fields: []string{"reference", "version"}}
	stop = &csvzip.Table{File: "STOP.csv", ID: "stop_id", Fields: []string{"stop_id", "uic_code"}}
	synonym = &csvzip.Table{File: "SYNONYM.csv", ID: "synonym_id", Parent: stop, Fields: []string{"synonym_id", "stop_id", "name"}}
	mct = &csvzip.Table{File: "MCT.csv", ID: "mct_id", Parent: stop, Fields: []string{"mct_id", "stop_id", "minutes"}}
	return
}

type recorder struct {
	events []string
	failOn string
}

func (r *recorder) Begin(meta csvzip.Row) error {
	r.events = append(r.events, "begin "+meta["reference"])
	return nil
}

func (r *recorder) Row(file string, row csvzip.Row) error {
	if file == r.failOn {
		return io.ErrUnexpectedEOF
	}
	id := ""
	for _, k := range []string{"mct_id", "synonym_id", "stop_id"} {
		if v, ok := row[k]; ok {
			id = v
			break
		}
	}
	r.events = append(r.events, file+" "+id)
	return nil
}

func (r *recorder) End(meta csvzip.Row) error {
	r.events = append(r.events, "end "+meta["reference"])
	return nil
}
