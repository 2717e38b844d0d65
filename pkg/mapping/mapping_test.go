package mapping_test

import (
	"testing"

	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/aretw0/merits/pkg/edifact"
	"github.com/aretw0/merits/pkg/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readStations(t *testing.T, p *mapping.Plan, message string) (*csvzip.MemoryCollector, *mapping.ToCSV) {
	t.Helper()
	out := csvzip.NewMemoryCollector(p.CSVTables()...)
	conv := mapping.NewToCSV(p, out)
	require.NoError(t, edifact.NewReader(p.Automaton()).ReadString(message, conv))
	require.NoError(t, conv.Finish())
	return out, conv
}

func TestToCSV(t *testing.T) {
	p := mustPlan(t)
	out, conv := readStations(t, p, stationMessage)

	assert.Equal(t, []csvzip.Row{
		{"reference": "R1", "valid_from": "20240101", "valid_to": "20241231"},
	}, out.Rows("META.csv"))
	assert.Equal(t, []csvzip.Row{
		{"stop_id": "1", "uic_code": "8000001", "name": "Berlin", "short_name": "BER", "reservation": "8099999"},
		{"stop_id": "2", "uic_code": "8000002", "name": "Hamburg"},
	}, out.Rows("STOP.csv"))
	assert.Equal(t, []csvzip.Row{
		{"synonym_id": "1", "stop_id": "1", "uic_code": "8000001", "language": "de", "synonym": "Berlin Hbf"},
		{"synonym_id": "2", "stop_id": "1", "uic_code": "8000001", "language": "en", "synonym": "Berlin Central"},
	}, out.Rows("SYNONYM.csv"))
	assert.Equal(t, []csvzip.Row{
		{"mct_id": "1", "stop_id": "1", "brand": "ICE", "provider": "DB", "minutes": "10"},
	}, out.Rows("MCT.csv"))
	assert.Equal(t, []csvzip.Row{
		{"footpath_id": "1", "stop_id": "1", "from_uic": "8000001", "to_uic": "8000002", "attributes": "A;B"},
	}, out.Rows("FOOTPATH.csv"))

	assert.Equal(t, map[string]int{
		"STOP.csv": 3, "SYNONYM.csv": 3, "MCT.csv": 2, "FOOTPATH.csv": 2,
	}, conv.NextIDs())
}

func TestToCSV_DropsUnmatchedGroups(t *testing.T) {
	p := mustPlan(t)
	message := "UIH+TSDUPD:1+R1'\nHDR+20240101'\n" +
		"ALS+8000001:::Berlin'\nRFR+ZZZ+1'\nRFR+AWN+8000002'\n" +
		"UIT+R1+6'\n"
	out, _ := readStations(t, p, message)

	footpaths := out.Rows("FOOTPATH.csv")
	require.Len(t, footpaths, 1)
	assert.Equal(t, "1", footpaths[0]["footpath_id"])
	assert.Equal(t, "8000002", footpaths[0]["to_uic"])

	meta := out.Rows("META.csv")
	require.Len(t, meta, 1)
	assert.Equal(t, "", meta[0]["valid_to"])
}

func TestToCSV_SetNextIDs(t *testing.T) {
	p := mustPlan(t)
	out := csvzip.NewMemoryCollector(p.CSVTables()...)
	conv := mapping.NewToCSV(p, out)
	conv.SetNextIDs(map[string]int{"STOP.csv": 100, "UNKNOWN.csv": 5})

	require.NoError(t, edifact.NewReader(p.Automaton()).ReadString(stationMessage, conv))
	require.NoError(t, conv.Finish())

	stops := out.Rows("STOP.csv")
	assert.Equal(t, "100", stops[0]["stop_id"])
	assert.Equal(t, "101", stops[1]["stop_id"])
	assert.Equal(t, "100", out.Rows("MCT.csv")[0]["stop_id"])
	assert.NotContains(t, conv.NextIDs(), "UNKNOWN.csv")
}

func TestRoundTrip(t *testing.T) {
	p := mustPlan(t)
	csvs, _ := readStations(t, p, stationMessage)

	files, err := csvzip.RowsFromStrings(csvs.CSVs())
	require.NoError(t, err)

	out := edifact.NewMemoryCollector()
	require.NoError(t, csvzip.NewReader(p.Hierarchy()).Read(files, mapping.NewToEdifact(p, out)))

	assert.Equal(t, stationMessage, out.String("\n"))
}

func TestToEdifact_Errors(t *testing.T) {
	p := mustPlan(t)

	t.Run("unknown file", func(t *testing.T) {
		conv := mapping.NewToEdifact(p, edifact.NewMemoryCollector())
		require.NoError(t, conv.Begin(csvzip.Row{"reference": "R1"}))
		assert.ErrorContains(t, conv.Row("NOPE.csv", csvzip.Row{}), "no table mapping")
	})

	t.Run("out of order", func(t *testing.T) {
		conv := mapping.NewToEdifact(p, edifact.NewMemoryCollector())
		require.NoError(t, conv.Begin(csvzip.Row{"reference": "R1"}))
		err := conv.Row("MCT.csv", csvzip.Row{"mct_id": "1", "brand": "ICE"})
		require.Error(t, err)
		assert.True(t, edifact.IsStructural(err))
	})

	t.Run("restart after failure", func(t *testing.T) {
		out := edifact.NewMemoryCollector()
		conv := mapping.NewToEdifact(p, out)
		require.NoError(t, conv.Begin(csvzip.Row{"reference": "R1"}))
		require.Error(t, conv.Row("MCT.csv", csvzip.Row{"mct_id": "1"}))

		require.NoError(t, conv.Begin(csvzip.Row{"reference": "R2"}))
		require.NoError(t, conv.Row("STOP.csv", csvzip.Row{"uic_code": "1"}))
		require.NoError(t, conv.End(csvzip.Row{"reference": "R2"}))
		assert.Equal(t, "UIT+R2+3'", out.Lines()[out.Count()-1])
	})
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tables []*mapping.Table) []*mapping.Table
		want   string
	}{
		{"no meta", func(ts []*mapping.Table) []*mapping.Table { return ts[1:] }, "no meta table"},
		{"duplicate file", func(ts []*mapping.Table) []*mapping.Table {
			return append(ts, ts[1])
		}, "duplicate table STOP.csv"},
		{"two kinds", func(ts []*mapping.Table) []*mapping.Table {
			ts[1].Leaf = "2_ALS/ALS"
			return ts
		}, "exactly one of meta, branch and leaf"},
		{"branch is a segment", func(ts []*mapping.Table) []*mapping.Table {
			ts[1].Branch = "2_ALS/ALS"
			return ts
		}, "branch 2_ALS/ALS is not a group"},
		{"unknown field", func(ts []*mapping.Table) []*mapping.Table {
			ts[3].Segments[0].Columns["brand"] = "colour"
			return ts
		}, `unknown field "colour"`},
		{"column not declared", func(ts []*mapping.Table) []*mapping.Table {
			ts[3].Segments[0].Columns["speed"] = "mct"
			return ts
		}, "column speed is not a field"},
		{"segment outside branch", func(ts []*mapping.Table) []*mapping.Table {
			ts[3].Segments[0].Path = "2_ALS/ALS"
			return ts
		}, "not inside branch 2_ALS/4_PRD"},
		{"field mapped twice", func(ts []*mapping.Table) []*mapping.Table {
			ts[0].Segments[0].Defaults = append(ts[0].Segments[0].Defaults, "reference")
			return ts
		}, "fields mapped more than once"},
		{"meta without position", func(ts []*mapping.Table) []*mapping.Table {
			ts[0].Segments[1].Position = ""
			return ts
		}, "meta segments need a position"},
		{"parent not enclosing", func(ts []*mapping.Table) []*mapping.Table {
			ts[3].Parent = "FOOTPATH.csv"
			return ts
		}, "not inside parent branch 2_ALS/5_RFR"},
		{"parent is a leaf table", func(ts []*mapping.Table) []*mapping.Table {
			ts[3].Parent = "SYNONYM.csv"
			return ts
		}, "parent SYNONYM.csv is not a branch table"},
		{"inherit unknown column", func(ts []*mapping.Table) []*mapping.Table {
			ts[2].Inherit["uic_code"] = "nope"
			return ts
		}, "inherited column nope is not a field of STOP.csv"},
		{"second root", func(ts []*mapping.Table) []*mapping.Table {
			ts[3].Parent = ""
			return ts
		}, "expected exactly one root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := edifact.Build(stationDefinition())
			require.NoError(t, err)
			_, err = mapping.Compile(a, tt.mutate(stationTables()))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompile_DefaultWithoutConstant(t *testing.T) {
	a, err := edifact.Build(stationDefinition())
	require.NoError(t, err)
	tables := stationTables()
	tables[1].Segments[0].Defaults = []string{"location_name"}
	delete(tables[1].Segments[0].Columns, "name")

	_, err = mapping.Compile(a, tables)
	assert.ErrorContains(t, err, `default for "location_name" has no constant`)
}
