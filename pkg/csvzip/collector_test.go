package csvzip_test

import (
	"testing"

	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCollector(t *testing.T) {
	meta, stop, _, mct := stopTables()
	c := csvzip.NewMemoryCollector(meta, stop, mct)

	require.NoError(t, c.Collect("STOP.csv", csvzip.Row{"uic_code": "8000001", "stop_id": "1"}))
	require.NoError(t, c.Collect("META.csv", csvzip.Row{"reference": "R1"}))

	got, err := c.CSV("STOP.csv")
	require.NoError(t, err)
	assert.Equal(t, "\"stop_id\";\"uic_code\"\n\"1\";\"8000001\"\n", got)

	empty, err := c.CSV("MCT.csv")
	require.NoError(t, err)
	assert.Equal(t, "\"mct_id\";\"stop_id\";\"minutes\"\n", empty)

	assert.Equal(t, []string{"META.csv", "STOP.csv", "MCT.csv"}, c.Files())
	assert.Len(t, c.CSVs(), 3)

	assert.ErrorContains(t, c.Collect("NOPE.csv", csvzip.Row{}), "no table declared")
	assert.ErrorContains(t, c.Collect("STOP.csv", csvzip.Row{"bogus": "1"}), "undeclared fields [bogus]")
	_, err = c.CSV("NOPE.csv")
	assert.Error(t, err)
}

func TestMemoryCollector_Zip(t *testing.T) {
	meta, stop, _, _ := stopTables()
	c := csvzip.NewMemoryCollector(meta, stop)
	require.NoError(t, c.Collect("META.csv", csvzip.Row{"reference": "R1", "version": "1"}))

	data, err := c.Zip()
	require.NoError(t, err)

	rows, err := csvzip.RowsFromZip(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.False(t, rows["STOP.csv"].HasMore())
	r, err := rows["META.csv"].Pop()
	require.NoError(t, err)
	assert.Equal(t, csvzip.Row{"reference": "R1", "version": "1"}, r)
}

func TestMappingCollector(t *testing.T) {
	_, stop, _, _ := stopTables()
	mem := csvzip.NewMemoryCollector(stop)
	m := csvzip.NewMappingCollector(mem, nil)

	assert.ErrorContains(t, m.Collect("STOP.csv", csvzip.Row{"id": "1"}), "no mapping for STOP.csv")

	m.AddMapping("STOP.csv", map[string]string{"id": "stop_id", "uic": "uic_code"})
	require.NoError(t, m.Collect("STOP.csv", csvzip.Row{"id": "1", "uic": "8000001"}))
	assert.Equal(t, []csvzip.Row{{"stop_id": "1", "uic_code": "8000001"}}, mem.Rows("STOP.csv"))

	assert.ErrorContains(t, m.Collect("STOP.csv", csvzip.Row{"id": "2", "name": "x"}), "keys [name]")
}
