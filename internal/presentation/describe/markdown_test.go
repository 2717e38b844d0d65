package describe_test

import (
	"testing"

	"github.com/aretw0/merits/internal/presentation/describe"
	"github.com/aretw0/merits/pkg/family"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown_Builtin(t *testing.T) {
	reg, err := family.Builtin()
	require.NoError(t, err)

	md, err := describe.Markdown(reg.MustGet("TSDUPD"))
	require.NoError(t, err)

	for _, want := range []string{
		"# TSDUPD (version demo-1)",
		"| `'` | `+*:` | `?` |",
		"| &nbsp;&nbsp;2_ALS/ALS | 0110 | 1 | 1 |",
		"### TSDUPD_SYNONYM.csv",
		"- Rows: one row per segment `2_ALS/IFT`",
		"- Parent: TSDUPD_STOP.csv",
		"- `uic_code` copies the parent's `uic_code`",
		"| 2_ALS/POP | header | period_qualifier=273 | `valid_from`, `valid_to` ← first_day_last_day split by `/` |",
		"| 2_ALS/5_RFR/RFR | trailer | reference_function_code=X01 | `reservation_code` ← uic_code |",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdown_WithoutTables(t *testing.T) {
	f, err := family.Parse([]byte("name: BARE\nversion: '2'\nstructure:\n  - { name: HDR, min: 1, format: 'HDR+x' }\n"))
	require.NoError(t, err)

	md, err := describe.Markdown(f)
	require.NoError(t, err)
	assert.Contains(t, md, "# BARE (version 2)")
	assert.Contains(t, md, "`HDR+x`")
	assert.Contains(t, md, "This family declares no CSV tables.")
}
