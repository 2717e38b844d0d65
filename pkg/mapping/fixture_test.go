package mapping_test

import (
	"testing"

	"github.com/aretw0/merits/pkg/edifact"
	"github.com/aretw0/merits/pkg/mapping"
	"github.com/stretchr/testify/require"
)

func stationDefinition() *edifact.Definition {
	return &edifact.Definition{
		Version: "station-test",
		Root: &edifact.Node{ID: "0000", Name: "root", Min: 1, Max: 1, Children: []*edifact.Node{
			{ID: "0010", Name: "UIH", Min: 1, Max: 1},
			{ID: "0020", Name: "HDR", Min: 1, Max: 1},
			{ID: "0100", Name: "2_ALS", Min: 0, Max: 99, Children: []*edifact.Node{
				{ID: "0110", Name: "ALS", Min: 1, Max: 1},
				{ID: "0120", Name: "IFT", Min: 0, Max: 99},
				{ID: "0200", Name: "4_PRD", Min: 0, Max: 99, Children: []*edifact.Node{
					{ID: "0210", Name: "PRD", Min: 1, Max: 1},
				}},
				{ID: "0300", Name: "5_RFR", Min: 0, Max: 99, Children: []*edifact.Node{
					{ID: "0310", Name: "RFR", Min: 1, Max: 1},
					{ID: "0320", Name: "SER", Min: 0, Max: 99},
				}},
			}},
			{ID: "0900", Name: "UIT", Min: 1, Max: 1},
		}},
		Segments: []edifact.Segment{
			{NodeID: "0010", Format: "UIH+message_type=TSDUPD:version=1+reference"},
			{NodeID: "0020", Format: "HDR+validity"},
			{NodeID: "0110", Format: "ALS+uic_code:::location_name"},
			{NodeID: "0120", Format: "IFT+text_subject_code+language+text"},
			{NodeID: "0210", Format: "PRD+brand*provider+mct"},
			{NodeID: "0310", Format: "RFR+reference_code+uic_code"},
			{NodeID: "0320", Format: "SER+ser_code"},
			{NodeID: "0900", Format: "UIT+reference+segment_count"},
		},
		Config: edifact.DefaultConfig(),
	}
}

func stationTables() []*mapping.Table {
	return []*mapping.Table{
		{
			File: "META.csv", ID: "reference", Meta: true,
			Fields: []string{"reference", "valid_from", "valid_to"},
			Segments: []mapping.SegmentMap{
				{Path: "UIH", Position: mapping.PositionHeader,
					Columns: map[string]string{"reference": "reference"}, Defaults: []string{"message_type", "version"}},
				{Path: "HDR", Position: mapping.PositionHeader,
					Parts: []mapping.Part{{Field: "validity", Sep: "/", Columns: []string{"valid_from", "valid_to"}}}},
				{Path: "UIT", Position: mapping.PositionTrailer,
					Values: map[string]string{"reference": "${meta.reference}", "segment_count": "${segment_count}"}},
			},
		},
		{
			File: "STOP.csv", ID: "stop_id", Branch: "2_ALS",
			Fields: []string{"stop_id", "uic_code", "name", "short_name", "reservation"},
			Segments: []mapping.SegmentMap{
				{Path: "2_ALS/ALS", Columns: map[string]string{"uic_code": "uic_code", "name": "location_name"}},
				{Path: "2_ALS/IFT", Optional: true,
					When: map[string]string{"text_subject_code": "X02"}, Columns: map[string]string{"short_name": "text"}},
				{Path: "2_ALS/5_RFR/RFR", Optional: true, Position: mapping.PositionTrailer,
					When: map[string]string{"reference_code": "X01"}, Columns: map[string]string{"reservation": "uic_code"}},
			},
		},
		{
			File: "SYNONYM.csv", ID: "synonym_id", Parent: "STOP.csv", Leaf: "2_ALS/IFT",
			Fields:  []string{"synonym_id", "stop_id", "uic_code", "language", "synonym"},
			Inherit: map[string]string{"uic_code": "uic_code"},
			Segments: []mapping.SegmentMap{
				{Path: "2_ALS/IFT", When: map[string]string{"text_subject_code": "AGW"},
					Columns: map[string]string{"language": "language", "synonym": "text"}},
			},
		},
		{
			File: "MCT.csv", ID: "mct_id", Parent: "STOP.csv", Branch: "2_ALS/4_PRD",
			Fields: []string{"mct_id", "stop_id", "brand", "provider", "minutes"},
			Segments: []mapping.SegmentMap{
				{Path: "2_ALS/4_PRD/PRD", Columns: map[string]string{"brand": "brand", "provider": "provider", "minutes": "mct"}},
			},
		},
		{
			File: "FOOTPATH.csv", ID: "footpath_id", Parent: "STOP.csv", Branch: "2_ALS/5_RFR",
			Fields:  []string{"footpath_id", "stop_id", "from_uic", "to_uic", "attributes"},
			Inherit: map[string]string{"from_uic": "uic_code"},
			Segments: []mapping.SegmentMap{
				{Path: "2_ALS/5_RFR/RFR", When: map[string]string{"reference_code": "AWN"},
					Columns: map[string]string{"to_uic": "uic_code"}},
				{Path: "2_ALS/5_RFR/SER", Split: ";", Optional: true,
					Columns: map[string]string{"attributes": "ser_code"}},
			},
		},
	}
}

const stationMessage = `UIH+TSDUPD:1+R1'
HDR+20240101/20241231'
ALS+8000001:::Berlin'
IFT+X02++BER'
IFT+AGW+de+Berlin Hbf'
IFT+AGW+en+Berlin Central'
PRD+ICE*DB+10'
RFR+AWN+8000002'
SER+A'
SER+B'
RFR+X01+8099999'
ALS+8000002:::Hamburg'
UIT+R1+12'
`

func mustPlan(t *testing.T) *mapping.Plan {
	t.Helper()
	a, err := edifact.Build(stationDefinition())
	require.NoError(t, err)
	p, err := mapping.Compile(a, stationTables())
	require.NoError(t, err)
	return p
}
