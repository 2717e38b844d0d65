package edifact_test

import (
	"strings"
	"testing"

	"github.com/aretw0/merits/pkg/edifact"
	"github.com/stretchr/testify/require"
)

// stopsDefinition is a reduced station message: a header, repeatable stop
// groups with an optional nested group, and a trailer.
func stopsDefinition() *edifact.Definition {
	return &edifact.Definition{
		Version: "stops-test",
		Root: &edifact.Node{ID: "0000", Name: "root", Min: 1, Max: 1, Children: []*edifact.Node{
			{ID: "0010", Name: "UIH", Min: 1, Max: 1},
			{ID: "0100", Name: "2_ALS", Min: 0, Max: 99, Children: []*edifact.Node{
				{ID: "0110", Name: "ALS", Min: 1, Max: 1},
				{ID: "0120", Name: "POP", Min: 0, Max: 99},
				{ID: "0130", Name: "IFT", Min: 0, Max: 99},
				{ID: "0200", Name: "4_PRD", Min: 0, Max: 99, Children: []*edifact.Node{
					{ID: "0210", Name: "PRD", Min: 1, Max: 1},
				}},
			}},
			{ID: "0900", Name: "UIT", Min: 1, Max: 1},
		}},
		Segments: []edifact.Segment{
			{NodeID: "0010", Format: "UIH+message_type=TSDUPD:version+reference"},
			{NodeID: "0110", Format: "ALS+function_code+uic_code:::location_name"},
			{NodeID: "0120", Format: "POP+period_qualifier:first_last"},
			{NodeID: "0130", Format: "IFT+text_subject_code+language+text"},
			{NodeID: "0210", Format: "PRD+brand*provider+mct"},
			{NodeID: "0900", Format: "UIT+reference+segment_count"},
		},
		Config: edifact.DefaultConfig(),
	}
}

const stopsMessage = `UIH+TSDUPD:1+REF1'
ALS+1+8000001:::Berlin'
POP+273:20240101/20241231'
IFT+AGW+de+Berlin Hbf'
PRD+ICE*DB+10'
PRD+IC*DB+5'
ALS+1+8000002:::Hamburg'

UIT+REF1+8'
`

func mustBuild(t *testing.T, def *edifact.Definition) *edifact.Automaton {
	t.Helper()
	a, err := edifact.Build(def)
	require.NoError(t, err)
	return a
}

// trace records events as compact strings, e.g. "+B 2_ALS" or "-L UIH".
type trace struct {
	events []string
	open   []string
}

func (tr *trace) EnterBranch(b edifact.Branch) error {
	tr.events = append(tr.events, "+B "+b.Path)
	tr.open = append(tr.open, b.Path)
	return nil
}

func (tr *trace) ExitBranch(path string) error {
	tr.events = append(tr.events, "-B "+path)
	tr.open = tr.open[:len(tr.open)-1]
	return nil
}

func (tr *trace) EnterLeaf(l *edifact.Leaf) error {
	tr.events = append(tr.events, "+L "+l.Path)
	return nil
}

func (tr *trace) ExitLeaf(path string) error {
	tr.events = append(tr.events, "-L "+path)
	return nil
}

func (tr *trace) String() string {
	return strings.Join(tr.events, "\n")
}
