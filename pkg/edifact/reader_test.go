package edifact_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/merits/pkg/edifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Events(t *testing.T) {
	a := mustBuild(t, stopsDefinition())
	tr := &trace{}

	require.NoError(t, edifact.NewReader(a).ReadString(stopsMessage, tr))

	want := []string{
		"+L UIH", "-L UIH",
		"+B 2_ALS",
		"+L 2_ALS/ALS", "-L 2_ALS/ALS",
		"+L 2_ALS/POP", "-L 2_ALS/POP",
		"+L 2_ALS/IFT", "-L 2_ALS/IFT",
		"+B 2_ALS/4_PRD", "+L 2_ALS/4_PRD/PRD", "-L 2_ALS/4_PRD/PRD", "-B 2_ALS/4_PRD",
		"+B 2_ALS/4_PRD", "+L 2_ALS/4_PRD/PRD", "-L 2_ALS/4_PRD/PRD", "-B 2_ALS/4_PRD",
		"-B 2_ALS",
		"+B 2_ALS",
		"+L 2_ALS/ALS", "-L 2_ALS/ALS",
		"-B 2_ALS",
		"+L UIT", "-L UIT",
	}
	assert.Equal(t, want, tr.events)
}

func TestReader_StackDiscipline(t *testing.T) {
	a := mustBuild(t, stopsDefinition())
	var (
		enterB, exitB, enterL, exitL int
		open                         []string
		leaf                         string
	)
	h := edifact.HandlerFuncs{
		OnEnterBranch: func(b edifact.Branch) error {
			enterB++
			if len(open) > 0 {
				parent := open[len(open)-1]
				if !strings.HasPrefix(b.Path, parent+edifact.PathSeparator) {
					t.Errorf("branch %s opened inside %s", b.Path, parent)
				}
			}
			open = append(open, b.Path)
			return nil
		},
		OnExitBranch: func(path string) error {
			exitB++
			require.NotEmpty(t, open)
			assert.Equal(t, open[len(open)-1], path)
			open = open[:len(open)-1]
			return nil
		},
		OnEnterLeaf: func(l *edifact.Leaf) error {
			enterL++
			assert.Empty(t, leaf, "leaf %s entered while %s is open", l.Path, leaf)
			leaf = l.Path
			return nil
		},
		OnExitLeaf: func(path string) error {
			exitL++
			assert.Equal(t, leaf, path, "leaf exit without matching enter")
			leaf = ""
			return nil
		},
	}

	require.NoError(t, edifact.NewReader(a).ReadString(stopsMessage, h))
	assert.Equal(t, enterB, exitB)
	assert.Equal(t, enterL, exitL)
	assert.Equal(t, 8, enterL)
	assert.Equal(t, 8, exitL)
	assert.Empty(t, open)
	assert.Empty(t, leaf)
}

func TestReader_MultiByteTag(t *testing.T) {
	def := &edifact.Definition{
		Root: &edifact.Node{ID: "r", Name: "root", Min: 1, Max: 1, Children: []*edifact.Node{
			{ID: "a", Name: "ÄLS", Min: 1, Max: 9},
			{ID: "b", Name: "UIT", Min: 1, Max: 1},
		}},
		Segments: []edifact.Segment{
			{NodeID: "a", Format: "ÄLS+name"},
			{NodeID: "b", Format: "UIT+count"},
		},
		Config: edifact.DefaultConfig(),
	}
	a := mustBuild(t, def)
	tr := &trace{}
	var names []string
	h := edifact.MultiHandler{tr, edifact.HandlerFuncs{
		OnEnterLeaf: func(l *edifact.Leaf) error {
			if v, ok := l.Lookup("name"); ok {
				names = append(names, v)
			}
			return nil
		},
	}}

	require.NoError(t, edifact.NewReader(a).ReadString("ÄLS+Köln'\nÄLS+Zürich'\nUIT+2'\n", h))
	assert.Equal(t, []string{"Köln", "Zürich"}, names)
	assert.Equal(t, []string{"+L ÄLS", "-L ÄLS", "+L ÄLS", "-L ÄLS", "+L UIT", "-L UIT"}, tr.events)
}

func TestReader_LeafValues(t *testing.T) {
	a := mustBuild(t, stopsDefinition())
	var names []string
	h := edifact.HandlerFuncs{
		OnEnterLeaf: func(l *edifact.Leaf) error {
			if l.Path != "2_ALS/ALS" {
				return nil
			}
			var stop struct {
				Code string `edifact:"uic_code"`
				Name string `edifact:"location_name"`
			}
			require.NoError(t, l.Decode(&stop))
			names = append(names, stop.Code+" "+stop.Name)
			return nil
		},
	}
	require.NoError(t, edifact.NewReader(a).ReadString(stopsMessage, h))
	assert.Equal(t, []string{"8000001 Berlin", "8000002 Hamburg"}, names)
}

func TestReader_Errors(t *testing.T) {
	a := mustBuild(t, stopsDefinition())

	tests := []struct {
		name     string
		input    string
		isKind   func(error) bool
		line     int
		contains string
	}{
		{
			name:     "invalid tag",
			input:    "UIH+TSDUPD:1+R'\nXXX+1'\nUIT+R+2'",
			isKind:   edifact.IsStructural,
			line:     2,
			contains: `invalid trigger "XXX"`,
		},
		{
			name:     "premature termination",
			input:    "UIH+TSDUPD:1+R'\nALS+1+2'",
			isKind:   edifact.IsStructural,
			contains: "failed final transition to end state final@final",
		},
		{
			name:     "constant mismatch",
			input:    "UIH+SKDUPD:1+R'\nUIT+R+2'",
			isKind:   edifact.IsData,
			line:     1,
			contains: `expected value "TSDUPD"`,
		},
		{
			name:     "misplaced separator",
			input:    "UIH+TSDUPD:1+R'\nUIT+R+2+3'",
			isKind:   edifact.IsStructural,
			line:     2,
			contains: "unexpected separator",
		},
		{
			name:     "group out of order",
			input:    "UIH+TSDUPD:1+R'\nPRD+ICE'\nUIT+R+2'",
			isKind:   edifact.IsStructural,
			line:     2,
			contains: `invalid trigger "PRD"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := edifact.NewReader(a).ReadString(tt.input, edifact.NopHandler{})
			require.Error(t, err)
			assert.True(t, tt.isKind(err), "unexpected kind: %v", err)
			assert.Contains(t, err.Error(), tt.contains)

			var e *edifact.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.line, e.Line)
		})
	}
}

func TestReader_HandlerErrorAborts(t *testing.T) {
	a := mustBuild(t, stopsDefinition())
	boom := errors.New("boom")
	calls := 0
	h := edifact.HandlerFuncs{
		OnEnterBranch: func(edifact.Branch) error {
			calls++
			return boom
		},
	}
	err := edifact.NewReader(a).ReadString(stopsMessage, h)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestReader_Reusable(t *testing.T) {
	a := mustBuild(t, stopsDefinition())
	r := edifact.NewReader(a)
	for i := 0; i < 2; i++ {
		tr := &trace{}
		require.NoError(t, r.ReadFrom(strings.NewReader(strings.ReplaceAll(stopsMessage, "\n", "\r\n")), tr))
		assert.Len(t, tr.events, 24)
	}
}

func TestMultiHandler(t *testing.T) {
	a := mustBuild(t, stopsDefinition())
	first, second := &trace{}, &trace{}
	require.NoError(t, edifact.NewReader(a).ReadString(stopsMessage, edifact.MultiHandler{first, second}))
	assert.Equal(t, first.events, second.events)
}
