package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lintang-b-s/replanx/pkg/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detour = `
name: detour
connectivity: "4"
rows:
  - "S...."
  - "....."
  - "....G"
steps:
  - action: plan
    expect_cost: 6
  - action: move
    advance: 1
  - action: block
    cells:
      - {x: 2, y: 0}
      - {x: 2, y: 1}
  - action: plan
    expect_found: true
  - action: set_cost
    from: {x: 1, y: 2}
    to: {x: 2, y: 2}
    cost: 5
  - action: plan
  - action: block
    cells:
      - {x: 2, y: 2}
  - action: plan
    expect_found: false
  - action: unblock
    cells:
      - {x: 2, y: 1}
  - action: plan
    expect_found: true
`

func TestRunDetour(t *testing.T) {
	sc, err := Parse([]byte(detour))
	require.NoError(t, err)
	assert.Equal(t, "detour", sc.Name)
	require.Len(t, sc.Steps, 10)

	report, err := Run(sc, WithReferenceCheck())
	require.NoError(t, err)
	require.Len(t, report.Steps, 10)

	for _, st := range report.Steps {
		assert.True(t, st.Passed, "step %d: %s", st.Index, st.Message)
	}
	assert.True(t, report.Passed)

	assert.Equal(t, 6.0, report.Steps[0].Cost)
	assert.Equal(t, "MOVE", report.Steps[1].Status)
	assert.False(t, report.Steps[7].Found)
	assert.Equal(t, "NO_PATH", report.Steps[7].Status)
	assert.True(t, report.Steps[9].Found)
	assert.Equal(t, 5, report.Stats.Replans)
}

func TestFailedExpectationIsReported(t *testing.T) {
	sc, err := Parse([]byte(`
rows: ["S.G"]
steps:
  - action: plan
    expect_cost: 1
`))
	require.NoError(t, err)

	report, err := Run(sc)
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.False(t, report.Steps[0].Passed)
	assert.Contains(t, report.Steps[0].Message, "expected cost 1")
}

func TestParseRejectsInvalidScenarios(t *testing.T) {
	testCases := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{name: "no map", yaml: "steps: []", wantErr: ErrNoMap},
		{name: "unknown action", yaml: "rows: [S.G]\nsteps: [{action: jump}]", wantErr: ErrUnknownAction},
		{name: "move without target", yaml: "rows: [S.G]\nsteps: [{action: move}]", wantErr: ErrInvalidStep},
		{name: "block without cells", yaml: "rows: [S.G]\nsteps: [{action: block}]", wantErr: ErrInvalidStep},
		{name: "set_cost without cost", yaml: "rows: [S.G]\nsteps: [{action: set_cost, from: {x: 0, y: 0}, to: {x: 1, y: 0}}]", wantErr: ErrInvalidStep},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := Parse([]byte("rows: [S.G]\nconnectivity: \"6\""))
	assert.Error(t, err)
	_, err = Parse([]byte("rows: [S.G]\nheuristic: chebyshev"))
	assert.Error(t, err)
}

func TestLoadResolvesMapRelativeToScenario(t *testing.T) {
	dir := t.TempDir()
	m, err := grid.ParseRows([]string{"S.#", "..G"}, grid.Conn8)
	require.NoError(t, err)
	require.NoError(t, grid.WriteMap(filepath.Join(dir, "room.txt.bz2"), m))

	scenarioFile := filepath.Join(dir, "room.yaml")
	require.NoError(t, os.WriteFile(scenarioFile, []byte(`
name: room
map: room.txt.bz2
connectivity: "8"
goal: {x: 2, y: 1}
steps:
  - action: plan
`), 0o644))

	sc, err := Load(scenarioFile)
	require.NoError(t, err)
	report, err := Run(sc, WithReferenceCheck())
	require.NoError(t, err)
	require.Len(t, report.Steps, 1)
	assert.True(t, report.Steps[0].Found)
	assert.True(t, report.Passed)
}

func TestMoveAdvanceNeedsPlan(t *testing.T) {
	sc, err := Parse([]byte("rows: [S..G]\nsteps: [{action: move, advance: 1}]"))
	require.NoError(t, err)
	_, err = Run(sc)
	assert.ErrorIs(t, err, ErrInvalidStep)
}
