package reporting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *TournamentLog {
	t.Helper()
	logger := NewLogger(LoggerConfig{Level: LogLevelError})
	tl, err := NewTournamentLog(t.TempDir(), "solver_ReACTR", logger)
	require.NoError(t, err)
	return tl
}

func readLog(t *testing.T, tl *TournamentLog, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(tl.Dir(), name))
	require.NoError(t, err)
	return string(data)
}

func TestGeneralAppendsLines(t *testing.T) {
	tl := newTestLog(t)
	tl.General("starting tournament %d", 1)
	tl.General("starting tournament %d", 2)
	content := readLog(t, tl, "general.log")
	assert.Contains(t, content, "starting tournament 1")
	assert.Contains(t, content, "starting tournament 2")
}

func TestTournStatsAppendsYAMLDocs(t *testing.T) {
	tl := newTestLog(t)
	tl.TournStats(TournamentStats{TournNr: 0, Instance: "i1", Timeout: 5, WinnerID: "w",
		Slots: []SlotStats{{Core: 0, ConfigID: "w", Objective: 1, HasResult: true, Status: "finished"}}})
	tl.TournStats(TournamentStats{TournNr: 1, Instance: "i2"})

	content := readLog(t, tl, "tourn_stats.log")
	assert.Contains(t, content, "tourn_nr: 0")
	assert.Contains(t, content, "tourn_nr: 1")
	assert.Contains(t, content, "config_id: w")
}

func TestTournNrRoundTrips(t *testing.T) {
	tl := newTestLog(t)
	require.NoError(t, tl.SetTournNr(3))
	require.NoError(t, tl.SetTournNr(4))
	n, err := tl.TournNr()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestUpdateBestSeenKeepsMinimumAndOverwrites(t *testing.T) {
	tl := newTestLog(t)
	require.NoError(t, tl.UpdateBestSeen("inst1", 5.0, false))
	require.NoError(t, tl.UpdateBestSeen("inst1", 3.0, false))
	require.NoError(t, tl.UpdateBestSeen("inst1", 9.0, false))
	content := readLog(t, tl, "times.log")
	assert.Equal(t, "inst1 3\n", content)
}

func TestUpdateBestSeenUsesResultsLogInObjectiveMode(t *testing.T) {
	tl := newTestLog(t)
	require.NoError(t, tl.UpdateBestSeen("inst1", 42.0, true))
	_, err := os.Stat(filepath.Join(tl.Dir(), "results.log"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(tl.Dir(), "times.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestWritePoolAndScores(t *testing.T) {
	tl := newTestLog(t)
	require.NoError(t, tl.WritePool(2, []string{"a", "b", "c"}))
	assert.Equal(t, "a\nb\nc\n", readLog(t, tl, "pool_tourn_2.log"))

	require.NoError(t, tl.WriteScores(2, []string{"a", "b"}, []float64{25, 24.5}, []float64{8.3, 7.9}))
	content := readLog(t, tl, "scores_tourn_2.log")
	assert.Contains(t, content, "a 25 8.3")
	assert.Contains(t, content, "b 24.5 7.9")
}

func TestWriteContenderDictSortsBySlot(t *testing.T) {
	tl := newTestLog(t)
	require.NoError(t, tl.WriteContenderDict(1, map[int]string{2: "cfg-c", 0: "cfg-a", 1: "cfg-b"}))
	content := readLog(t, tl, "contender_dict_tourn_1.log")
	assert.Equal(t, "0 cfg-a\n1 cfg-b\n2 cfg-c\n", content)
}
