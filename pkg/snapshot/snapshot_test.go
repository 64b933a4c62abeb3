package snapshot

import (
	"testing"

	"github.com/jihwankim/rtac/pkg/ranker"
	"github.com/jihwankim/rtac/pkg/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(n int) *Snapshot {
	return &Snapshot{
		TournNr: n,
		Pool: map[string]*space.Configuration{
			"def": {ID: "def", Values: map[string]interface{}{"alpha": 0.5}},
			"c1":  {ID: "c1", Values: map[string]interface{}{"alpha": 0.9}},
		},
		Scores: ranker.ScoreBook{
			"def": ranker.NewRating(),
			"c1":  {Mu: 28.1, Sigma: 4.2},
		},
		Contenders: []string{"def", "c1"},
		DefaultID:  "def",
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, 3, sampleSnapshot(3)))

	got, err := Load(dir, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TournNr)
	assert.Equal(t, "def", got.DefaultID)
	assert.Equal(t, []string{"def", "c1"}, got.Contenders)
	assert.Equal(t, 28.1, got.Scores["c1"].Mu)
	assert.Equal(t, 0.9, got.Pool["c1"].Values["alpha"])
}

func TestLoadLatestPicksHighestTournament(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, 0, sampleSnapshot(0)))
	require.NoError(t, Save(dir, 2, sampleSnapshot(2)))
	require.NoError(t, Save(dir, 10, sampleSnapshot(10)))

	got, err := LoadLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, got.TournNr)
}

func TestLoadExperimentalReadsTournamentZero(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, 0, sampleSnapshot(0)))
	require.NoError(t, Save(dir, 5, sampleSnapshot(5)))

	got, err := LoadExperimental(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TournNr)
}

func TestLoadLatestFailsOnEmptyDir(t *testing.T) {
	_, err := LoadLatest(t.TempDir())
	assert.Error(t, err)
}
