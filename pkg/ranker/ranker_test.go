package ranker

import (
	"math"
	"testing"
	"time"

	"github.com/jihwankim/rtac/pkg/race"
	"github.com/stretchr/testify/assert"
)

func TestReACTRWinnerIsBestObjective(t *testing.T) {
	slots := []race.Slot{
		{ConfigID: "a", Status: race.StatusFinished, HasResult: true, Objective: 5, WallRuntime: 1},
		{ConfigID: "b", Status: race.StatusFinished, HasResult: true, Objective: 2, WallRuntime: 2},
		{ConfigID: "c", Status: race.StatusKilled},
	}
	r := NewReACTR(true)
	winner, ranks := r.GetWinner(slots, LowerIsBetter)
	assert.Equal(t, "b", winner)
	assert.Equal(t, []int{1, 0, 1}, ranks)
}

func TestReACTRRuntimeModeWinnerIsFastest(t *testing.T) {
	slots := []race.Slot{
		{ConfigID: "a", Status: race.StatusFinished, HasResult: true, Objective: 1, Runtime: 20 * time.Second, WallRuntime: 20 * time.Second},
		{ConfigID: "b", Status: race.StatusFinished, HasResult: true, Objective: 9, Runtime: 5 * time.Second, WallRuntime: 5 * time.Second},
		{ConfigID: "c", Status: race.StatusKilled},
	}
	r := NewReACTR(false)
	winner, ranks := r.GetWinner(slots, LowerIsBetter)
	assert.Equal(t, "b", winner)
	assert.Equal(t, 0, ranks[1])
}

func TestReACTRNoWinnerWhenAllFail(t *testing.T) {
	slots := []race.Slot{
		{ConfigID: "a", Status: race.StatusKilled},
		{ConfigID: "b", Status: race.StatusCrashed},
	}
	r := NewReACTR(false)
	winner, _ := r.GetWinner(slots, LowerIsBetter)
	assert.Equal(t, "", winner)
}

func TestUpdateRanksWinnerGainsMu(t *testing.T) {
	scores := ScoreBook{"a": NewRating(), "b": NewRating()}
	r := NewReACTR(false)
	updated := r.Update(scores, []string{"a", "b"}, []int{0, 1})
	assert.Greater(t, updated["a"].Mu, updated["b"].Mu)
	assert.Less(t, updated["a"].Sigma, NewRating().Sigma)
}

func TestUpdateHandlesUnsortedRankOrder(t *testing.T) {
	// The winner arriving last in slot order must still come out on top.
	scores := ScoreBook{"a": NewRating(), "b": NewRating(), "c": NewRating()}
	r := NewReACTR(false)
	updated := r.Update(scores, []string{"a", "b", "c"}, []int{1, 1, 0})
	assert.Greater(t, updated["c"].Mu, updated["a"].Mu)
	assert.Greater(t, updated["c"].Mu, updated["b"].Mu)
}

func TestUpdateAllTiedKeepsMuLowersSigma(t *testing.T) {
	scores := ScoreBook{"a": NewRating(), "b": NewRating(), "c": NewRating()}
	r := NewReACTR(false)
	updated := r.Update(scores, []string{"a", "b", "c"}, []int{1, 1, 1})
	for id := range scores {
		assert.InDelta(t, InitialMu, updated[id].Mu, 1e-6, "mu should survive an all-tie unchanged up to dynamics")
		assert.Less(t, updated[id].Sigma, InitialSigma)
	}
}

func TestDrawUpdateIsSymmetric(t *testing.T) {
	a, b := updatePair(NewRating(), NewRating(), true)
	assert.InDelta(t, a.Mu, b.Mu, 1e-9)
	assert.InDelta(t, a.Sigma, b.Sigma, 1e-9)
	assert.False(t, math.IsNaN(a.Sigma))
}

func TestReACTRppBreaksTiesByInterim(t *testing.T) {
	slots := []race.Slot{
		{ConfigID: "a", Status: race.StatusKilled, Interim: []float64{9, 6}},
		{ConfigID: "b", Status: race.StatusKilled, Interim: []float64{9, 4}},
		{ConfigID: "c", Status: race.StatusFinished, HasResult: true, Objective: 1},
	}
	r := NewReACTRpp(true)
	winner, ranks := r.GetWinner(slots, LowerIsBetter)
	assert.Equal(t, "c", winner)
	assert.Equal(t, 0, ranks[2])
	// b reached a lower (better) interim reading than a, so it should
	// dense-rank ahead of a among the non-finishers.
	assert.Less(t, ranks[1], ranks[0])
}

func TestReACTRppEqualObjectivesDecidedByLastInterim(t *testing.T) {
	slots := []race.Slot{
		{ConfigID: "core3", Status: race.StatusFinished, HasResult: true, Objective: 7.5, Interim: []float64{8, 5}, WallRuntime: 10 * time.Second},
		{ConfigID: "core1", Status: race.StatusFinished, HasResult: true, Objective: 7.5, Interim: []float64{8, 3}, WallRuntime: 10 * time.Second},
	}
	r := NewReACTRpp(true)
	winner, _ := r.GetWinner(slots, LowerIsBetter)
	assert.Equal(t, "core1", winner)
}
