package graybox

import (
	"testing"

	"github.com/jihwankim/rtac/pkg/race"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairFeaturesCompareProgress(t *testing.T) {
	a := Telemetry{Core: 0, Elapsed: 2, Interim: []float64{9, 5}}
	b := Telemetry{Core: 1, Elapsed: 2, Interim: []float64{9, 8}}
	f := pairFeatures(a, b)
	require.Len(t, f, pairFeatureLen)
	assert.Equal(t, 0.0, f[0])
	assert.Equal(t, -3.0, f[1]) // a's latest reading is 3 lower
	assert.Equal(t, 0.0, f[2])
	assert.Equal(t, -3.0, f[3]) // a is descending faster
}

func trainOnClearOutcome(t *testing.T, p *CostSensitiveLogit) {
	t.Helper()
	final := []Telemetry{
		{Core: 0, ConfigID: "w", Elapsed: 5, Interim: []float64{5, 2, 1}},
		{Core: 1, ConfigID: "l1", Elapsed: 30, Interim: []float64{9, 9}},
		{Core: 2, ConfigID: "l2", Elapsed: 30, Interim: []float64{8, 8}},
	}
	p.PrepareTrainData(final, 0)
	require.NoError(t, p.Train())
}

func TestTermListKillsPredictedLoser(t *testing.T) {
	p := NewCostSensitiveLogit()
	trainOnClearOutcome(t, p)

	live := []Telemetry{
		{Core: 0, Elapsed: 2, Interim: []float64{5, 2}},
		{Core: 3, Elapsed: 2, Interim: []float64{9, 9}},
	}
	kills := p.TermList(live)
	assert.Equal(t, []int{3}, kills)
}

func TestTermListNeverNamesEveryCore(t *testing.T) {
	p := NewCostSensitiveLogit()
	trainOnClearOutcome(t, p)

	// Identical telemetry: whatever the model says, one core must survive.
	live := []Telemetry{
		{Core: 0, Elapsed: 2, Interim: []float64{9, 9}},
		{Core: 1, Elapsed: 2, Interim: []float64{9, 9}},
	}
	kills := p.TermList(live)
	assert.Less(t, len(kills), len(live))
}

func TestTrainWithoutDataFails(t *testing.T) {
	p := NewCostSensitiveLogit()
	assert.Error(t, p.Train())
}

func TestObserveTrainsOverlayOnce(t *testing.T) {
	o := New(NewCostSensitiveLogit(), 0, 0, false, nil, nil)
	assert.False(t, o.isTrained())

	// A race without a winner carries no ground truth.
	o.Observe([]race.Slot{{ConfigID: "a"}}, -1)
	assert.False(t, o.isTrained())

	slots := []race.Slot{
		{ConfigID: "w", Interim: []float64{5, 1}},
		{ConfigID: "l", Interim: []float64{9, 9}},
	}
	o.Observe(slots, 0)
	assert.True(t, o.isTrained())
}

func TestShouldSkipConsumesFlag(t *testing.T) {
	o := New(NewCostSensitiveLogit(), 0, 0, false, nil, nil)
	o.solved["inst-7"] = true

	assert.True(t, o.ShouldSkip("inst-7"))
	assert.False(t, o.ShouldSkip("inst-7"), "skip flag must be one-shot")
	assert.False(t, o.ShouldSkip("other"))
}
