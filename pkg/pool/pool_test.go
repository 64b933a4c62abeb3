package pool

import (
	"math/rand"
	"testing"

	"github.com/jihwankim/rtac/pkg/ranker"
	"github.com/jihwankim/rtac/pkg/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpace(t *testing.T) *space.ConfigSpace {
	t.Helper()
	cs, err := space.New([]*space.Parameter{
		{Name: "alpha", KindStr: "continuous", Lower: 0, Upper: 1, Default: 0.5},
		{Name: "mode", KindStr: "categorical", Choices: []string{"a", "b"}, Default: "a"},
	})
	require.NoError(t, err)
	return cs
}

func testManager(t *testing.T) *Manager {
	cs := testSpace(t)
	params := Params{
		PoolSize: 10, NumContenders: 3, KillSigma: 1000, ChancePct: 50,
		MutationRatePct: 20, ParentPoolSize: 5, KeepDefault: true,
	}
	return New(cs, params, ranker.NewReACTR(false), rand.New(rand.NewSource(7)))
}

func TestNewPoolHasExactSize(t *testing.T) {
	m := testManager(t)
	assert.Len(t, m.Pool, 10)
	assert.Len(t, m.Scores, 10)
	assert.Contains(t, m.Pool, m.DefaultID)
}

func TestSelectContendersReturnsRequestedCount(t *testing.T) {
	m := testManager(t)
	ids := m.SelectContenders()
	assert.Len(t, ids, 3)
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
		assert.Contains(t, m.Pool, id)
	}
}

func TestManagePreservesPoolSize(t *testing.T) {
	m := testManager(t)
	m.Params.KillSigma = 1000 // force every pool member eligible
	ids := m.SelectContenders()
	ranks := make([]int, len(ids))
	m.UpdateRanks(ids, ranks)
	m.Manage()
	assert.Len(t, m.Pool, 10)
	assert.Len(t, m.Scores, 10)
}

func TestManageScansWholePool(t *testing.T) {
	m := testManager(t)
	m.Params.KillSigma = 5

	// A pool member that never raced, but whose rating is confident and
	// below the median, must still be replaced.
	var victim string
	for id := range m.Pool {
		if id != m.DefaultID {
			victim = id
			break
		}
	}
	m.Scores[victim] = ranker.Rating{Mu: 0, Sigma: 1}

	events := m.Manage()
	assert.NotEmpty(t, events)
	assert.NotContains(t, m.Pool, victim)
	assert.NotContains(t, m.Scores, victim)
	assert.Len(t, m.Pool, 10)
}

func TestSelectNextKeepsTopByMu(t *testing.T) {
	m := testManager(t)
	m.Params.KeepTop = 2
	ids := m.idsSortedByMu()
	best := ids[len(ids)-m.Params.KeepTop:]

	next := m.SelectNext()
	assert.Len(t, next, 3)
	for _, id := range best {
		assert.Contains(t, next, id)
	}
	seen := map[string]bool{}
	for _, id := range next {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestManageNeverReplacesDefault(t *testing.T) {
	m := testManager(t)
	m.Params.KillSigma = 1000
	before := m.DefaultID
	m.Manage()
	assert.Contains(t, m.Pool, before)
}

func TestManageSkipsHighSigmaContenders(t *testing.T) {
	m := testManager(t)
	m.Params.KillSigma = -1 // nothing is ever eligible
	before := make(map[string]bool, len(m.Pool))
	for id := range m.Pool {
		before[id] = true
	}
	m.Manage()
	for id := range m.Pool {
		assert.True(t, before[id])
	}
}
