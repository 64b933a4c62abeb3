package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTournamentCounts(t *testing.T) {
	m := New()
	m.ObserveTournament("winner", 2*time.Second)
	m.ObserveTournament("winner", 3*time.Second)
	m.ObserveTournament("timeout", 10*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TournamentsTotal.WithLabelValues("winner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TournamentsTotal.WithLabelValues("timeout")))
}

func TestRefreshPoolSigmaDropsEvictedIDs(t *testing.T) {
	m := New()
	m.RefreshPoolSigma(map[string]float64{"a": 8.3, "b": 2.1})
	assert.Equal(t, 8.3, testutil.ToFloat64(m.PoolSigma.WithLabelValues("a")))

	m.RefreshPoolSigma(map[string]float64{"b": 1.9})
	assert.Equal(t, 1.9, testutil.ToFloat64(m.PoolSigma.WithLabelValues("b")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PoolSigma.WithLabelValues("a")))
}

func TestIncReplacementByMode(t *testing.T) {
	m := New()
	m.IncReplacement("crossover")
	m.IncReplacement("crossover")
	m.IncReplacement("random")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReplacementsTotal.WithLabelValues("crossover")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplacementsTotal.WithLabelValues("random")))
}
