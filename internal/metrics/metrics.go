// Package metrics exposes the engine's Prometheus instrumentation: how
// many tournaments ran and how they ended, how long races take, the
// current uncertainty of every pool member, and how often the genetic
// operator fires on each of its two branches.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's instrument set, bound to its own registry so
// tests and embedded callers never collide with the global default one.
type Metrics struct {
	registry *prometheus.Registry

	TournamentsTotal  *prometheus.CounterVec
	RaceDuration      prometheus.Histogram
	PoolSigma         *prometheus.GaugeVec
	ReplacementsTotal *prometheus.CounterVec
	EarlyKillsTotal   prometheus.Counter
}

// New creates and registers the instrument set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TournamentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtac_tournaments_total",
			Help: "Completed tournaments by outcome.",
		}, []string{"result"}),
		RaceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rtac_race_duration_seconds",
			Help:    "Wall-clock duration of each race.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		PoolSigma: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtac_pool_sigma",
			Help: "Current skill-rating uncertainty per pool configuration.",
		}, []string{"config_id"}),
		ReplacementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtac_replacements_total",
			Help: "Pool replacements by operator branch.",
		}, []string{"mode"}),
		EarlyKillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtac_early_kills_total",
			Help: "Workers terminated by the gray-box loser prediction.",
		}),
	}
	m.registry.MustRegister(m.TournamentsTotal, m.RaceDuration, m.PoolSigma, m.ReplacementsTotal, m.EarlyKillsTotal)
	return m
}

// ObserveTournament records one completed race.
func (m *Metrics) ObserveTournament(result string, duration time.Duration) {
	m.TournamentsTotal.WithLabelValues(result).Inc()
	m.RaceDuration.Observe(duration.Seconds())
}

// RefreshPoolSigma replaces the per-configuration sigma gauge vector with
// the pool's current contents, dropping evicted ids.
func (m *Metrics) RefreshPoolSigma(sigmas map[string]float64) {
	m.PoolSigma.Reset()
	for id, sigma := range sigmas {
		m.PoolSigma.WithLabelValues(id).Set(sigma)
	}
}

// IncReplacement counts one pool replacement on the given operator branch.
func (m *Metrics) IncReplacement(mode string) {
	m.ReplacementsTotal.WithLabelValues(mode).Inc()
}

// Handler returns the /metrics HTTP handler for this instrument set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the handler on addr until ctx is canceled. It returns the
// server's terminal error, with http.ErrServerClosed filtered out as the
// normal shutdown outcome.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
