// Package pool maintains the population of configurations a tournament
// manager races over time, and evolves it via a genetic replacement
// operator once a configuration's skill rating falls below the rest of
// the pool.
package pool

import (
	"math/rand"
	"sort"

	"github.com/jihwankim/rtac/pkg/ranker"
	"github.com/jihwankim/rtac/pkg/space"
)

// Params configures a Manager's replacement policy. Field names and
// defaults follow the original implementation's scenario options.
type Params struct {
	PoolSize       int     // P
	NumContenders  int     // C, how many configurations race per tournament
	KillSigma      float64 // a contender becomes kill-eligible once its sigma drops to/below this
	ChancePct      float64 // uniform(1,100) roll below this => pure-random replacement, else crossover+mutate
	MutationRatePct float64
	ParentPoolSize int // top-N by mu eligible as crossover parents; 5 in the original
	KeepDefault    bool // pws: never replace the default configuration
	KeepTop        int  // keeptop: configurations retained by select_next regardless of draw
}

// Manager owns the configuration pool, the skill rating for every member,
// and the genetic operator that replaces under-performing members between
// tournaments.
type Manager struct {
	Space  *space.ConfigSpace
	Params Params
	Rank   ranker.Ranker

	Pool   map[string]*space.Configuration
	Scores ranker.ScoreBook

	DefaultID string
	rng       *rand.Rand
	lastEvent ReplacementEvent
}

// LastEvent returns the most recent replacement Manage performed (zero
// value if none yet).
func (m *Manager) LastEvent() ReplacementEvent { return m.lastEvent }

// Restore rebuilds a Manager around an already-populated pool and score
// book, the path pkg/driver's resume/experimental wiring uses instead of
// New's from-scratch sampling.
func Restore(cs *space.ConfigSpace, params Params, rank ranker.Ranker, rng *rand.Rand, pool map[string]*space.Configuration, scores ranker.ScoreBook, defaultID string) *Manager {
	return &Manager{
		Space:     cs,
		Params:    params,
		Rank:      rank,
		Pool:      pool,
		Scores:    scores,
		DefaultID: defaultID,
		rng:       rng,
	}
}

// New builds a pool of Params.PoolSize configurations: one default (if
// KeepDefault) plus independently sampled random configurations filling
// the rest, each starting at the prior rating.
func New(cs *space.ConfigSpace, params Params, rank ranker.Ranker, rng *rand.Rand) *Manager {
	m := &Manager{
		Space:  cs,
		Params: params,
		Rank:   rank,
		Pool:   make(map[string]*space.Configuration, params.PoolSize),
		Scores: make(ranker.ScoreBook, params.PoolSize),
		rng:    rng,
	}
	n := params.PoolSize
	if params.KeepDefault {
		def := space.SampleDefault(cs)
		m.DefaultID = def.ID
		m.Pool[def.ID] = def
		m.Scores[def.ID] = ranker.NewRating()
		n--
	}
	for i := 0; i < n; i++ {
		cfg := space.SampleRandom(cs, rng)
		m.Pool[cfg.ID] = cfg
		m.Scores[cfg.ID] = ranker.NewRating()
	}
	return m
}

// SelectContenders returns NumContenders configuration ids to race next,
// drawn uniformly at random from the current pool. The CPPL method uses
// this draw for every tournament; no contextual-bandit selector is
// implemented (see pkg/ranker's cppl notes).
func (m *Manager) SelectContenders() []string {
	ids := m.ids()
	m.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	n := m.Params.NumContenders
	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n]
}

// SelectNext returns the contender set for the race after this one: the
// top Params.KeepTop configurations by mu are always retained, and the
// remaining Params.NumContenders-KeepTop slots are filled by a uniform
// random draw, without replacement, from the pool minus those kept.
func (m *Manager) SelectNext() []string {
	sortedByMu := m.idsSortedByMu() // ascending; best performers are last
	keep := m.Params.KeepTop
	if keep > len(sortedByMu) {
		keep = len(sortedByMu)
	}
	if keep < 0 {
		keep = 0
	}
	kept := append([]string(nil), sortedByMu[len(sortedByMu)-keep:]...)

	keptSet := make(map[string]bool, len(kept))
	for _, id := range kept {
		keptSet[id] = true
	}
	rest := make([]string, 0, len(sortedByMu)-len(kept))
	for _, id := range sortedByMu {
		if !keptSet[id] {
			rest = append(rest, id)
		}
	}
	m.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	n := m.Params.NumContenders - len(kept)
	if n > len(rest) {
		n = len(rest)
	}
	if n < 0 {
		n = 0
	}
	out := append(kept, rest[:n]...)
	return out
}

func (m *Manager) ids() []string {
	ids := make([]string, 0, len(m.Pool))
	for id := range m.Pool {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic base order before shuffling
	return ids
}

// UpdateRanks folds one race's outcome (ranks index-aligned with ids) into
// Scores.
func (m *Manager) UpdateRanks(ids []string, ranks []int) {
	m.Scores = m.Rank.Update(m.Scores, ids, ranks)
}

// Manage runs one pass of the replacement policy over the entire pool:
// every member whose sigma has dropped to the kill threshold and whose mu
// sits below the pool's median is replaced, either by a freshly sampled
// random configuration or by a crossover-and-mutate child of two distinct
// parents drawn from the pool's top performers, chosen by a single
// uniform(1,100) chance roll per replacement (not per parameter),
// following the original manage_pool implementation precisely. The median
// is recomputed per candidate, since each replacement shifts the ranking.
func (m *Manager) Manage() []ReplacementEvent {
	var events []ReplacementEvent
	for _, id := range m.ids() {
		if id == m.DefaultID && m.Params.KeepDefault {
			continue
		}
		rating, ok := m.Scores[id]
		if !ok || rating.Sigma > m.Params.KillSigma {
			continue
		}
		sortedByMu := m.idsSortedByMu()
		if !m.belowMedian(id, sortedByMu, len(sortedByMu)/2) {
			continue
		}
		events = append(events, m.replace(id))
	}
	return events
}

func (m *Manager) idsSortedByMu() []string {
	ids := m.ids()
	sort.Slice(ids, func(i, j int) bool {
		return m.Scores[ids[i]].Mu < m.Scores[ids[j]].Mu
	})
	return ids
}

func (m *Manager) belowMedian(id string, sortedByMu []string, medianIdx int) bool {
	for i, other := range sortedByMu {
		if other == id {
			return i < medianIdx
		}
	}
	return false
}

// ReplacementMode records which branch of the replacement operator fired,
// for metrics/logging.
type ReplacementMode int

const (
	ReplacedRandom ReplacementMode = iota
	ReplacedCrossover
)

func (r ReplacementMode) String() string {
	if r == ReplacedRandom {
		return "random"
	}
	return "crossover"
}

// ReplacementEvent records one replacement: Manage returns one per
// replaced configuration, and LastEvent reports the most recent one.
type ReplacementEvent struct {
	ReplacedID string
	NewID      string
	Mode       ReplacementMode
}

func (m *Manager) replace(id string) ReplacementEvent {
	chanceRoll := 1 + m.rng.Float64()*99 // uniform(1, 100)

	parents := m.topParents()
	var child *space.Configuration
	var mode ReplacementMode
	if chanceRoll < m.Params.ChancePct || len(parents) < 2 {
		child = space.SampleRandom(m.Space, m.rng)
		mode = ReplacedRandom
	} else {
		// Two distinct parents, sampled without replacement.
		ai := m.rng.Intn(len(parents))
		bi := m.rng.Intn(len(parents) - 1)
		if bi >= ai {
			bi++
		}
		a, b := parents[ai], parents[bi]
		crossed := space.Crossover(m.Space, a, b, m.rng)
		// A single donor, sampled once for this whole replacement event,
		// supplies the value for every parameter the mutation step
		// touches — not an independent draw per parameter.
		donor := space.SampleRandom(m.Space, m.rng)
		child = space.MutateWithDonor(m.Space, crossed, donor, m.Params.MutationRatePct, m.rng)
		mode = ReplacedCrossover
	}

	delete(m.Pool, id)
	delete(m.Scores, id)
	m.Pool[child.ID] = child
	m.Scores[child.ID] = ranker.NewRating()

	m.lastEvent = ReplacementEvent{ReplacedID: id, NewID: child.ID, Mode: mode}
	return m.lastEvent
}

func (m *Manager) topParents() []*space.Configuration {
	ids := m.idsSortedByMu()
	n := m.Params.ParentPoolSize
	if n <= 0 || n > len(ids) {
		n = len(ids)
	}
	top := ids[len(ids)-n:]
	out := make([]*space.Configuration, len(top))
	for i, id := range top {
		out[i] = m.Pool[id]
	}
	return out
}
