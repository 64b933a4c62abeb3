package ranker

import (
	"math"
	"sort"

	"github.com/jihwankim/rtac/pkg/race"
)

// InterimMeaning says whether a lower or higher interim/objective reading
// is preferred, mirroring the original implementation's objective_min flag.
type InterimMeaning int

const (
	LowerIsBetter InterimMeaning = iota
	HigherIsBetter
)

// ScoreBook is the skill rating for every configuration id currently known
// to the pool.
type ScoreBook map[string]Rating

// Ranker produces a tournament winner from race results and folds that
// race's outcome into a ScoreBook.
type Ranker interface {
	// GetWinner returns the winning configuration id (or "" if every
	// contender crashed/timed out without a result) and a per-slot rank
	// assignment (0 is best; ties share a value), index-aligned with
	// slots.
	GetWinner(slots []race.Slot, meaning InterimMeaning) (winnerID string, ranks []int)

	// Update folds one race's outcome into scores, returning the updated
	// book. ids is index-aligned with ranks.
	Update(scores ScoreBook, ids []string, ranks []int) ScoreBook
}

// reactr implements the ReACTR tournament method: the winner is the
// fastest finisher in runtime mode, or the finisher with the smallest
// objective value in objective-minimization mode; everyone else is tied
// for second. This matches the original's binary win/lose ranking —
// ReACTR does not look at interim readings at all.
type reactr struct {
	objectiveMin bool
}

// NewReACTR returns the Ranker used by the ReACTR and CPPL tournament
// methods (CPPL shares ReACTR's winner-selection rule and only differs in
// how contenders are chosen for the next tournament).
func NewReACTR(objectiveMin bool) Ranker { return reactr{objectiveMin: objectiveMin} }

func (r reactr) GetWinner(slots []race.Slot, meaning InterimMeaning) (string, []int) {
	best := -1
	for i, s := range slots {
		if s.Status != race.StatusFinished || !s.HasResult {
			continue
		}
		if best == -1 || better(s, slots[best], r.objectiveMin, meaning) {
			best = i
		}
	}
	ranks := make([]int, len(slots))
	for i := range slots {
		ranks[i] = 1
	}
	winnerID := ""
	if best != -1 {
		ranks[best] = 0
		winnerID = slots[best].ConfigID
	}
	return winnerID, ranks
}

func better(a, b race.Slot, objectiveMin bool, meaning InterimMeaning) bool {
	if objectiveMin {
		if a.Objective != b.Objective {
			if meaning == HigherIsBetter {
				return a.Objective > b.Objective
			}
			return a.Objective < b.Objective
		}
		return a.WallRuntime < b.WallRuntime
	}
	if a.Runtime != b.Runtime {
		return a.Runtime < b.Runtime
	}
	return a.WallRuntime < b.WallRuntime
}

func (reactr) Update(scores ScoreBook, ids []string, ranks []int) ScoreBook {
	return applyUpdate(scores, ids, ranks)
}

// reactrpp implements ReACTRpp: when two or more contenders tie on the
// binary win/lose outcome (i.e. both crashed, or this race produced no
// clear winner at the wall-clock timeout), their relative order is broken
// by dense-ranking their interim readings, matching the original
// scipy.stats.rankdata(method='dense') tie-break in ResultProcessingpp.
type reactrpp struct {
	objectiveMin bool
}

func NewReACTRpp(objectiveMin bool) Ranker { return reactrpp{objectiveMin: objectiveMin} }

func (r reactrpp) GetWinner(slots []race.Slot, meaning InterimMeaning) (string, []int) {
	winnerIdx := -1
	for i, s := range slots {
		if s.Status == race.StatusFinished && s.HasResult {
			if winnerIdx == -1 || r.betterPP(s, slots[winnerIdx], meaning) {
				winnerIdx = i
			}
		}
	}

	// Score every slot by its best interim reading (or final objective,
	// whichever is more favorable) so contenders that never finished can
	// still be ranked against each other.
	score := make([]float64, len(slots))
	for i, s := range slots {
		score[i] = bestReading(s, meaning)
	}

	order := make([]int, len(slots))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		if meaning == LowerIsBetter {
			return score[order[i]] < score[order[j]]
		}
		return score[order[i]] > score[order[j]]
	})

	ranks := denseRank(order, score, meaning)
	if winnerIdx != -1 {
		winnerRank := ranks[winnerIdx]
		for i := range ranks {
			if ranks[i] < winnerRank {
				ranks[i]++
			}
		}
		ranks[winnerIdx] = 0
		return slots[winnerIdx].ConfigID, ranks
	}
	return "", ranks
}

// betterPP orders finishers like better, except that an exact objective
// tie in objective-minimization mode is broken by the contenders' last
// interim readings rather than wall time, the ReACTRpp refinement. When
// either contender reported no interim reading, better decides.
func (r reactrpp) betterPP(a, b race.Slot, meaning InterimMeaning) bool {
	if r.objectiveMin && a.Objective == b.Objective && len(a.Interim) > 0 && len(b.Interim) > 0 {
		ra, rb := a.Interim[len(a.Interim)-1], b.Interim[len(b.Interim)-1]
		if ra != rb {
			if meaning == HigherIsBetter {
				return ra > rb
			}
			return ra < rb
		}
	}
	return better(a, b, r.objectiveMin, meaning)
}

func bestReading(s race.Slot, meaning InterimMeaning) float64 {
	best := s.Objective
	hasAny := s.HasResult
	for _, v := range s.Interim {
		if !hasAny {
			best = v
			hasAny = true
			continue
		}
		if (meaning == LowerIsBetter && v < best) || (meaning == HigherIsBetter && v > best) {
			best = v
		}
	}
	if !hasAny {
		if meaning == LowerIsBetter {
			return math.MaxFloat64
		}
		return -math.MaxFloat64
	}
	return best
}

// denseRank assigns consecutive integers starting at 0 to distinct score
// values in order, with equal scores sharing a rank, per scipy's
// rankdata(method='dense') semantics.
func denseRank(order []int, score []float64, meaning InterimMeaning) []int {
	ranks := make([]int, len(order))
	rank := 0
	for i, idx := range order {
		if i > 0 && score[idx] != score[order[i-1]] {
			rank++
		}
		ranks[idx] = rank
	}
	return ranks
}

func (reactrpp) Update(scores ScoreBook, ids []string, ranks []int) ScoreBook {
	return applyUpdate(scores, ids, ranks)
}

func applyUpdate(scores ScoreBook, ids []string, ranks []int) ScoreBook {
	// UpdateRanks decomposes the free-for-all into adjacent pairwise
	// comparisons, so the ratings must be handed over in rank order, not
	// race-slot order.
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return ranks[order[i]] < ranks[order[j]] })

	ratings := make([]Rating, len(order))
	orderedRanks := make([]int, len(order))
	for k, idx := range order {
		r, ok := scores[ids[idx]]
		if !ok {
			r = NewRating()
		}
		ratings[k] = r
		orderedRanks[k] = ranks[idx]
	}
	updated := UpdateRanks(ratings, orderedRanks)
	out := make(ScoreBook, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	for k, idx := range order {
		out[ids[idx]] = updated[k]
	}
	return out
}
