// Package driver implements the tournament manager: the per-instance loop
// that races the current contender set, folds the outcome into the skill
// ratings and pool, decides the next contender set, and persists the log
// trail and resume snapshot, precisely the role the original
// implementation's TournamentManager/TournamentManagerCPPL classes play.
package driver

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/jihwankim/rtac/internal/metrics"
	"github.com/jihwankim/rtac/pkg/graybox"
	"github.com/jihwankim/rtac/pkg/pool"
	"github.com/jihwankim/rtac/pkg/race"
	"github.com/jihwankim/rtac/pkg/ranker"
	"github.com/jihwankim/rtac/pkg/reporting"
	"github.com/jihwankim/rtac/pkg/scenario"
	"github.com/jihwankim/rtac/pkg/snapshot"
	"github.com/jihwankim/rtac/pkg/space"
	"github.com/jihwankim/rtac/pkg/wrapper"
)

// Driver runs one scenario's tournament sequence against a stream of
// problem instances.
type Driver struct {
	Spec  *scenario.Spec
	Space *space.ConfigSpace
	Pool  *pool.Manager
	Wrap  wrapper.Wrapper
	Log   *reporting.TournamentLog

	// Gray, when non-nil, runs the early-termination overlay alongside
	// every race. Metrics, when non-nil, receives instrumentation updates.
	Gray    *graybox.Overlay
	Metrics *metrics.Metrics

	// Contenders holds the configuration ids racing the next instance,
	// analogous to the original implementation's contender_dict.
	Contenders []string

	// TournNr is the next tournament's sequence number.
	TournNr int
}

// New builds a Driver for a fresh run: tournament 0, an initial contender
// set drawn uniformly from the pool.
func New(sp *scenario.Spec, cs *space.ConfigSpace, pm *pool.Manager, wrap wrapper.Wrapper, log *reporting.TournamentLog) *Driver {
	return &Driver{
		Spec:       sp,
		Space:      cs,
		Pool:       pm,
		Wrap:       wrap,
		Log:        log,
		Contenders: pm.SelectContenders(),
		TournNr:    0,
	}
}

// Resume rebuilds a Driver from a persisted Snapshot, restoring the pool
// contents, skill ratings, contender set and tournament counter exactly as
// they were when the snapshot was taken. Mirrors AbstractTournamentManager
// loading self.res_process.pool/scores/contender_dict/tourn_nr from
// logs.load_data() on scenario.resume / scenario.experimental.
func Resume(sp *scenario.Spec, cs *space.ConfigSpace, snap *snapshot.Snapshot, rank ranker.Ranker, rng *rand.Rand, wrap wrapper.Wrapper, log *reporting.TournamentLog) *Driver {
	params := pool.Params{
		PoolSize:        sp.Contenders,
		NumContenders:   sp.EffectiveCores(),
		KillSigma:       sp.KillSigma,
		ChancePct:       sp.ChancePct,
		MutationRatePct: sp.MutationRatePct,
		ParentPoolSize:  5,
		KeepDefault:     sp.PWS,
		KeepTop:         sp.KeepTop,
	}
	pm := pool.Restore(cs, params, rank, rng, snap.Pool, snap.Scores, snap.DefaultID)

	return &Driver{
		Spec:       sp,
		Space:      cs,
		Pool:       pm,
		Wrap:       wrap,
		Log:        log,
		Contenders: snap.Contenders,
		TournNr:    snap.TournNr,
	}
}

// Outcome is what a completed instance reported, in the vocabulary the
// original implementation's result_output uses to decide its console
// message.
type Outcome struct {
	Instance string
	WinnerID string
	Solved   bool
	// Value is the winner's wall-clock runtime in seconds when
	// Spec.ObjectiveMin is false, or its objective value when true.
	Value float64
}

// meaning derives the interim direction from the wrapper's declaration
// when it makes one, defaulting to smaller-is-better: wall-clock mode
// wants the fastest finisher, objective-minimization mode the smallest
// objective value.
func (d *Driver) meaning() ranker.InterimMeaning {
	if ir, ok := d.Wrap.(wrapper.InterimReporter); ok {
		info := ir.InterimInfo()
		if len(info) > 0 && info[0] == wrapper.Increase {
			return ranker.HigherIsBetter
		}
	}
	return ranker.LowerIsBetter
}

// SolveInstance races the current contender set on instance, updates
// ratings and the pool, advances the contender set for the next call, and
// returns the race outcome. It is the Go analogue of
// TournamentManager.solve_instance / TournamentManagerCPPL.solve_instance.
func (d *Driver) SolveInstance(ctx context.Context, instance string) (Outcome, error) {
	return d.SolveInstanceWithNext(ctx, instance, "")
}

// SolveInstanceWithNext additionally names the instance that follows in the
// stream, so the gray-box overlay can start a speculative tournament for it
// on any early-killed cores.
func (d *Driver) SolveInstanceWithNext(ctx context.Context, instance, next string) (Outcome, error) {
	ids := d.Contenders
	cfgs := make([]*space.Configuration, len(ids))
	for i, id := range ids {
		cfg, ok := d.Pool.Pool[id]
		if !ok {
			return Outcome{}, fmt.Errorf("driver: contender %s not present in pool", id)
		}
		cfgs[i] = cfg
	}

	if err := d.logRankingSnapshot(ids); err != nil {
		return Outcome{}, err
	}

	t := &race.Tournament{
		Number:       d.TournNr,
		Instance:     instance,
		Timeout:      d.Spec.Timeout,
		Contenders:   cfgs,
		ObjectiveMin: d.Spec.ObjectiveMin,
		Wrap:         d.Wrap,
		Log:          d.tournamentLogger(),
	}
	raceStart := time.Now()
	t.Start(ctx)
	if d.Gray != nil {
		stop := d.Gray.Supervise(ctx, t, next)
		t.Watch(ctx)
		stop()
	} else {
		t.Watch(ctx)
	}
	raceDuration := time.Since(raceStart)

	slots := make([]race.Slot, len(t.State().Slots))
	for i, s := range t.State().Slots {
		slots[i] = s.Snapshot()
	}
	// Contenders without a valid objective count as full-timeout runs for
	// ranking purposes.
	for i := range slots {
		if !slots[i].HasResult {
			slots[i].Runtime = d.Spec.Timeout
		}
	}

	winnerID, ranks := d.Pool.Rank.GetWinner(slots, d.meaning())
	if winnerID != "" {
		d.Pool.UpdateRanks(ids, ranks)
		events := d.Pool.Manage()
		for _, ev := range events {
			if d.Metrics != nil {
				d.Metrics.IncReplacement(ev.Mode.String())
			}
			if d.Spec.Verbosity >= 2 {
				d.Log.General("replaced %s with %s (%s)", ev.ReplacedID, ev.NewID, ev.Mode)
			}
		}
	}

	if d.Gray != nil {
		d.Gray.Observe(slots, winnerCore(slots, winnerID))
	}
	if d.Metrics != nil {
		result := "timeout"
		if winnerID != "" {
			result = "winner"
		}
		d.Metrics.ObserveTournament(result, raceDuration)
		sigmas := make(map[string]float64, len(d.Pool.Scores))
		for id, r := range d.Pool.Scores {
			sigmas[id] = r.Sigma
		}
		d.Metrics.RefreshPoolSigma(sigmas)
	}

	outcome := d.buildOutcome(instance, winnerID, slots, ids)

	d.Log.Winner(d.TournNr, instance, winnerID)
	d.Log.TournStats(buildStats(d.TournNr, instance, t.Timeout, winnerID, slots))
	if outcome.Solved {
		d.Log.UpdateBestSeen(instance, outcome.Value, d.Spec.ObjectiveMin)
	}
	if d.Spec.Verbosity >= 2 {
		d.Log.General("instance=%s results=%v", instance, describeSlots(slots))
	}
	d.Log.General("winner of tournament %d is %s", d.TournNr, winnerID)

	d.Contenders = d.nextContenders()
	d.TournNr++
	if err := d.Log.SetTournNr(d.TournNr); err != nil {
		return outcome, err
	}
	snap := snapshot.FromPool(d.TournNr, d.Pool.Pool, d.Pool.Scores, d.Contenders, d.Pool.DefaultID)
	if err := snapshot.Save(d.Log.Dir(), d.TournNr, snap); err != nil {
		return outcome, err
	}
	poolIDs := make([]string, 0, len(d.Pool.Pool))
	for id := range d.Pool.Pool {
		poolIDs = append(poolIDs, id)
	}
	sort.Strings(poolIDs)
	if err := d.Log.WritePool(d.TournNr, poolIDs); err != nil {
		return outcome, err
	}

	return outcome, nil
}

// tournamentLogger derives the child logger the current race's workers
// log through, stamped with the tournament number.
func (d *Driver) tournamentLogger() *reporting.Logger {
	l := d.Log.Logger()
	if l == nil {
		return nil
	}
	return l.ForTournament(d.TournNr)
}

// winnerCore maps the winning configuration id back to its race slot, or
// -1 when the race produced no winner.
func winnerCore(slots []race.Slot, winnerID string) int {
	if winnerID == "" {
		return -1
	}
	for i, s := range slots {
		if s.ConfigID == winnerID {
			return i
		}
	}
	return -1
}

// nextContenders picks the configuration ids racing the following
// instance. CPPL's bandit-based selection is reproduced only as the
// pool's plain random draw (see pkg/pool.SelectContenders and
// pkg/ranker/cppl.go for the documented limitation this carries over).
func (d *Driver) nextContenders() []string {
	if d.Spec.AC == scenario.CPPL {
		return d.Pool.SelectContenders()
	}
	return d.Pool.SelectNext()
}

func (d *Driver) buildOutcome(instance, winnerID string, slots []race.Slot, ids []string) Outcome {
	o := Outcome{Instance: instance, WinnerID: winnerID}
	if winnerID == "" {
		return o
	}
	for i, s := range slots {
		if ids[i] == winnerID && s.HasResult {
			o.Solved = true
			if d.Spec.ObjectiveMin {
				o.Value = s.Objective
			} else {
				o.Value = s.WallRuntime.Seconds()
			}
			return o
		}
	}
	return o
}

// ResultMessage renders the console line the original implementation's
// result_output prints for one instance outcome.
func (d *Driver) ResultMessage(o Outcome) string {
	if !o.Solved {
		return fmt.Sprintf("Instance %s could not be solved within %ds.", o.Instance, int(d.Spec.Timeout.Seconds()))
	}
	if d.Spec.ObjectiveMin {
		return fmt.Sprintf("Solved instance %s with objective value %g.", o.Instance, o.Value)
	}
	return fmt.Sprintf("Solved instance %s in %gs.", o.Instance, o.Value)
}

func (d *Driver) logRankingSnapshot(ids []string) error {
	mus := make([]float64, len(ids))
	sigmas := make([]float64, len(ids))
	for i, id := range ids {
		r := d.Pool.Scores[id]
		mus[i] = r.Mu
		sigmas[i] = r.Sigma
	}
	if err := d.Log.WriteScores(d.TournNr, ids, mus, sigmas); err != nil {
		return err
	}
	slotMap := make(map[int]string, len(ids))
	for i, id := range ids {
		slotMap[i] = id
	}
	return d.Log.WriteContenderDict(d.TournNr, slotMap)
}

func buildStats(tournNr int, instance string, timeout time.Duration, winnerID string, slots []race.Slot) reporting.TournamentStats {
	stats := reporting.TournamentStats{
		TournNr:  tournNr,
		Instance: instance,
		Timeout:  timeout.Seconds(),
		WinnerID: winnerID,
	}
	for i, s := range slots {
		stats.Slots = append(stats.Slots, reporting.SlotStats{
			Core:        i,
			ConfigID:    s.ConfigID,
			Objective:   s.Objective,
			HasResult:   s.HasResult,
			Runtime:     s.Runtime.Seconds(),
			WallRuntime: s.WallRuntime.Seconds(),
			Status:      s.Status.String(),
		})
	}
	return stats
}

func describeSlots(slots []race.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = fmt.Sprintf("%s:%s", s.ConfigID, s.Status)
	}
	return out
}

// Baseline runs one instance against only the pool's default configuration
// on a single core, with no ranking or pool evolution, matching the
// baselineperf option forcing number_cores to 1 and skipping AC entirely.
func (d *Driver) Baseline(ctx context.Context, instance string) (Outcome, error) {
	def, ok := d.Pool.Pool[d.Pool.DefaultID]
	if !ok {
		return Outcome{}, fmt.Errorf("driver: baselineperf requires a default configuration in the pool")
	}
	t := &race.Tournament{
		Number:       d.TournNr,
		Instance:     instance,
		Timeout:      d.Spec.Timeout,
		Contenders:   []*space.Configuration{def},
		ObjectiveMin: d.Spec.ObjectiveMin,
		Wrap:         d.Wrap,
		Log:          d.tournamentLogger(),
	}
	raceStart := time.Now()
	t.Start(ctx)
	t.Watch(ctx)
	raceDuration := time.Since(raceStart)

	slot := t.State().Slots[0].Snapshot()
	o := Outcome{Instance: instance, WinnerID: def.ID}
	if slot.HasResult {
		o.Solved = true
		if d.Spec.ObjectiveMin {
			o.Value = slot.Objective
		} else {
			o.Value = slot.WallRuntime.Seconds()
		}
		d.Log.UpdateBestSeen(instance, o.Value, d.Spec.ObjectiveMin)
	} else {
		o.WinnerID = ""
	}
	if d.Metrics != nil {
		result := "timeout"
		if o.Solved {
			result = "winner"
		}
		d.Metrics.ObserveTournament(result, raceDuration)
	}
	d.Log.Winner(d.TournNr, instance, o.WinnerID)
	d.Log.TournStats(buildStats(d.TournNr, instance, t.Timeout, o.WinnerID, []race.Slot{slot}))
	d.TournNr++
	if err := d.Log.SetTournNr(d.TournNr); err != nil {
		return o, err
	}
	return o, nil
}
