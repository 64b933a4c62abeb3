package graybox

import (
	"context"
	"sync"
	"time"

	"github.com/jihwankim/rtac/pkg/race"
	"github.com/jihwankim/rtac/pkg/reporting"
	"github.com/jihwankim/rtac/pkg/space"
	"github.com/jihwankim/rtac/pkg/wrapper"
)

// Overlay supervises one running tournament at a time: every ReadTime it
// asks the Predictor which live workers will lose, early-kills them, and
// races the freed cores speculatively on the next instance. The first
// completed real tournament trains the predictor; until then every tick is
// a no-op.
type Overlay struct {
	Pred         Predictor
	ReadTime     time.Duration
	Timeout      time.Duration
	ObjectiveMin bool
	Wrap         wrapper.Wrapper
	Log          *reporting.TournamentLog

	mu      sync.Mutex
	trained bool
	solved  map[string]bool
	kills   int

	specWG sync.WaitGroup
}

// New builds an Overlay around pred.
func New(pred Predictor, readTime, timeout time.Duration, objectiveMin bool, wrap wrapper.Wrapper, log *reporting.TournamentLog) *Overlay {
	return &Overlay{
		Pred:         pred,
		ReadTime:     readTime,
		Timeout:      timeout,
		ObjectiveMin: objectiveMin,
		Wrap:         wrap,
		Log:          log,
		solved:       make(map[string]bool),
	}
}

// Supervise starts the prediction loop over t and returns a stop function
// the driver calls once the primary Watch returns. next is the instance a
// speculative tournament may be started for; empty disables speculation.
func (o *Overlay) Supervise(ctx context.Context, t *race.Tournament, next string) (stop func()) {
	tickCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(o.ReadTime)
		defer ticker.Stop()
		specStarted := false
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
			}
			if !o.isTrained() {
				continue
			}
			live := o.liveTelemetry(t)
			if len(live) < 2 {
				continue
			}
			kills := o.Pred.TermList(live)
			if len(kills) == 0 {
				continue
			}
			freedCfgs := make([]*space.Configuration, 0, len(kills))
			for _, core := range kills {
				cfg := t.Contenders[core]
				t.KillSlot(core)
				freedCfgs = append(freedCfgs, cfg)
				if o.Log != nil {
					o.Log.General("gray-box early kill: core=%d config=%s", core, cfg.ID)
				}
			}
			o.mu.Lock()
			o.kills += len(kills)
			o.mu.Unlock()
			if next != "" && !specStarted {
				specStarted = true
				o.startSpeculative(ctx, next, freedCfgs, t.Remaining())
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// startSpeculative races cfgs on instance with the current race's unused
// budget added on top of the full timeout (the S6 inclusion reading of the
// time-advantage semantics), in its own goroutine so the primary Watch is
// never delayed.
func (o *Overlay) startSpeculative(ctx context.Context, instance string, cfgs []*space.Configuration, advantage time.Duration) {
	o.specWG.Add(1)
	go func() {
		defer o.specWG.Done()
		spec := &race.Tournament{
			Instance:     instance,
			Timeout:      o.Timeout + advantage,
			Contenders:   cfgs,
			ObjectiveMin: o.ObjectiveMin,
			Wrap:         o.Wrap,
		}
		spec.Start(ctx)
		spec.Watch(ctx)
		if spec.State().Winner() != "" {
			o.mu.Lock()
			o.solved[instance] = true
			o.mu.Unlock()
			if o.Log != nil {
				o.Log.General("speculative tournament solved %s (winner %s)", instance, spec.State().Winner())
			}
		}
	}()
}

// liveTelemetry snapshots every still-running slot of t.
func (o *Overlay) liveTelemetry(t *race.Tournament) []Telemetry {
	elapsed := time.Since(t.State().StartTime).Seconds()
	var out []Telemetry
	for core, slot := range t.State().Slots {
		snap := slot.Snapshot()
		if snap.Status != race.StatusRunning {
			continue
		}
		out = append(out, Telemetry{
			Core:     core,
			ConfigID: snap.ConfigID,
			Elapsed:  elapsed,
			Interim:  snap.Interim,
		})
	}
	return out
}

// Observe folds one finished real tournament into the predictor's training
// set and retrains. winnerCore is -1 when nobody finished; such races
// carry no ground truth and are skipped.
func (o *Overlay) Observe(slots []race.Slot, winnerCore int) {
	if winnerCore < 0 {
		return
	}
	final := make([]Telemetry, 0, len(slots))
	for core, s := range slots {
		final = append(final, Telemetry{
			Core:     core,
			ConfigID: s.ConfigID,
			Elapsed:  s.WallRuntime.Seconds(),
			Interim:  s.Interim,
		})
	}
	o.Pred.PrepareTrainData(final, winnerCore)
	if err := o.Pred.Train(); err == nil {
		o.mu.Lock()
		o.trained = true
		o.mu.Unlock()
	}
}

// ShouldSkip reports whether instance was already solved by a speculative
// tournament, consuming the skip flag.
func (o *Overlay) ShouldSkip(instance string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.solved[instance] {
		delete(o.solved, instance)
		return true
	}
	return false
}

// Kills reports how many workers the overlay has early-killed so far.
func (o *Overlay) Kills() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.kills
}

// Wait blocks until every in-flight speculative tournament has finished,
// for orderly shutdown.
func (o *Overlay) Wait() {
	o.specWG.Wait()
}

func (o *Overlay) isTrained() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.trained
}
