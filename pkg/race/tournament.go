package race

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jihwankim/rtac/pkg/reporting"
	"github.com/jihwankim/rtac/pkg/space"
	"github.com/jihwankim/rtac/pkg/wrapper"
)

// Tournament races len(Contenders) configurations, one per core, on a
// single problem instance, enforcing Timeout by SIGKILL-ing stragglers.
type Tournament struct {
	ID           string
	Number       int
	Instance     string
	Timeout      time.Duration
	Contenders   []*space.Configuration // index i runs on core i
	ObjectiveMin bool                   // grace period before kill, as in the original

	Wrap wrapper.Wrapper
	Log  *reporting.Logger // optional; workers derive per-core child loggers from it

	state   *State
	cancel  context.CancelFunc
	raceCtx context.Context
	workers []*Worker
	cancels []context.CancelFunc // per-core, for early kills of one slot
	wg      sync.WaitGroup

	mu sync.Mutex // guards cancels/workers/Contenders across Fill and KillSlot
}

// Start launches every contender simultaneously on its own core and
// returns immediately; call Watch to block until the tournament ends.
func (t *Tournament) Start(ctx context.Context) *State {
	t.ID = uuid.New().String()
	t.state = NewState(len(t.Contenders))

	raceCtx, cancel := context.WithCancel(ctx)
	t.raceCtx = raceCtx
	t.cancel = cancel

	// N-party rendezvous: every worker signals readiness once its command
	// is built, waits for all siblings, and only then execs its target, so
	// the measured wall-runtimes start from the same instant.
	var barrier sync.WaitGroup
	barrier.Add(len(t.Contenders))

	t.workers = make([]*Worker, len(t.Contenders))
	t.cancels = make([]context.CancelFunc, len(t.Contenders))
	for core, cfg := range t.Contenders {
		workerCtx, workerCancel := context.WithCancel(raceCtx)
		t.cancels[core] = workerCancel
		w := &Worker{Core: core, Cfg: cfg, Wrap: t.Wrap, Slot: t.state.Slots[core]}
		if t.Log != nil {
			w.Logger = t.Log.ForCore(core)
		}
		t.workers[core] = w
		t.wg.Add(1)
		go func(w *Worker, ctx context.Context) {
			defer t.wg.Done()
			w.Run(ctx, t.Instance, &barrier, t.state)
		}(w, workerCtx)
	}

	return t.state
}

// Watch blocks until every worker finishes, or until Timeout elapses (in
// which case it force-closes the tournament and returns once the kill has
// been carried out).
func (t *Tournament) Watch(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(t.Timeout)
	defer timer.Stop()

	select {
	case <-done:
		return
	case <-timer.C:
		t.Close()
		<-done
	case <-ctx.Done():
		t.Close()
		<-done
	}
}

// Close force-terminates any still-running worker. Safe to call multiple
// times and safe to call after the tournament has already finished
// naturally.
func (t *Tournament) Close() {
	t.state.Cancel()
	if t.ObjectiveMin {
		time.Sleep(time.Second) // grace period for target algorithms to flush a final result
	}
	t.cancel()
	t.wg.Wait()
}

// KillSlot terminates the single worker on core without disturbing its
// siblings, recording the early_killed status before the process dies so
// the worker's own exit path cannot reclassify the slot as crashed. This
// is the primitive GrayBox's loser prediction uses.
func (t *Tournament) KillSlot(core int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if core < 0 || core >= len(t.cancels) {
		return
	}
	t.state.Slots[core].SetTerminalStatus(StatusEarlyKilled, time.Since(t.state.StartTime))
	if c := t.cancels[core]; c != nil {
		c()
	}
}

// RunningCores lists the cores whose worker is still in the running state.
func (t *Tournament) RunningCores() []int {
	var out []int
	for i, s := range t.state.Slots {
		if s.Snapshot().Status == StatusRunning {
			out = append(out, i)
		}
	}
	return out
}

// Remaining reports how much of the wall-clock budget is left, clamped at
// zero, the quantity GrayBox carries over to a speculative race as its
// time advantage.
func (t *Tournament) Remaining() time.Duration {
	left := t.Timeout - time.Since(t.state.StartTime)
	if left < 0 {
		return 0
	}
	return left
}

// Fill reassigns a subset of already-finished cores to fresh contenders
// without tearing down the whole tournament, so cores whose original race
// is decided can be kept busy under the same RaceState. The GrayBox
// overlay does not use it; its speculative race is a separate Tournament.
func (t *Tournament) Fill(ctx context.Context, cores []int, contenders []*space.Configuration) error {
	if len(cores) != len(contenders) {
		return fmt.Errorf("race: Fill got %d cores but %d contenders", len(cores), len(contenders))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var barrier sync.WaitGroup
	barrier.Add(len(cores))
	for i, core := range cores {
		cfg := contenders[i]
		t.Contenders[core] = cfg
		slot := &Slot{Status: StatusPending}
		t.state.Slots[core] = slot
		workerCtx, workerCancel := context.WithCancel(ctx)
		t.cancels[core] = workerCancel
		w := &Worker{Core: core, Cfg: cfg, Wrap: t.Wrap, Slot: slot}
		if t.Log != nil {
			w.Logger = t.Log.ForCore(core)
		}
		t.workers[core] = w
		t.wg.Add(1)
		go func(w *Worker, ctx context.Context) {
			defer t.wg.Done()
			w.Run(ctx, t.Instance, &barrier, t.state)
		}(w, workerCtx)
	}
	return nil
}

// State returns the tournament's shared race state.
func (t *Tournament) State() *State { return t.state }
