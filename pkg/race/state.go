// Package race runs one tournament: scenario.NumberCores target algorithm
// processes started together on a problem instance, raced against a
// wall-clock timeout, with their outcomes collected into a RaceState.
package race

import (
	"sync"
	"time"
)

// Status mirrors the original implementation's TARunStatus enum.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusFinished
	StatusCrashed
	StatusKilled
	StatusTimedOut
	StatusEarlyKilled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusCrashed:
		return "crashed"
	case StatusKilled:
		return "killed"
	case StatusTimedOut:
		return "timed_out"
	case StatusEarlyKilled:
		return "early_killed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a final status no later write may replace.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusCrashed, StatusKilled, StatusTimedOut, StatusEarlyKilled:
		return true
	}
	return false
}

// Slot is the mutable per-core record of one worker's progress through a
// tournament, analogous in spirit to the teacher's mutex-guarded MetricSample
// map: fields are written by the slot's worker goroutine (and, for an early
// kill, by the tournament supervisor) and read by the supervisor, so access
// is serialized through the slot's own mutex rather than one giant
// race-wide lock.
type Slot struct {
	mu sync.Mutex

	ConfigID    string
	Objective   float64
	HasResult   bool
	Runtime     time.Duration // process CPU/wall time as self-reported, if any
	WallRuntime time.Duration
	Status      Status
	PID         int
	Interim     []float64
}

func (s *Slot) set(fn func(*Slot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Snapshot returns a copy of the slot's current fields, safe to read
// without holding any lock afterward.
func (s *Slot) Snapshot() Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s
	cp.Interim = append([]float64(nil), s.Interim...)
	return cp
}

func (s *Slot) AppendInterim(v float64) {
	s.set(func(s *Slot) { s.Interim = append(s.Interim, v) })
}

func (s *Slot) SetRunning(pid int) {
	s.set(func(s *Slot) { s.Status = StatusRunning; s.PID = pid })
}

func (s *Slot) SetResult(objective float64, runtime, wallRuntime time.Duration) {
	s.set(func(s *Slot) {
		if s.Status.Terminal() {
			return
		}
		s.Objective = objective
		s.HasResult = true
		s.Runtime = runtime
		s.WallRuntime = wallRuntime
		s.Status = StatusFinished
	})
}

func (s *Slot) SetTerminalStatus(st Status, wallRuntime time.Duration) {
	s.set(func(s *Slot) {
		if s.Status.Terminal() {
			return
		}
		s.Status = st
		s.WallRuntime = wallRuntime
	})
}

// State is the shared bundle of every slot in one tournament, plus the
// race-wide winner cell and cancellation flag.
type State struct {
	StartTime time.Time
	Slots     []*Slot

	winnerOnce sync.Once
	winnerID   string

	cancelMu sync.Mutex
	canceled bool
}

// NewState allocates a State with n empty slots.
func NewState(n int) *State {
	slots := make([]*Slot, n)
	for i := range slots {
		slots[i] = &Slot{Status: StatusPending}
	}
	return &State{StartTime: time.Now(), Slots: slots}
}

// ClaimWinner performs a compare-and-swap: the first call wins and its id
// sticks; later calls are no-ops. Returns true if this call was the one
// that set the winner.
func (st *State) ClaimWinner(id string) bool {
	won := false
	st.winnerOnce.Do(func() {
		st.winnerID = id
		won = true
	})
	return won
}

// Winner returns the claimed winner id, or "" if none has finished yet.
func (st *State) Winner() string {
	return st.winnerID
}

// Cancel marks the race as closing; workers watching Canceled should stop
// submitting new interim readings and let the supervisor finish killing
// them.
func (st *State) Cancel() {
	st.cancelMu.Lock()
	defer st.cancelMu.Unlock()
	st.canceled = true
}

func (st *State) Canceled() bool {
	st.cancelMu.Lock()
	defer st.cancelMu.Unlock()
	return st.canceled
}
