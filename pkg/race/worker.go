package race

import (
	"bytes"
	"context"
	"sync"
	"syscall"
	"time"

	"github.com/jihwankim/rtac/pkg/space"
	"github.com/jihwankim/rtac/pkg/wrapper"
)

// Worker supervises one target algorithm subprocess for the duration of a
// tournament: it builds the command from a Wrapper, waits at a start
// barrier alongside its siblings so every contender begins at (as close as
// userspace allows to) the same instant, pins the process to its core once
// running, streams its stdout through the Wrapper's parser, and records the
// outcome into its Slot.
type Worker struct {
	Core   int
	Cfg    *space.Configuration
	Wrap   wrapper.Wrapper
	Slot   *Slot
	Logger interface {
		Debug(msg string, fields ...any)
	}
}

// Run is called once per tournament, in its own goroutine. barrier is the
// race's start rendezvous: each worker checks in once its command is
// built, holds until every sibling has checked in, and only then execs
// its target, so all contenders share the same start instant.
func (w *Worker) Run(ctx context.Context, instance string, barrier *sync.WaitGroup, st *State) {
	w.Slot.ConfigID = w.Cfg.ID
	cmd := wrapper.BuildCmd(ctx, w.Wrap, instance, w.Cfg)
	// On cancellation SIGKILL the target's whole process tree, not only the
	// direct child: a grandchild that inherited stdout would otherwise keep
	// the pipe open and hold this worker until it exits on its own.
	cmd.Cancel = func() error {
		for _, p := range pidTree(cmd.Process.Pid) {
			_ = syscall.Kill(p, syscall.SIGKILL)
		}
		return nil
	}
	stdout, pipeErr := cmd.StdoutPipe()
	cmd.Stderr = &bytes.Buffer{}

	barrier.Done()
	barrier.Wait()

	if pipeErr != nil {
		w.Slot.SetTerminalStatus(StatusCrashed, 0)
		return
	}
	if st.Canceled() {
		w.Slot.SetTerminalStatus(StatusKilled, 0)
		return
	}
	if err := cmd.Start(); err != nil {
		w.Slot.SetTerminalStatus(StatusCrashed, 0)
		return
	}

	startedAt := time.Now()
	w.Slot.SetRunning(cmd.Process.Pid)
	if w.Logger != nil {
		w.Logger.Debug("target started", "pid", cmd.Process.Pid, "config", w.Cfg.ID)
	}

	// Recursive affinity: one pin immediately after release, one more a
	// short while later to catch children the target forks late.
	time.Sleep(10 * time.Millisecond)
	_ = pinRecursive(cmd.Process.Pid, w.Core)
	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = pinRecursive(cmd.Process.Pid, w.Core)
	}()

	result := w.Wrap.Parse(ctx, stdout, w.Slot.AppendInterim)
	_ = cmd.Wait()
	wall := time.Since(startedAt)

	// A parsed result counts even when the race is already closing: the
	// grace window before the kill exists precisely so a well-behaved
	// target can flush its final best-so-far. On an early-killed slot the
	// write is a no-op, the slot stays terminal, and no winner is claimed.
	if result.HasResult {
		runtime := wall
		if result.HasRuntime {
			runtime = time.Duration(result.Runtime * float64(time.Second))
		}
		w.Slot.SetResult(result.Objective, runtime, wall)
		if w.Slot.Snapshot().Status == StatusFinished {
			st.ClaimWinner(w.Cfg.ID)
		}
		return
	}
	if st.Canceled() {
		w.Slot.SetTerminalStatus(StatusKilled, wall)
		return
	}
	// Exited (cleanly or not) without a recognizable result line: a parse
	// failure and a crash collapse to the same sentinel outcome.
	w.Slot.SetTerminalStatus(StatusCrashed, wall)
}
