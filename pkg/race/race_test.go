package race

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/jihwankim/rtac/pkg/space"
	"github.com/jihwankim/rtac/pkg/wrapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepWrapper runs "sh -c sleep N && echo Result: V" so tests exercise a
// real os/exec subprocess, matching the original test suite's and the
// teacher's own exec-based fixtures rather than a mocked process.
type sleepWrapper struct {
	sleep  string
	result string
}

func (w sleepWrapper) Command(instance string, cfg *space.Configuration) (string, []string) {
	script := "sleep " + w.sleep + " && echo Result: " + w.result
	return "sh", []string{"-c", script}
}

func (w sleepWrapper) Parse(ctx context.Context, stdout io.Reader, onInterim func(float64)) wrapper.Result {
	cw := wrapper.NewCLIWrapper("sh")
	return cw.Parse(ctx, stdout, onInterim)
}

type scriptWrapper struct{ script string }

func (w scriptWrapper) Command(instance string, cfg *space.Configuration) (string, []string) {
	return "sh", []string{"-c", w.script}
}

func (w scriptWrapper) Parse(ctx context.Context, stdout io.Reader, onInterim func(float64)) wrapper.Result {
	return wrapper.NewCLIWrapper("sh").Parse(ctx, stdout, onInterim)
}

func cfgWithID(id string) *space.Configuration {
	return &space.Configuration{ID: id, Values: map[string]interface{}{"x": 1}}
}

func TestTournamentFinishesBeforeTimeout(t *testing.T) {
	tourn := &Tournament{
		Instance:   "dummy.cnf",
		Timeout:    3 * time.Second,
		Contenders: []*space.Configuration{cfgWithID("a"), cfgWithID("b")},
		Wrap:       sleepWrapper{sleep: "0.1", result: "1.0"},
	}
	st := tourn.Start(context.Background())
	tourn.Watch(context.Background())

	require.Len(t, st.Slots, 2)
	for _, slot := range st.Slots {
		snap := slot.Snapshot()
		assert.Equal(t, StatusFinished, snap.Status)
		assert.True(t, snap.HasResult)
		assert.Equal(t, 1.0, snap.Objective)
	}
}

func TestTournamentEnforcesTimeout(t *testing.T) {
	tourn := &Tournament{
		Instance:   "dummy.cnf",
		Timeout:    300 * time.Millisecond,
		Contenders: []*space.Configuration{cfgWithID("a")},
		Wrap:       sleepWrapper{sleep: "30", result: "1.0"},
	}
	start := time.Now()
	tourn.Start(context.Background())
	tourn.Watch(context.Background())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 5*time.Second)
	snap := tourn.State().Slots[0].Snapshot()
	assert.Equal(t, StatusKilled, snap.Status)
}

func TestClaimWinnerIsFirstWriterWins(t *testing.T) {
	st := NewState(2)
	assert.True(t, st.ClaimWinner("a"))
	assert.False(t, st.ClaimWinner("b"))
	assert.Equal(t, "a", st.Winner())
}

func TestWorkerWithoutResultLineIsCrashed(t *testing.T) {
	tourn := &Tournament{
		Instance:   "dummy.cnf",
		Timeout:    3 * time.Second,
		Contenders: []*space.Configuration{cfgWithID("silent")},
		Wrap:       scriptWrapper{script: "true"},
	}
	st := tourn.Start(context.Background())
	tourn.Watch(context.Background())

	snap := st.Slots[0].Snapshot()
	assert.Equal(t, StatusCrashed, snap.Status)
	assert.False(t, snap.HasResult)
	assert.Equal(t, "", st.Winner())
}

func TestWorkerNonZeroExitIsCrashed(t *testing.T) {
	tourn := &Tournament{
		Instance:   "dummy.cnf",
		Timeout:    3 * time.Second,
		Contenders: []*space.Configuration{cfgWithID("broken")},
		Wrap:       scriptWrapper{script: "echo garbage && exit 1"},
	}
	st := tourn.Start(context.Background())
	tourn.Watch(context.Background())
	assert.Equal(t, StatusCrashed, st.Slots[0].Snapshot().Status)
}

func TestWorkerClaimsWinnerOnFinish(t *testing.T) {
	tourn := &Tournament{
		Instance:   "dummy.cnf",
		Timeout:    3 * time.Second,
		Contenders: []*space.Configuration{cfgWithID("fast")},
		Wrap:       sleepWrapper{sleep: "0.1", result: "1.0"},
	}
	st := tourn.Start(context.Background())
	tourn.Watch(context.Background())
	assert.Equal(t, "fast", st.Winner())
}

func TestKillSlotOnlyTerminatesThatCore(t *testing.T) {
	tourn := &Tournament{
		Instance:   "dummy.cnf",
		Timeout:    10 * time.Second,
		Contenders: []*space.Configuration{cfgWithID("victim"), cfgWithID("survivor")},
		Wrap:       sleepWrapper{sleep: "0.5", result: "2.0"},
	}
	st := tourn.Start(context.Background())
	time.Sleep(150 * time.Millisecond)
	tourn.KillSlot(0)
	tourn.Watch(context.Background())

	assert.Equal(t, StatusEarlyKilled, st.Slots[0].Snapshot().Status)
	snap := st.Slots[1].Snapshot()
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Equal(t, 2.0, snap.Objective)
}

func TestEarlyKilledSlotStaysTerminal(t *testing.T) {
	s := &Slot{Status: StatusRunning}
	s.SetTerminalStatus(StatusEarlyKilled, time.Second)
	s.SetResult(1.0, time.Second, time.Second)
	s.SetTerminalStatus(StatusCrashed, 2*time.Second)

	snap := s.Snapshot()
	assert.Equal(t, StatusEarlyKilled, snap.Status)
	assert.False(t, snap.HasResult)
}

func TestFillRestartsCoresWithFreshContenders(t *testing.T) {
	tourn := &Tournament{
		Instance:   "dummy.cnf",
		Timeout:    10 * time.Second,
		Contenders: []*space.Configuration{cfgWithID("a"), cfgWithID("b")},
		Wrap:       sleepWrapper{sleep: "0.1", result: "1.0"},
	}
	st := tourn.Start(context.Background())
	tourn.Watch(context.Background())
	require.Equal(t, StatusFinished, st.Slots[0].Snapshot().Status)

	require.NoError(t, tourn.Fill(context.Background(), []int{0}, []*space.Configuration{cfgWithID("c")}))
	tourn.Watch(context.Background())

	snap := tourn.State().Slots[0].Snapshot()
	assert.Equal(t, "c", snap.ConfigID)
	assert.Equal(t, StatusFinished, snap.Status)
}
