package driver

import (
	"context"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/jihwankim/rtac/pkg/pool"
	"github.com/jihwankim/rtac/pkg/race"
	"github.com/jihwankim/rtac/pkg/ranker"
	"github.com/jihwankim/rtac/pkg/reporting"
	"github.com/jihwankim/rtac/pkg/scenario"
	"github.com/jihwankim/rtac/pkg/snapshot"
	"github.com/jihwankim/rtac/pkg/space"
	"github.com/jihwankim/rtac/pkg/wrapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoWrapper runs a short real subprocess per contender, like the race
// package's test fixture, so the driver loop is exercised end to end.
type echoWrapper struct {
	sleep  string
	result string
}

func (w echoWrapper) Command(instance string, cfg *space.Configuration) (string, []string) {
	return "sh", []string{"-c", "sleep " + w.sleep + " && echo Result: " + w.result}
}

func (w echoWrapper) Parse(ctx context.Context, stdout io.Reader, onInterim func(float64)) wrapper.Result {
	return wrapper.NewCLIWrapper("sh").Parse(ctx, stdout, onInterim)
}

func testSpec() *scenario.Spec {
	return &scenario.Spec{
		NumberCores:     2,
		Contenders:      6,
		KeepTop:         1,
		Timeout:         5 * time.Second,
		ChancePct:       50,
		MutationRatePct: 10,
		KillSigma:       0, // never confident enough to replace in these short runs
		PWS:             true,
		AC:              scenario.ReACTR,
	}
}

func testDriver(t *testing.T, sp *scenario.Spec) *Driver {
	t.Helper()
	cs, err := space.New([]*space.Parameter{
		{Name: "alpha", KindStr: "continuous", Lower: 0, Upper: 1, Default: 0.5},
		{Name: "mode", KindStr: "categorical", Choices: []string{"a", "b"}, Default: "a"},
	})
	require.NoError(t, err)

	logger := reporting.NewLogger(reporting.LoggerConfig{Level: reporting.LogLevelError, Format: reporting.LogFormatJSON})
	tlog, err := reporting.NewTournamentLog(t.TempDir(), "test_ReACTR", logger)
	require.NoError(t, err)

	rank := ranker.NewReACTR(sp.ObjectiveMin)
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
	pm := pool.New(cs, params, rank, rand.New(rand.NewSource(11)))
	return New(sp, cs, pm, echoWrapper{sleep: "0.1", result: "1.0"}, tlog)
}

func TestSolveInstanceAdvancesTournament(t *testing.T) {
	d := testDriver(t, testSpec())
	out, err := d.SolveInstance(context.Background(), "inst-1.cnf")
	require.NoError(t, err)

	assert.True(t, out.Solved)
	assert.NotEmpty(t, out.WinnerID)
	assert.Equal(t, 1, d.TournNr)
	assert.Len(t, d.Contenders, 2)
	assert.Len(t, d.Pool.Pool, 6)

	n, err := d.Log.TournNr()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSolveInstanceTimeoutYieldsNoWinner(t *testing.T) {
	sp := testSpec()
	sp.Timeout = 300 * time.Millisecond
	d := testDriver(t, sp)
	d.Wrap = echoWrapper{sleep: "30", result: "1.0"}

	out, err := d.SolveInstance(context.Background(), "inst-1.cnf")
	require.NoError(t, err)

	assert.False(t, out.Solved)
	assert.Empty(t, out.WinnerID)
	// The tournament counter still advances on an unsolved instance.
	assert.Equal(t, 1, d.TournNr)
	assert.Contains(t, d.ResultMessage(out), "could not be solved")
}

func TestResumeRoundTrip(t *testing.T) {
	sp := testSpec()
	d := testDriver(t, sp)
	_, err := d.SolveInstance(context.Background(), "inst-1.cnf")
	require.NoError(t, err)

	snap, err := snapshot.LoadLatest(d.Log.Dir())
	require.NoError(t, err)

	resumed := Resume(sp, d.Space, snap, ranker.NewReACTR(false), rand.New(rand.NewSource(11)), d.Wrap, d.Log)
	assert.Equal(t, d.TournNr, resumed.TournNr)
	assert.Equal(t, d.Contenders, resumed.Contenders)
	assert.Len(t, resumed.Pool.Pool, 6)
	assert.Equal(t, d.Pool.DefaultID, resumed.Pool.DefaultID)
}

func TestBaselineRacesOnlyDefault(t *testing.T) {
	sp := testSpec()
	sp.BaselinePerf = true
	d := testDriver(t, sp)

	before := make(map[string]ranker.Rating, len(d.Pool.Scores))
	for id, r := range d.Pool.Scores {
		before[id] = r
	}

	out, err := d.Baseline(context.Background(), "inst-1.cnf")
	require.NoError(t, err)

	assert.True(t, out.Solved)
	assert.Equal(t, d.Pool.DefaultID, out.WinnerID)
	assert.Equal(t, 1, d.TournNr)
	// No ranking or evolution in baseline mode.
	assert.Equal(t, before, map[string]ranker.Rating(d.Pool.Scores))
}

func TestWinnerCoreMapsIDBackToSlot(t *testing.T) {
	slots := []race.Slot{{ConfigID: "a"}, {ConfigID: "b"}}
	assert.Equal(t, 1, winnerCore(slots, "b"))
	assert.Equal(t, -1, winnerCore(slots, ""))
	assert.Equal(t, -1, winnerCore(slots, "zz"))
}
