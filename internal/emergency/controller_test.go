package emergency_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jihwankim/rtac/internal/emergency"
	"github.com/stretchr/testify/assert"
)

func TestManualStopRunsCallbacksOnce(t *testing.T) {
	c := emergency.New(emergency.Config{StopFile: filepath.Join(t.TempDir(), "stop")})
	calls := 0
	c.OnStop(func() { calls++ })

	c.Stop("test")
	c.Stop("test-again")

	assert.True(t, c.IsStopped())
	assert.Equal(t, 1, calls)
	select {
	case <-c.StopChannel():
	default:
		t.Fatal("expected stop channel to be closed")
	}
}

func TestStopFileTriggersStop(t *testing.T) {
	stopFile := filepath.Join(t.TempDir(), "stop")
	c := emergency.New(emergency.Config{StopFile: stopFile, PollInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	require := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	require(os.WriteFile(stopFile, []byte("stop"), 0644))

	select {
	case <-c.StopChannel():
	case <-time.After(time.Second):
		t.Fatal("expected emergency stop to trigger from stop file")
	}
}
