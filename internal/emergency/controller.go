// Package emergency turns an operator stop request into one orderly RTAC
// shutdown: a sentinel file appearing on disk or a SIGINT/SIGTERM closes
// the stop channel and runs the registered callbacks once, so the driver
// can let the in-flight race close, flush its resume snapshot, and exit
// instead of leaving pinned worker processes and half-written logs behind.
package emergency

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jihwankim/rtac/pkg/reporting"
)

// Config configures a Controller.
type Config struct {
	// StopFile is the sentinel path polled for an operator stop request.
	StopFile string

	// PollInterval between stop-file checks.
	PollInterval time.Duration

	// EnableSignalHandlers also treats SIGINT/SIGTERM as a stop request.
	EnableSignalHandlers bool

	// Logger receives the shutdown audit trail; nil silences it.
	Logger *reporting.Logger
}

// Controller watches for stop conditions and fans the first one out to
// every registered callback, exactly once.
type Controller struct {
	cfg Config
	log *reporting.Logger

	mu        sync.Mutex
	stopped   bool
	callbacks []func()
	stopCh    chan struct{}
}

// New creates a Controller; zero Config fields get working defaults.
func New(cfg Config) *Controller {
	if cfg.StopFile == "" {
		cfg.StopFile = "/tmp/rtac-emergency-stop"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	return &Controller{cfg: cfg, log: cfg.Logger, stopCh: make(chan struct{})}
}

// Start begins watching until ctx ends. One goroutine serves both the
// stop-file poll and, when enabled, the signal channel; whichever fires
// first wins and the watcher retires.
func (c *Controller) Start(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	if c.cfg.EnableSignalHandlers {
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	go func() {
		defer signal.Stop(sigCh)
		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				c.trigger("signal " + sig.String())
				return
			case <-ticker.C:
				if _, err := os.Stat(c.cfg.StopFile); err == nil {
					c.trigger("stop file " + c.cfg.StopFile)
					return
				}
			}
		}
	}()
}

// trigger runs the shutdown exactly once: the stop channel closes first so
// the driver loop stops accepting instances, then callbacks run in
// registration order.
func (c *Controller) trigger(reason string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	callbacks := append([]func(){}, c.callbacks...)
	close(c.stopCh)
	c.mu.Unlock()

	if c.log != nil {
		c.log.Warn("emergency stop: finishing current tournament and flushing snapshot", "reason", reason)
	}
	for _, cb := range callbacks {
		cb()
	}
}

// Stop triggers the shutdown manually.
func (c *Controller) Stop(reason string) {
	c.trigger(reason)
}

// IsStopped reports whether a stop has been triggered.
func (c *Controller) IsStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// StopChannel returns a channel that closes when a stop is triggered, for
// select-based waiters.
func (c *Controller) StopChannel() <-chan struct{} {
	return c.stopCh
}

// OnStop registers a callback to run when a stop is triggered, in
// registration order. The run command registers the cancel of its run
// context here, which closes the in-flight race.
func (c *Controller) OnStop(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, callback)
}
