// Package wrapper translates a sampled Configuration into a runnable target
// algorithm command line, and parses that command's stdout back into a
// race result (objective value, optional interim measurements).
package wrapper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/jihwankim/rtac/pkg/space"
)

// Result is what a target algorithm run reported about itself before it
// exited or was killed.
type Result struct {
	Objective float64
	HasResult bool

	// Runtime is the target's self-reported solve time in seconds, when the
	// output declared one; the worker falls back to measured wall time
	// otherwise.
	Runtime    float64
	HasRuntime bool

	Interim []float64 // successive intermediate objective readings, oldest first
}

// InterimMeaning declares whether an interim dimension reads better when
// it decreases or when it increases.
type InterimMeaning string

const (
	Decrease InterimMeaning = "decrease"
	Increase InterimMeaning = "increase"
)

// InterimReporter is the optional Wrapper extension the interim-aware
// tournament method consults: one meaning per interim dimension the
// target emits. Wrappers that never report interim readings need not
// implement it.
type InterimReporter interface {
	InterimInfo() []InterimMeaning
}

// Wrapper knows how to build the command line for a (instance, configuration)
// pair and how to interpret that command's output.
type Wrapper interface {
	// Command returns the executable and arguments to run for instance under
	// cfg. It must not block or start the process itself.
	Command(instance string, cfg *space.Configuration) (name string, args []string)

	// Parse consumes the running process' stdout stream, calling
	// onInterim for every intermediate reading it recognizes, and returns
	// the final result once the stream closes.
	Parse(ctx context.Context, stdout io.Reader, onInterim func(float64)) Result
}

// CLIWrapper is the reference Wrapper: it renders a Configuration as
// "--name value" flags (booleans render as bare flags when true, numeric
// parameters with their Go-native formatting) appended to a fixed
// executable and argument prefix, and reads the target's stdout for lines
// matching the configurable result/interim regular expressions.
type CLIWrapper struct {
	Executable string
	FixedArgs  []string

	// ResultPattern must have exactly one capture group, the final
	// objective value. InterimPattern and RuntimePattern, if set, likewise
	// yield one capture group per recognized reading.
	ResultPattern  *regexp.Regexp
	InterimPattern *regexp.Regexp
	RuntimePattern *regexp.Regexp
}

// DefaultResultPattern matches a line of the form "Result: 12.34" or
// "Final objective: 12.34", case-insensitively.
var DefaultResultPattern = regexp.MustCompile(`(?i)(?:result|final objective)\s*[:=]\s*([-+0-9.eE]+)`)

// DefaultInterimPattern matches "Interim: 12.34" lines.
var DefaultInterimPattern = regexp.MustCompile(`(?i)interim\s*[:=]\s*([-+0-9.eE]+)`)

// DefaultRuntimePattern matches "Time: 12.34" or "Runtime: 12.34" lines,
// the target's own account of how long it spent solving.
var DefaultRuntimePattern = regexp.MustCompile(`(?i)(?:run)?time\s*[:=]\s*([-+0-9.eE]+)`)

// NewCLIWrapper returns a CLIWrapper with the default result/interim
// patterns, ready to have Executable/FixedArgs set by the caller.
func NewCLIWrapper(executable string, fixedArgs ...string) *CLIWrapper {
	return &CLIWrapper{
		Executable:     executable,
		FixedArgs:      fixedArgs,
		ResultPattern:  DefaultResultPattern,
		InterimPattern: DefaultInterimPattern,
		RuntimePattern: DefaultRuntimePattern,
	}
}

// InterimInfo declares the single objective-like interim dimension the
// default patterns recognize.
func (w *CLIWrapper) InterimInfo() []InterimMeaning {
	return []InterimMeaning{Decrease}
}

func (w *CLIWrapper) Command(instance string, cfg *space.Configuration) (string, []string) {
	args := make([]string, 0, len(w.FixedArgs)+1+2*len(cfg.Values))
	args = append(args, w.FixedArgs...)
	args = append(args, "--instance", instance)
	for name, value := range cfg.Values {
		switch v := value.(type) {
		case bool:
			if v {
				args = append(args, fmt.Sprintf("--%s", name))
			}
		default:
			args = append(args, fmt.Sprintf("--%s", name), fmt.Sprintf("%v", v))
		}
	}
	return w.Executable, args
}

func (w *CLIWrapper) Parse(ctx context.Context, stdout io.Reader, onInterim func(float64)) Result {
	var res Result
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return res
		default:
		}
		line := scanner.Text()
		if w.InterimPattern != nil {
			if m := w.InterimPattern.FindStringSubmatch(line); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					res.Interim = append(res.Interim, v)
					if onInterim != nil {
						onInterim(v)
					}
				}
			}
		}
		if w.RuntimePattern != nil {
			if m := w.RuntimePattern.FindStringSubmatch(line); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					res.Runtime = v
					res.HasRuntime = true
				}
			}
		}
		if m := w.ResultPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				res.Objective = v
				res.HasResult = true
			}
		}
	}
	return res
}

// BuildCmd is a small helper most Tournament implementations call: it wires
// a Wrapper's Command output into an *exec.Cmd without starting it.
func BuildCmd(ctx context.Context, w Wrapper, instance string, cfg *space.Configuration) *exec.Cmd {
	name, args := w.Command(instance, cfg)
	return exec.CommandContext(ctx, name, args...)
}
