package wrapper

import (
	"context"
	"strings"
	"testing"

	"github.com/jihwankim/rtac/pkg/space"
	"github.com/stretchr/testify/assert"
)

func TestCommandRendersFlags(t *testing.T) {
	w := NewCLIWrapper("solver", "--quiet")
	cfg := &space.Configuration{ID: "x", Values: map[string]interface{}{
		"level": 3,
		"fast":  true,
		"slow":  false,
	}}
	name, args := w.Command("inst.cnf", cfg)
	assert.Equal(t, "solver", name)
	assert.Contains(t, args, "--quiet")
	assert.Contains(t, args, "--instance")
	assert.Contains(t, args, "inst.cnf")
	assert.Contains(t, args, "--level")
	assert.Contains(t, args, "3")
	assert.Contains(t, args, "--fast")
	assert.NotContains(t, args, "--slow")
}

func TestParseResultAndRuntime(t *testing.T) {
	w := NewCLIWrapper("solver")
	out := strings.NewReader("c preamble\nInterim: 9.5\nInterim: 4.25\nTime: 2.5\nResult: 1.5\n")

	var interims []float64
	res := w.Parse(context.Background(), out, func(v float64) { interims = append(interims, v) })

	assert.True(t, res.HasResult)
	assert.Equal(t, 1.5, res.Objective)
	assert.True(t, res.HasRuntime)
	assert.Equal(t, 2.5, res.Runtime)
	assert.Equal(t, []float64{9.5, 4.25}, res.Interim)
	assert.Equal(t, []float64{9.5, 4.25}, interims)
}

func TestCLIWrapperDeclaresInterimMeaning(t *testing.T) {
	var ir InterimReporter = NewCLIWrapper("solver")
	assert.Equal(t, []InterimMeaning{Decrease}, ir.InterimInfo())
}

func TestParseGarbageYieldsNoResult(t *testing.T) {
	w := NewCLIWrapper("solver")
	res := w.Parse(context.Background(), strings.NewReader("no structured output at all\n"), nil)
	assert.False(t, res.HasResult)
	assert.False(t, res.HasRuntime)
	assert.Empty(t, res.Interim)
}
