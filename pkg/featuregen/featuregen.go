// Package featuregen computes fixed-length numeric feature vectors for
// problem instances. The run command computes them per instance and logs
// their count; neither the CPPL contender draw nor the GrayBox predictor
// reads them. This engine has no opinion on how to compute them —
// every domain (SAT, TSP, ...) ships its own feature extractor, matching
// the original implementation's rtac/feature_gen/{cadical_feats.py,
// tsp_feats.py} split: one small script per target algorithm family,
// invoked as a subprocess and read back as a line of numbers.
package featuregen

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FeatureGen computes the feature vector for one problem instance.
type FeatureGen interface {
	Features(ctx context.Context, instance string) ([]float64, error)
}

// ExecFeatureGen shells out to an external executable that prints one
// whitespace-separated line of floats to stdout per invocation, the same
// calling convention the original implementation's feature_gen scripts
// follow when invoked from tournament_manager.py.
type ExecFeatureGen struct {
	Executable string
	FixedArgs  []string
}

// NewExecFeatureGen returns an ExecFeatureGen bound to executable.
func NewExecFeatureGen(executable string, fixedArgs ...string) *ExecFeatureGen {
	return &ExecFeatureGen{Executable: executable, FixedArgs: fixedArgs}
}

func (f *ExecFeatureGen) Features(ctx context.Context, instance string) ([]float64, error) {
	args := append(append([]string(nil), f.FixedArgs...), instance)
	cmd := exec.CommandContext(ctx, f.Executable, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("featuregen: running %s: %w", f.Executable, err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		feats := make([]float64, 0, len(fields))
		for _, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("featuregen: parsing feature %q: %w", tok, err)
			}
			feats = append(feats, v)
		}
		return feats, nil
	}
	return nil, fmt.Errorf("featuregen: %s produced no output for instance %s", f.Executable, instance)
}
