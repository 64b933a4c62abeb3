package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jihwankim/rtac/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	dir := t.TempDir()
	paramFile := filepath.Join(dir, "params.yaml")
	instanceFile := filepath.Join(dir, "instances.txt")
	require.NoError(t, os.WriteFile(paramFile, []byte("parameters: []\n"), 0644))
	require.NoError(t, os.WriteFile(instanceFile, []byte("inst1\n"), 0644))

	return &scenario.Scenario{
		APIVersion: "rtac/v1",
		Kind:       "Scenario",
		Metadata:   scenario.Metadata{Name: "test-scenario"},
		Spec: scenario.Spec{
			NumberCores:  2,
			Contenders:   8,
			KeepTop:      2,
			Timeout:      5_000_000_000,
			ChancePct:    10,
			MutationRatePct: 5,
			KillSigma:    1,
			AC:           scenario.ReACTR,
			Wrapper:      "solver",
			WrapperName:  "solver",
			LogFolder:    dir,
			ParamFile:    paramFile,
			InstanceFile: instanceFile,
		},
	}
}

func TestValidateAcceptsWellFormedScenario(t *testing.T) {
	v := New()
	err := v.Validate(validScenario(t))
	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

func TestValidateRejectsMissingAC(t *testing.T) {
	v := New()
	s := validScenario(t)
	s.Spec.AC = ""
	err := v.Validate(s)
	assert.Error(t, err)
	assert.Contains(t, v.GetReport(), "spec.ac is required")
}

func TestValidateRejectsKeepTopExceedingCores(t *testing.T) {
	v := New()
	s := validScenario(t)
	s.Spec.KeepTop = s.Spec.NumberCores + 1
	err := v.Validate(s)
	assert.Error(t, err)
}

func TestValidateRequiresFeatureGenForCPPL(t *testing.T) {
	v := New()
	s := validScenario(t)
	s.Spec.AC = scenario.CPPL
	err := v.Validate(s)
	assert.Error(t, err)
	assert.Contains(t, v.GetReport(), "feature_gen is required when spec.ac is CPPL")
}

func TestValidateWarnsOnBaselinePerfCoreMismatch(t *testing.T) {
	v := New()
	s := validScenario(t)
	s.Spec.BaselinePerf = true
	err := v.Validate(s)
	assert.NoError(t, err)
	assert.True(t, v.HasWarnings())
}

func TestValidateRejectsUnreadableParamFile(t *testing.T) {
	v := New()
	s := validScenario(t)
	s.Spec.ParamFile = filepath.Join(t.TempDir(), "missing.yaml")
	err := v.Validate(s)
	assert.Error(t, err)
}
