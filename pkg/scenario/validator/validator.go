// Package validator checks a parsed scenario for internally inconsistent
// or out-of-range option values before a run starts, so a misconfigured
// scenario fails fast with a readable report instead of surfacing as a
// confusing runtime panic mid-race.
package validator

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/jihwankim/rtac/pkg/scenario"
)

// Validator validates RTAC scenarios.
type Validator struct {
	// Warnings are non-fatal issues.
	Warnings []string

	// Errors are fatal issues.
	Errors []string
}

// New creates a new validator.
func New() *Validator {
	return &Validator{
		Warnings: make([]string, 0),
		Errors:   make([]string, 0),
	}
}

// Validate validates a scenario.
func (v *Validator) Validate(s *scenario.Scenario) error {
	v.Warnings = make([]string, 0)
	v.Errors = make([]string, 0)

	v.validateAPIVersion(s)
	v.validateKind(s)
	v.validateMetadata(s)
	v.validateSpec(s)
	v.validateFiles(s)

	if len(v.Errors) > 0 {
		return fmt.Errorf("validation failed with %d errors", len(v.Errors))
	}
	return nil
}

// HasWarnings returns true if there are warnings.
func (v *Validator) HasWarnings() bool { return len(v.Warnings) > 0 }

// HasErrors returns true if there are errors.
func (v *Validator) HasErrors() bool { return len(v.Errors) > 0 }

// GetReport returns a formatted validation report.
func (v *Validator) GetReport() string {
	var sb strings.Builder

	if len(v.Errors) > 0 {
		sb.WriteString("ERRORS:\n")
		for _, err := range v.Errors {
			sb.WriteString(fmt.Sprintf("  - %s\n", err))
		}
	}

	if len(v.Warnings) > 0 {
		sb.WriteString("\nWARNINGS:\n")
		for _, warn := range v.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	if len(v.Errors) == 0 && len(v.Warnings) == 0 {
		sb.WriteString("Validation passed with no issues.\n")
	}

	return sb.String()
}

func (v *Validator) validateAPIVersion(s *scenario.Scenario) {
	if s.APIVersion == "" {
		v.Errors = append(v.Errors, "apiVersion is required")
		return
	}
	if s.APIVersion != "rtac/v1" {
		v.Warnings = append(v.Warnings, fmt.Sprintf("apiVersion '%s' may not be supported (expected: rtac/v1)", s.APIVersion))
	}
}

func (v *Validator) validateKind(s *scenario.Scenario) {
	if s.Kind == "" {
		v.Errors = append(v.Errors, "kind is required")
		return
	}
	if s.Kind != "Scenario" {
		v.Warnings = append(v.Warnings, fmt.Sprintf("kind '%s' may not be supported (expected: Scenario)", s.Kind))
	}
}

func (v *Validator) validateMetadata(s *scenario.Scenario) {
	if s.Metadata.Name == "" {
		v.Errors = append(v.Errors, "metadata.name is required")
		return
	}
	nameRegex := regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	if !nameRegex.MatchString(s.Metadata.Name) {
		v.Errors = append(v.Errors, "metadata.name must be lowercase alphanumeric with hyphens")
	}
}

func (v *Validator) validateSpec(s *scenario.Scenario) {
	sp := &s.Spec

	if sp.NumberCores <= 0 {
		v.Errors = append(v.Errors, "spec.number_cores must be > 0")
	}
	if sp.Contenders <= 0 {
		v.Errors = append(v.Errors, "spec.contenders must be > 0")
	}
	if sp.Contenders > 0 && sp.NumberCores > sp.Contenders {
		v.Errors = append(v.Errors, "spec.number_cores cannot exceed spec.contenders")
	}
	if sp.KeepTop < 0 {
		v.Errors = append(v.Errors, "spec.keeptop cannot be negative")
	}
	if sp.KeepTop > sp.NumberCores {
		v.Errors = append(v.Errors, "spec.keeptop cannot exceed spec.number_cores")
	}
	if sp.Timeout <= 0 {
		v.Errors = append(v.Errors, "spec.timeout must be > 0")
	}
	if sp.ChancePct < 0 || sp.ChancePct > 100 {
		v.Errors = append(v.Errors, "spec.chance must be between 0 and 100")
	}
	if sp.MutationRatePct < 0 || sp.MutationRatePct > 100 {
		v.Errors = append(v.Errors, "spec.mutate must be between 0 and 100")
	}
	if sp.KillSigma < 0 {
		v.Errors = append(v.Errors, "spec.kill cannot be negative")
	}
	if sp.Verbosity < 0 || sp.Verbosity > 2 {
		v.Errors = append(v.Errors, "spec.verbosity must be 0, 1, or 2")
	}

	switch sp.AC {
	case scenario.ReACTR, scenario.ReACTRpp, scenario.CPPL:
	case "":
		v.Errors = append(v.Errors, "spec.ac is required")
	default:
		v.Errors = append(v.Errors, fmt.Sprintf("spec.ac '%s' is invalid (must be ReACTR, ReACTRpp, or CPPL)", sp.AC))
	}

	if sp.AC == scenario.CPPL && sp.FeatureGen == "" {
		v.Errors = append(v.Errors, "spec.feature_gen is required when spec.ac is CPPL")
	}
	if sp.GrayBox && sp.FeatureGen == "" {
		v.Errors = append(v.Errors, "spec.feature_gen is required when spec.gray_box is true")
	}
	if sp.GrayBox && sp.GBReadTime <= 0 {
		v.Errors = append(v.Errors, "spec.gb_read_time must be > 0 when spec.gray_box is true")
	}

	if sp.Wrapper == "" {
		v.Errors = append(v.Errors, "spec.wrapper is required")
	}
	if sp.WrapperName == "" {
		v.Errors = append(v.Errors, "spec.wrapper_name is required")
	}
	if sp.LogFolder == "" {
		v.Errors = append(v.Errors, "spec.log_folder is required")
	}

	if sp.Experimental && !sp.Resume {
		v.Warnings = append(v.Warnings, "spec.experimental is set without spec.resume; it will load the tournament-0 snapshot directly")
	}
	if sp.BaselinePerf && sp.NumberCores != 1 {
		v.Warnings = append(v.Warnings, "spec.baselineperf forces spec.number_cores to 1 regardless of the declared value")
	}
}

func (v *Validator) validateFiles(s *scenario.Scenario) {
	sp := &s.Spec
	if sp.ParamFile == "" {
		v.Errors = append(v.Errors, "spec.param_file is required")
	} else if _, err := os.Stat(sp.ParamFile); err != nil {
		v.Errors = append(v.Errors, fmt.Sprintf("spec.param_file %q is not readable: %v", sp.ParamFile, err))
	}
	if sp.InstanceFile == "" {
		v.Errors = append(v.Errors, "spec.instance_file is required")
	} else if _, err := os.Stat(sp.InstanceFile); err != nil {
		v.Errors = append(v.Errors, fmt.Sprintf("spec.instance_file %q is not readable: %v", sp.InstanceFile, err))
	}
}
