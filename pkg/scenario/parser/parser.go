// Package parser reads a scenario YAML file, substituting ${VAR}/$VAR
// references from the environment and caller-supplied variables, and
// applies --set dotted-path CLI overrides on top of the parsed document.
package parser

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jihwankim/rtac/pkg/scenario"
	"gopkg.in/yaml.v3"
)

// Parser parses RTAC scenario YAML files.
type Parser struct {
	// Variables for substitution.
	Variables map[string]string
}

// New creates a new parser with optional variables.
func New(variables map[string]string) *Parser {
	if variables == nil {
		variables = make(map[string]string)
	}
	return &Parser{Variables: variables}
}

// ParseFile parses a scenario from a YAML file.
func (p *Parser) ParseFile(path string) (*scenario.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return p.Parse(data)
}

// Parse parses a scenario from YAML bytes.
func (p *Parser) Parse(data []byte) (*scenario.Scenario, error) {
	substituted := p.substituteVariables(string(data))

	var s scenario.Scenario
	if err := yaml.Unmarshal([]byte(substituted), &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := p.validateRequiredFields(&s); err != nil {
		return nil, err
	}

	return &s, nil
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteVariables replaces ${VAR} and $VAR with values from the
// environment and parser variables.
func (p *Parser) substituteVariables(content string) string {
	return varPattern.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if val, ok := p.Variables[varName]; ok {
			return val
		}
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// SetVariable sets a variable for substitution.
func (p *Parser) SetVariable(key, value string) {
	p.Variables[key] = value
}

// SetVariables sets multiple variables.
func (p *Parser) SetVariables(vars map[string]string) {
	for k, v := range vars {
		p.Variables[k] = v
	}
}

// ParseOverrides parses CLI override strings (--set key=value).
func ParseOverrides(overrides []string) (map[string]string, error) {
	result := make(map[string]string)

	for _, override := range overrides {
		parts := strings.SplitN(override, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid override format: %s (expected key=value)", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if key == "" {
			return nil, fmt.Errorf("empty key in override: %s", override)
		}

		result[key] = value
	}

	return result, nil
}

// ApplyOverrides applies CLI overrides onto a scenario's Spec fields.
func ApplyOverrides(s *scenario.Scenario, overrides map[string]string) error {
	for key, value := range overrides {
		var err error
		switch key {
		case "number_cores", "spec.number_cores":
			s.Spec.NumberCores, err = strconv.Atoi(value)
		case "contenders", "spec.contenders":
			s.Spec.Contenders, err = strconv.Atoi(value)
		case "keeptop", "spec.keeptop":
			s.Spec.KeepTop, err = strconv.Atoi(value)
		case "timeout", "spec.timeout":
			s.Spec.Timeout, err = parseDuration(value)
		case "chance", "spec.chance":
			s.Spec.ChancePct, err = strconv.ParseFloat(value, 64)
		case "mutate", "spec.mutate":
			s.Spec.MutationRatePct, err = strconv.ParseFloat(value, 64)
		case "kill", "spec.kill":
			s.Spec.KillSigma, err = strconv.ParseFloat(value, 64)
		case "pws", "spec.pws":
			s.Spec.PWS, err = strconv.ParseBool(value)
		case "objective_min", "spec.objective_min":
			s.Spec.ObjectiveMin, err = strconv.ParseBool(value)
		case "baselineperf", "spec.baselineperf":
			s.Spec.BaselinePerf, err = strconv.ParseBool(value)
		case "resume", "spec.resume":
			s.Spec.Resume, err = strconv.ParseBool(value)
		case "experimental", "spec.experimental":
			s.Spec.Experimental, err = strconv.ParseBool(value)
		case "verbosity", "spec.verbosity":
			s.Spec.Verbosity, err = strconv.Atoi(value)
		case "ac", "spec.ac":
			s.Spec.AC = scenario.AC(value)
		case "gray_box", "spec.gray_box":
			s.Spec.GrayBox, err = strconv.ParseBool(value)
		case "gb_read_time", "spec.gb_read_time":
			s.Spec.GBReadTime, err = parseDuration(value)
		case "wrapper", "spec.wrapper":
			s.Spec.Wrapper = value
		case "log_folder", "spec.log_folder":
			s.Spec.LogFolder = value
		case "param_file", "spec.param_file":
			s.Spec.ParamFile = value
		case "instance_file", "spec.instance_file":
			s.Spec.InstanceFile = value
		default:
			return fmt.Errorf("unsupported override key: %s", key)
		}
		if err != nil {
			return fmt.Errorf("invalid override for %s=%s: %w", key, value, err)
		}
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	// A bare integer is interpreted as whole seconds, matching spec.md's
	// "timeout is an integer number of seconds" option.
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %s (use an integer seconds count or a Go duration like 5m)", s)
	}
	return d, nil
}

// validateRequiredFields validates that required fields are present.
func (p *Parser) validateRequiredFields(s *scenario.Scenario) error {
	if s.APIVersion == "" {
		return fmt.Errorf("apiVersion is required")
	}
	if s.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	if s.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	if s.Spec.ParamFile == "" {
		return fmt.Errorf("spec.param_file is required")
	}
	if s.Spec.InstanceFile == "" {
		return fmt.Errorf("spec.instance_file is required")
	}
	return nil
}
