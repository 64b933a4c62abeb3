package main

import (
	"fmt"

	"github.com/jihwankim/rtac/pkg/scenario/parser"
	"github.com/jihwankim/rtac/pkg/scenario/validator"
	"github.com/jihwankim/rtac/pkg/space"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Args:  cobra.NoArgs,
	Short: "Validate a scenario and its configuration-space file",
	Long: `Parses the scenario YAML and its parameter-space definition without
starting any tournament, and prints a validation report.`,
	RunE: validateScenario,
}

func init() {
	validateCmd.Flags().String("scenario", "", "path to scenario YAML file")
	validateCmd.Flags().StringArray("set", []string{}, "override scenario values (e.g., --set timeout=60)")
}

func validateScenario(cmd *cobra.Command, args []string) error {
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	if scenarioPath == "" {
		return fmt.Errorf("--scenario flag is required")
	}
	setFlags, _ := cmd.Flags().GetStringArray("set")

	p := parser.New(nil)
	scen, err := p.ParseFile(scenarioPath)
	if err != nil {
		return fmt.Errorf("failed to parse scenario: %w", err)
	}

	if len(setFlags) > 0 {
		overrides, err := parser.ParseOverrides(setFlags)
		if err != nil {
			return fmt.Errorf("failed to parse overrides: %w", err)
		}
		if err := parser.ApplyOverrides(scen, overrides); err != nil {
			return fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	v := validator.New()
	validationErr := v.Validate(scen)
	fmt.Print(v.GetReport())
	if validationErr != nil {
		return fmt.Errorf("scenario validation failed: %w", validationErr)
	}

	cs, err := space.LoadConfigSpace(scen.Spec.ParamFile)
	if err != nil {
		return fmt.Errorf("configuration space validation failed: %w", err)
	}
	fmt.Printf("Configuration space OK: %d parameters.\n", len(cs.Order))
	return nil
}
