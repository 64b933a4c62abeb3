package main

import (
	"fmt"

	"github.com/jihwankim/rtac/pkg/scenario/parser"
	"github.com/jihwankim/rtac/pkg/scenario/validator"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Args:  cobra.NoArgs,
	Short: "Resume an interrupted RTAC run from its last snapshot",
	Long: `Loads a scenario YAML file, forces its resume flag on, and continues the
tournament loop from the last persisted snapshot in the scenario's log
directory. With --experimental the tournament-0 snapshot is loaded instead.`,
	RunE: resumeScenario,
}

func init() {
	resumeCmd.Flags().String("scenario", "", "path to scenario YAML file")
	resumeCmd.Flags().StringArray("set", []string{}, "override scenario values (e.g., --set timeout=60)")
	resumeCmd.Flags().Int64("seed", 0, "RNG seed (0 = derive from current time)")
	resumeCmd.Flags().Bool("experimental", false, "load the tournament-0 snapshot instead of the latest")
}

func resumeScenario(cmd *cobra.Command, args []string) error {
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	if scenarioPath == "" {
		return fmt.Errorf("--scenario flag is required")
	}
	setFlags, _ := cmd.Flags().GetStringArray("set")
	seed, _ := cmd.Flags().GetInt64("seed")
	experimental, _ := cmd.Flags().GetBool("experimental")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info("RTAC resuming", "version", version)

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

	scen.Spec.Resume = true
	scen.Spec.Experimental = experimental

	v := validator.New()
	if err := v.Validate(scen); err != nil {
		fmt.Print(v.GetReport())
		return fmt.Errorf("scenario validation failed: %w", err)
	}
	for _, warning := range v.Warnings {
		logger.Warn(warning)
	}

	return executeScenario(cfg, scen, logger, seed)
}
