package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/jihwankim/rtac/internal/emergency"
	"github.com/jihwankim/rtac/internal/metrics"
	"github.com/jihwankim/rtac/pkg/config"
	"github.com/jihwankim/rtac/pkg/driver"
	"github.com/jihwankim/rtac/pkg/featuregen"
	"github.com/jihwankim/rtac/pkg/graybox"
	"github.com/jihwankim/rtac/pkg/pool"
	"github.com/jihwankim/rtac/pkg/ranker"
	"github.com/jihwankim/rtac/pkg/reporting"
	"github.com/jihwankim/rtac/pkg/scenario"
	"github.com/jihwankim/rtac/pkg/scenario/parser"
	"github.com/jihwankim/rtac/pkg/scenario/validator"
	"github.com/jihwankim/rtac/pkg/snapshot"
	"github.com/jihwankim/rtac/pkg/space"
	"github.com/jihwankim/rtac/pkg/wrapper"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Execute an RTAC scenario",
	Long:  `Loads a scenario YAML file and runs the tournament loop over its instance stream.`,
	RunE:  runScenario,
}

func init() {
	runCmd.Flags().String("scenario", "", "path to scenario YAML file")
	runCmd.Flags().StringArray("set", []string{}, "override scenario values (e.g., --set timeout=60)")
	runCmd.Flags().Int64("seed", 0, "RNG seed (0 = derive from current time)")
	runCmd.Flags().Bool("dry-run", false, "validate scenario without executing")
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	if scenarioPath == "" {
		return fmt.Errorf("--scenario flag is required")
	}
	setFlags, _ := cmd.Flags().GetStringArray("set")
	seed, _ := cmd.Flags().GetInt64("seed")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info("RTAC starting", "version", version)

	logger.Info("Parsing scenario", "file", scenarioPath)
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
		logger.Debug("Applied overrides", "count", len(overrides))
	}

	v := validator.New()
	if err := v.Validate(scen); err != nil {
		fmt.Print(v.GetReport())
		return fmt.Errorf("scenario validation failed: %w", err)
	}
	for _, warning := range v.Warnings {
		logger.Warn(warning)
	}
	logger.Info("Scenario validated", "name", scen.Metadata.Name)

	if dryRun {
		fmt.Println("Scenario is valid (dry-run mode)")
		return nil
	}

	return executeScenario(cfg, scen, logger, seed)
}

// executeScenario is the shared run/resume execution path: build every
// collaborator, then drive the instance stream to completion or emergency
// stop.
func executeScenario(cfg *config.Config, scen *scenario.Scenario, logger *reporting.Logger, seed int64) error {
	sp := &scen.Spec
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	logger.Info("RNG seeded", "seed", seed)

	logRoot := sp.LogFolder
	if logRoot == "" {
		logRoot = cfg.Reporting.LogFolder
	}
	tlog, err := reporting.NewTournamentLog(logRoot, sp.LogDirName(), logger)
	if err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := tlog.WriteScenario(scen); err != nil {
		return fmt.Errorf("failed to persist scenario: %w", err)
	}

	cs, err := space.LoadConfigSpace(sp.ParamFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration space: %w", err)
	}
	logger.Info("Configuration space loaded", "parameters", len(cs.Order))

	wrap := wrapper.NewCLIWrapper(sp.Wrapper)

	var rank ranker.Ranker
	switch sp.AC {
	case scenario.ReACTR:
		rank = ranker.NewReACTR(sp.ObjectiveMin)
	case scenario.ReACTRpp:
		rank = ranker.NewReACTRpp(sp.ObjectiveMin)
	case scenario.CPPL:
		rank = ranker.NewCPPL(sp.ObjectiveMin)
	default:
		return fmt.Errorf("unknown ac method %q", sp.AC)
	}

	var fg featuregen.FeatureGen
	if sp.FeatureGen != "" {
		fg = featuregen.NewExecFeatureGen(sp.FeatureGen)
	}

	// Child processes inherit these limits, so a numerics-heavy target
	// cannot fan out beyond the core its worker is pinned to.
	initThreadLimits()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Safety.MaxScenarioDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Safety.MaxScenarioDuration)
		defer cancel()
	}

	ctrl := emergency.New(emergency.Config{
		StopFile:             cfg.Emergency.StopFile,
		PollInterval:         cfg.Emergency.PollInterval,
		EnableSignalHandlers: true,
		Logger:               logger,
	})
	ctrl.OnStop(cancel)
	ctrl.Start(ctx)

	var drv *driver.Driver
	if sp.Resume || sp.Experimental {
		var snap *snapshot.Snapshot
		if sp.Experimental {
			snap, err = snapshot.LoadExperimental(tlog.Dir())
		} else {
			snap, err = snapshot.LoadLatest(tlog.Dir())
		}
		if err != nil {
			return fmt.Errorf("failed to load resume snapshot: %w", err)
		}
		drv = driver.Resume(sp, cs, snap, rank, rng, wrap, tlog)
		logger.Info("Resumed from snapshot", "tourn_nr", drv.TournNr)
	} else {
		params := pool.Params{
			PoolSize:        sp.Contenders,
			NumContenders:   sp.EffectiveCores(),
			KillSigma:       sp.KillSigma,
			ChancePct:       sp.ChancePct,
			MutationRatePct: sp.MutationRatePct,
			ParentPoolSize:  5,
			KeepDefault:     sp.PWS,
			KeepTop:         sp.KeepTop,
		}
		pm := pool.New(cs, params, rank, rng)
		drv = driver.New(sp, cs, pm, wrap, tlog)

		// The tournament-0 snapshot records the initial pool so the
		// experimental flag can always restart a run from scratch.
		snap0 := snapshot.FromPool(0, pm.Pool, pm.Scores, drv.Contenders, pm.DefaultID)
		if err := snapshot.Save(tlog.Dir(), 0, snap0); err != nil {
			return fmt.Errorf("failed to write initial snapshot: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		m := metrics.New()
		drv.Metrics = m
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Warn("metrics server failed", "error", err)
			}
		}()
		logger.Info("Metrics exposed", "addr", cfg.Metrics.Addr)
	}

	var overlay *graybox.Overlay
	if sp.GrayBox && !sp.BaselinePerf {
		overlay = graybox.New(graybox.NewCostSensitiveLogit(), sp.GBReadTime, sp.Timeout, sp.ObjectiveMin, wrap, tlog)
		drv.Gray = overlay
		logger.Info("Gray-box overlay enabled", "read_time", sp.GBReadTime)
	}

	instances, err := readInstanceStream(sp.InstanceFile)
	if err != nil {
		return fmt.Errorf("failed to read instance stream: %w", err)
	}
	logger.Info("Instance stream loaded", "instances", len(instances))

	startNr := drv.TournNr
	for i, instance := range instances {
		if i < startNr {
			continue // already completed before the resume point
		}
		if ctrl.IsStopped() || ctx.Err() != nil {
			logger.Warn("Stopping before instance", "instance", instance)
			break
		}
		if overlay != nil && overlay.ShouldSkip(instance) {
			tlog.General("instance %s already solved speculatively, skipping", instance)
			logger.Info("Skipping speculatively solved instance", "instance", instance)
			continue
		}
		if fg != nil {
			if feats, err := fg.Features(ctx, instance); err != nil {
				logger.Warn("feature generation failed", "instance", instance, "error", err)
			} else if sp.Verbosity >= 1 {
				logger.Debug("instance features", "instance", instance, "dims", len(feats))
			}
		}

		var outcome driver.Outcome
		if sp.BaselinePerf {
			outcome, err = drv.Baseline(ctx, instance)
		} else {
			next := ""
			if i+1 < len(instances) {
				next = instances[i+1]
			}
			outcome, err = drv.SolveInstanceWithNext(ctx, instance, next)
		}
		if err != nil {
			return fmt.Errorf("tournament %d failed: %w", drv.TournNr, err)
		}
		fmt.Println(drv.ResultMessage(outcome))
	}

	if overlay != nil {
		overlay.Wait()
	}
	logger.Info("Run complete", "tournaments", drv.TournNr)
	return nil
}

// readInstanceStream reads one instance path per line, skipping blanks and
// comment lines.
func readInstanceStream(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open instance file: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read instance file: %w", err)
	}
	return out, nil
}

// initThreadLimits caps the numeric-library thread fan-out of every child
// process spawned after this point. The limits ride the environment rather
// than any global mutable state, and are set once, explicitly, before the
// first worker starts.
func initThreadLimits() {
	for _, key := range []string{"OMP_NUM_THREADS", "OPENBLAS_NUM_THREADS", "MKL_NUM_THREADS", "NUMEXPR_NUM_THREADS"} {
		if os.Getenv(key) == "" {
			os.Setenv(key, "1")
		}
	}
}
