package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/daydemir/conveyor/internal/capability"
	"github.com/daydemir/conveyor/internal/config"
	"github.com/daydemir/conveyor/internal/display"
	"github.com/daydemir/conveyor/internal/planstore"
	"github.com/daydemir/conveyor/internal/riskgate"
	"github.com/daydemir/conveyor/internal/runstate"
	"github.com/daydemir/conveyor/internal/scheduler"
)

// automationRoot is the repo-relative directory every persistent file
// spec.md §6 names lives under.
const automationRoot = "docs/ops/automation"

func configPath(root string) string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(root, automationRoot, "orchestrator.config.json")
}

func runStatePath(root string) string     { return filepath.Join(root, automationRoot, "run-state.json") }
func eventsPath(root string) string       { return filepath.Join(root, automationRoot, "run-events.jsonl") }
func lockPath(root string) string         { return filepath.Join(root, automationRoot, "runtime", "orchestrator.lock.json") }
func runtimeDir(root string) string       { return filepath.Join(root, automationRoot, "runtime") }
func handoffsDirRel() string              { return filepath.Join(automationRoot, "handoffs") }

// runFlags is the common flag set spec.md §6 gives every subcommand that
// drives a run (shared between `run` and `resume`, mirroring ralph's
// run.go package-level flag vars).
type runFlags struct {
	mode                 string
	maxPlans             int
	contextThreshold     int
	requireResultPayload bool
	handoffTokenBudget   int
	maxRollovers         int
	maxSessionsPerPlan   int
	validation           string
	commit               bool
	skipPromotion        bool
	allowDirty           bool
	runID                string
	planID               string
	scope                string
	dryRun               bool
	jsonOutput           bool
	output               string
	failureTailLines     int
	heartbeatSeconds     int
	stallWarnSeconds     int
}

func addSharedRunFlags(cmd *cobra.Command) *runFlags {
	f := &runFlags{}
	cmd.Flags().StringVar(&f.mode, "mode", "guarded", "autonomy mode: guarded or full")
	cmd.Flags().IntVar(&f.maxPlans, "max-plans", 0, "stop after this many plans (0 = unbounded)")
	cmd.Flags().IntVar(&f.contextThreshold, "context-threshold", 0, "override executor.contextThreshold")
	cmd.Flags().BoolVar(&f.requireResultPayload, "require-result-payload", false, "override executor.requireResultPayload")
	cmd.Flags().IntVar(&f.handoffTokenBudget, "handoff-token-budget", 0, "token budget passed to sessions as ORCH_HANDOFF_TOKEN_BUDGET")
	cmd.Flags().IntVar(&f.maxRollovers, "max-rollovers", 20, "max handoff rollovers per plan before failing it")
	cmd.Flags().IntVar(&f.maxSessionsPerPlan, "max-sessions-per-plan", 20, "max sessions per plan before it's left pending")
	cmd.Flags().StringVar(&f.validation, "validation", "", `override validation.always, e.g. "cmd1;;cmd2"`)
	cmd.Flags().BoolVar(&f.commit, "commit", true, "attempt an atomic git commit on plan completion")
	cmd.Flags().BoolVar(&f.skipPromotion, "skip-promotion", false, "don't promote ready-for-promotion future plans")
	cmd.Flags().BoolVar(&f.allowDirty, "allow-dirty", false, "refuse commits rather than committing a dirty tree")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "run identifier (default: generated for run, read from state for resume)")
	cmd.Flags().StringVar(&f.planID, "plan-id", "", "scope the run to a single plan id")
	cmd.Flags().StringVar(&f.scope, "scope", "active", "catalog scope: active, completed, or all")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "don't persist run state or events")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "print the run summary as JSON")
	cmd.Flags().StringVar(&f.output, "output", "", "output mode: minimal, ticker, pretty, or verbose (default from config)")
	cmd.Flags().IntVar(&f.failureTailLines, "failure-tail-lines", 0, "override logging.failureTailLines")
	cmd.Flags().IntVar(&f.heartbeatSeconds, "heartbeat-seconds", 0, "override logging.heartbeatSeconds")
	cmd.Flags().IntVar(&f.stallWarnSeconds, "stall-warn-seconds", 0, "override logging.stallWarnSeconds")
	return f
}

// loadConfig loads the orchestrator config and layers the subset of flags
// that have a config-document equivalent on top of it.
func loadConfig(cmd *cobra.Command, root string, f *runFlags) (*config.Config, error) {
	cfg, err := config.Load(configPath(root))
	if err != nil {
		return nil, fmt.Errorf("cli: loading config: %w", err)
	}

	if cmd.Flags().Changed("context-threshold") {
		cfg.Executor.ContextThreshold = f.contextThreshold
	}
	if cmd.Flags().Changed("require-result-payload") {
		cfg.Executor.RequireResultPayload = f.requireResultPayload
	}
	if cmd.Flags().Changed("validation") {
		cfg.Validation.Always = strings.Split(f.validation, ";;")
	}
	if cmd.Flags().Changed("failure-tail-lines") {
		cfg.Logging.FailureTailLines = f.failureTailLines
	}
	if cmd.Flags().Changed("heartbeat-seconds") {
		cfg.Logging.HeartbeatSeconds = f.heartbeatSeconds
	}
	if cmd.Flags().Changed("stall-warn-seconds") {
		cfg.Logging.StallWarnSeconds = f.stallWarnSeconds
	}
	if cmd.Flags().Changed("output") {
		cfg.Logging.Output = f.output
	}

	if err := config.AssertStartup(cfg, f.allowDirty, f.commit); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newDisplay(cfg *config.Config) (*display.Display, error) {
	mode, err := display.ParseMode(cfg.Logging.Output)
	if err != nil {
		return nil, err
	}
	noColor := os.Getenv("NO_COLOR") != ""
	return display.New(mode, noColor), nil
}

// buildSchedulerDeps assembles scheduler.Deps from loaded config, probed
// capabilities, and the run's identity, per spec.md §4.3/§6.
func buildSchedulerDeps(ctx context.Context, root, runID string, effectiveMode runstate.EffectiveMode, cfg *config.Config, f *runFlags, disp *display.Display, events *runstate.EventLog) (scheduler.Deps, error) {
	caps := capability.Probe(ctx)

	return scheduler.Deps{
		Store:              planstore.NewStore(root),
		Config:             cfg,
		Capabilities:        caps,
		Env:                riskgate.NewOSEnv(os.LookupEnv),
		Events:              events,
		RunID:               runID,
		EffectiveMode:       effectiveMode,
		RuntimeDir:          runtimeDir(root),
		HandoffsDir:         handoffsDirRel(),
		Capture:             disp.Mode() != display.ModeVerbose,
		AllowDirty:          f.allowDirty,
		Commit:              f.commit,
		HandoffTokenBudget:  f.handoffTokenBudget,
		MaxSessionsPerPlan:  f.maxSessionsPerPlan,
		MaxRollovers:        f.maxRollovers,
		FailureTailLines:    cfg.Logging.FailureTailLines,
		HeartbeatSeconds:    cfg.Logging.HeartbeatSeconds,
		StallWarnSeconds:    cfg.Logging.StallWarnSeconds,
		OnHeartbeat:         disp.Heartbeat,
		OnStallWarning:      disp.StallWarning,
	}, nil
}

// driveRun acquires the run lock, drives the scheduler loop, and releases
// the lock on every exit path (including a mid-loop error).
func driveRun(cmd *cobra.Command, f *runFlags, runID string, requestedMode runstate.EffectiveMode) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, root, f)
	if err != nil {
		return err
	}

	disp, err := newDisplay(cfg)
	if err != nil {
		return err
	}

	effectiveMode := riskgate.ResolveEffectiveMode(requestedMode, riskgate.NewOSEnv(os.LookupEnv))

	lock := runstate.NewLock(lockPath(root))
	if !f.dryRun {
		if err := os.MkdirAll(filepath.Dir(lockPath(root)), 0o755); err != nil {
			return err
		}
		if err := lock.Acquire(runstate.LockRecord{
			PID:        os.Getpid(),
			RunID:      runID,
			Mode:       string(effectiveMode),
			AcquiredAt: time.Now().UTC().Format(time.RFC3339),
			Cwd:        root,
		}); err != nil {
			return err
		}
		defer lock.Release()
	}

	stateStore := runstate.NewStore(runStatePath(root), f.dryRun)
	st, err := stateStore.Load()
	if err != nil {
		return fmt.Errorf("cli: loading run state: %w", err)
	}
	if st == nil {
		st = runstate.New(runID, requestedMode, time.Now().UTC().Format(time.RFC3339))
	}
	st.EffectiveMode = effectiveMode

	events := runstate.NewEventLog(eventsPath(root), f.dryRun)

	ctx := context.Background()
	deps, err := buildSchedulerDeps(ctx, root, runID, effectiveMode, cfg, f, disp, events)
	if err != nil {
		return err
	}

	disp.RunStart(runID, string(deps.EffectiveMode))

	result, err := scheduler.Run(ctx, deps, stateStore, st, scheduler.LoopOptions{
		MaxPlans:      f.maxPlans,
		SkipPromotion: f.skipPromotion,
		OnlyPlanID:    f.planID,
	})
	if err != nil {
		disp.Error(err.Error())
		return err
	}

	if f.jsonOutput {
		printJSONSummary(result)
	} else {
		disp.RunSummary(result.Completed, result.Blocked, result.Failed, result.Pending)
	}

	// Plan-level failures are a normal run outcome, not a command error:
	// the orchestrator exits 0 whenever the run loop itself completed.
	return nil
}

func printJSONSummary(result scheduler.LoopResult) {
	fmt.Printf(`{"ran":%d,"completed":%s,"blocked":%s,"failed":%s,"pending":%s}`+"\n",
		len(result.Ran), jsonStrings(result.Completed), jsonStrings(result.Blocked),
		jsonStrings(result.Failed), jsonStrings(result.Pending))
}

func jsonStrings(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func newRunID() string {
	return uuid.NewString()
}
