package main

import (
	"context"
	"fmt"

	"driftwatch/internal/approval"
	"driftwatch/internal/baseline"
	"driftwatch/internal/config"
	"driftwatch/internal/drift"
	"driftwatch/internal/embedding"
	"driftwatch/internal/fetch"
	"driftwatch/internal/ledger"
	"driftwatch/internal/logging"
	"driftwatch/internal/orchestrator"
	"driftwatch/internal/report"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagPolicy        string
	flagMaxConcurrent int
	flagPerEntity     bool
	flagShowReport    bool
)

// runCmd executes one monitoring batch
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one monitoring batch over all configured entities",
	Long: `Processes every configured entity in order:
  1. Request fetch approval through the approval gate
  2. Capture a normalized text snapshot of the entity's page
  3. Look up the nearest prior baseline
  4. Classify drift via embedding similarity
Then compiles one consolidated report and persists it as the next
run's baseline. Per-entity failures never abort the batch.`,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringVar(&flagPolicy, "policy", "", "approval policy: auto or deny (overrides config)")
	runCmd.Flags().IntVar(&flagMaxConcurrent, "max-concurrent", 0, "bound on parallel entity processing (overrides config)")
	runCmd.Flags().BoolVar(&flagPerEntity, "per-entity", false, "also keep per-entity snapshot namespaces")
	runCmd.Flags().BoolVar(&flagShowReport, "show", false, "print the compiled report to stdout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		// Missing or unparsable configuration still yields a report,
		// carrying exactly the one configuration error.
		rep := newConfigFailureOrchestrator(cfg).FailConfiguration(err)
		fmt.Println(rep.Markdown)
		return err
	}

	if err := logging.Initialize(workspace, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		logger.Warn("Debug logging unavailable", zap.Error(err))
	}

	orch, fetcher, buildErr := buildOrchestrator(cfg)
	if fetcher != nil {
		defer fetcher.Close()
	}
	if buildErr != nil {
		return buildErr
	}

	if err := cfg.ValidateEntities(); err != nil {
		rep := orch.FailConfiguration(err)
		fmt.Println(rep.Markdown)
		return err
	}

	logger.Info("Starting run",
		zap.Int("entities", len(cfg.Entities)),
		zap.String("store", cfg.Store.Root),
		zap.Float64("threshold", cfg.Drift.Threshold))

	ctx := cmd.Context()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	rep := orch.Run(ctx, cfg.Entities)
	printRunSummary(rep)

	if flagShowReport {
		fmt.Println(rep.Markdown)
	}
	return nil
}

// buildOrchestrator wires the pipeline from configuration.
func buildOrchestrator(cfg config.Config) (*orchestrator.Orchestrator, *fetch.BrowserFetcher, error) {
	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding engine: %w", err)
	}
	if hc, ok := engine.(embedding.HealthChecker); ok {
		if err := hc.HealthCheck(context.Background()); err != nil {
			logger.Warn("Embedding backend not reachable; classification will fail per entity", zap.Error(err))
		}
	}

	policyName := cfg.Approval.Policy
	if flagPolicy != "" {
		policyName = flagPolicy
	}
	maxConcurrent := cfg.Run.MaxConcurrent
	if flagMaxConcurrent > 0 {
		maxConcurrent = flagMaxConcurrent
	}

	fetcher := fetch.NewBrowserFetcher(fetch.Config{
		Headless:          cfg.Fetch.Headless,
		NavigationTimeout: cfg.Fetch.NavigationTimeout,
	})

	orch := orchestrator.New(orchestrator.Deps{
		Gate:       approval.NewGate(),
		Policy:     approval.PolicyFromName(policyName),
		Ledger:     ledger.New(),
		Store:      baseline.NewStore(cfg.Store.Root),
		Classifier: drift.NewClassifier(engine, cfg.Drift.Threshold),
		Fetcher:    fetcher,
	}, orchestrator.Options{
		ApprovalTimeout:    cfg.Approval.Timeout,
		MaxConcurrent:      maxConcurrent,
		PerEntitySnapshots: flagPerEntity || cfg.Store.PerEntity,
	})
	return orch, fetcher, nil
}

// newConfigFailureOrchestrator builds the minimal wiring needed to report
// a configuration failure before the pipeline exists.
func newConfigFailureOrchestrator(cfg config.Config) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Deps{
		Gate:   approval.NewGate(),
		Ledger: ledger.New(),
		Store:  baseline.NewStore(cfg.Store.Root),
	}, orchestrator.Options{})
}

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true)
	driftStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
	failStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	okStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
)

// printRunSummary prints a one-screen outcome of the batch.
func printRunSummary(rep *report.Report) {
	processed, drifted, failed := rep.Counts()

	fmt.Println(summaryTitleStyle.Render(fmt.Sprintf("Run %s", rep.RunDate.Format("2006-01-02"))))
	fmt.Printf("  entities: %d\n", processed)
	if drifted > 0 {
		fmt.Println(driftStyle.Render(fmt.Sprintf("  drift:    %d", drifted)))
	} else {
		fmt.Println(okStyle.Render("  drift:    0"))
	}
	if failed > 0 {
		fmt.Println(failStyle.Render(fmt.Sprintf("  failed:   %d", failed)))
	} else {
		fmt.Println(okStyle.Render("  failed:   0"))
	}
	if len(rep.Errors) > 0 {
		fmt.Printf("  errors:   %d (see error summary in report)\n", len(rep.Errors))
	}
}
