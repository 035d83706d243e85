package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/footwear-triage/internal/db"
	"github.com/jonathan/footwear-triage/internal/observability"
	"github.com/jonathan/footwear-triage/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Operate the retraining workflow",
	Long: `Evaluate the automatic trigger, force a cold start, and review runs.

Runs started here execute in the foreground; the command returns when the
trainer finishes and the run is awaiting review or has failed.`,
}

var (
	trainActor     string
	trainLimit     int
	trainModelName string
	trainVersion   string
	trainReason    string
)

var trainTriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Evaluate the automatic trigger and run training if thresholds are met",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withOrchestrator(cmd, runTrainTrigger)
	},
}

var trainColdStartCmd = &cobra.Command{
	Use:   "cold-start",
	Short: "Force a training run while the cold-start flag allows it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withOrchestrator(cmd, runTrainColdStart)
	},
}

var trainExecuteCmd = &cobra.Command{
	Use:   "execute <run-id>",
	Short: "Execute a run that is still marked running",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, o *training.Orchestrator, p *observability.Printer) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}
			return executeRun(ctx, o, p, runID)
		})
	},
}

var trainListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent training runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, o *training.Orchestrator, p *observability.Printer) error {
			runs, err := o.ListRuns(ctx, trainLimit)
			if err != nil {
				return err
			}
			p.PrintRuns(runs)
			return nil
		})
	},
}

var trainApproveCmd = &cobra.Command{
	Use:   "approve <run-id>",
	Short: "Promote a run awaiting review into the model registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, o *training.Orchestrator, p *observability.Printer) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}
			entry, err := o.Approve(ctx, runID, training.ApproveRequest{
				ModelName:  trainModelName,
				Version:    trainVersion,
				ApprovedBy: trainActor,
			})
			if err != nil {
				return err
			}
			p.PrintRegistryEntry(entry)
			return nil
		})
	},
}

var trainRejectCmd = &cobra.Command{
	Use:   "reject <run-id>",
	Short: "Close a run awaiting review without promoting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, o *training.Orchestrator, p *observability.Printer) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}
			if trainReason == "" {
				return fmt.Errorf("--reason is required")
			}
			run, err := o.Reject(ctx, runID, trainReason, trainActor)
			if err != nil {
				return err
			}
			p.PrintRuns([]db.TrainingRun{*run})
			return nil
		})
	},
}

func init() {
	trainColdStartCmd.Flags().StringVar(&trainActor, "actor", "", "Operator name recorded on the run")
	trainListCmd.Flags().IntVar(&trainLimit, "limit", training.DefaultListLimit, "Maximum runs to show")
	trainApproveCmd.Flags().StringVar(&trainModelName, "model-name", "", "Registry model name (required)")
	trainApproveCmd.Flags().StringVar(&trainVersion, "version", "", "Version label (defaults to an approval timestamp)")
	trainApproveCmd.Flags().StringVar(&trainActor, "approved-by", "", "Approver recorded in the registry")
	_ = trainApproveCmd.MarkFlagRequired("model-name")
	trainRejectCmd.Flags().StringVar(&trainReason, "reason", "", "Why the run is rejected (required)")
	trainRejectCmd.Flags().StringVar(&trainActor, "rejected-by", "", "Operator recorded on the run")

	trainCmd.AddCommand(trainTriggerCmd, trainColdStartCmd, trainExecuteCmd, trainListCmd, trainApproveCmd, trainRejectCmd)
	rootCmd.AddCommand(trainCmd)
}

// withOrchestrator connects to the database, builds an orchestrator and runs fn.
func withOrchestrator(cmd *cobra.Command, fn func(context.Context, *training.Orchestrator, *observability.Printer) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	o := training.NewOrchestrator(database, newTrainer(cfg, logger), logger)
	return fn(ctx, o, observability.NewPrinter(cmd.OutOrStdout()))
}

func runTrainTrigger(ctx context.Context, o *training.Orchestrator, p *observability.Printer) error {
	decision, err := o.TriggerAuto(ctx)
	if err != nil {
		return err
	}
	p.PrintTriggerDecision(decision)
	if !decision.Created() {
		return nil
	}
	return executeRun(ctx, o, p, decision.Run.ID)
}

func runTrainColdStart(ctx context.Context, o *training.Orchestrator, p *observability.Printer) error {
	run, err := o.ColdStart(ctx, trainActor)
	if err != nil {
		return err
	}
	return executeRun(ctx, o, p, run.ID)
}

func executeRun(ctx context.Context, o *training.Orchestrator, p *observability.Printer, runID uuid.UUID) error {
	run, err := o.Execute(ctx, runID)
	if err != nil {
		return err
	}
	p.PrintRuns([]db.TrainingRun{*run})
	if run.Status == db.RunStatusFailed {
		return fmt.Errorf("training run %s failed", run.ID)
	}
	return nil
}
