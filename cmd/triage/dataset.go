package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/footwear-triage/internal/db"
	"github.com/jonathan/footwear-triage/internal/observability"
	"github.com/jonathan/footwear-triage/internal/training"
)

var (
	datasetUnlabel    bool
	thresholdSamples  int
	thresholdRatio    float64
	coldStartEnable   bool
	coldStartMin      int
	registryModelName string
	registryLimit     int
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Inspect and label curated training samples",
}

var datasetStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show sample counts against the automatic trigger thresholds",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd, func(ctx context.Context, database *db.DB, p *observability.Printer) error {
			stats, err := database.GetSampleStats(ctx)
			if err != nil {
				return err
			}
			thresholds, err := database.GetTrainingThresholds(ctx)
			if err != nil {
				return err
			}
			p.PrintTriggerDecision(&training.TriggerDecision{
				Reason:     "stats",
				Stats:      stats,
				Thresholds: thresholds,
			})
			return nil
		})
	},
}

var datasetLabelCmd = &cobra.Command{
	Use:   "label <sample-id>",
	Short: "Mark a sample as labeled once its annotation exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid sample ID: %w", err)
		}
		return withDatabase(cmd, func(ctx context.Context, database *db.DB, _ *observability.Printer) error {
			if err := database.SetSampleLabeled(ctx, id, !datasetUnlabel); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Sample %s labeled=%t\n", id, !datasetUnlabel)
			return err
		})
	},
}

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Set the automatic trigger thresholds",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if thresholdSamples < 1 {
			return fmt.Errorf("--min-samples must be at least 1")
		}
		if thresholdRatio < 0 || thresholdRatio > 1 {
			return fmt.Errorf("--min-ratio must be between 0 and 1")
		}
		return withDatabase(cmd, func(ctx context.Context, database *db.DB, _ *observability.Printer) error {
			t := db.TrainingThresholds{MinNewSamples: thresholdSamples, MinLabelRatio: thresholdRatio}
			return database.SetFlag(ctx, db.FlagAutoTrainThreshold, t)
		})
	},
}

var coldStartFlagCmd = &cobra.Command{
	Use:   "cold-start-flag",
	Short: "Set the cold-start flag",
	Long: `Set the cold-start flag. The first approval clears it automatically; use
this to re-enable it after resetting the model registry.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if coldStartMin < 1 {
			return fmt.Errorf("--min-samples must be at least 1")
		}
		return withDatabase(cmd, func(ctx context.Context, database *db.DB, _ *observability.Printer) error {
			f := db.ColdStartFlag{Enabled: coldStartEnable, MinSamples: coldStartMin}
			return database.SetFlag(ctx, db.FlagColdStart, f)
		})
	},
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "List promoted versions of a model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd, func(ctx context.Context, database *db.DB, p *observability.Printer) error {
			entries, err := database.ListModelRegistry(ctx, registryModelName, training.ClampLimit(registryLimit))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "No versions of %s.\n", registryModelName)
				return err
			}
			for i := range entries {
				p.PrintRegistryEntry(&entries[i])
			}
			return nil
		})
	},
}

func init() {
	datasetLabelCmd.Flags().BoolVar(&datasetUnlabel, "unlabel", false, "Clear the labeled mark instead")
	datasetCmd.AddCommand(datasetStatsCmd, datasetLabelCmd)

	defaults := db.DefaultTrainingThresholds()
	thresholdsCmd.Flags().IntVar(&thresholdSamples, "min-samples", defaults.MinNewSamples, "Minimum labeled samples")
	thresholdsCmd.Flags().Float64Var(&thresholdRatio, "min-ratio", defaults.MinLabelRatio, "Minimum labeled/total ratio")

	cs := db.DefaultColdStartFlag()
	coldStartFlagCmd.Flags().BoolVar(&coldStartEnable, "enabled", cs.Enabled, "Allow cold-start runs")
	coldStartFlagCmd.Flags().IntVar(&coldStartMin, "min-samples", cs.MinSamples, "Minimum labeled samples for a cold start")

	registryCmd.Flags().StringVar(&registryModelName, "model-name", "", "Registry model name (required)")
	registryCmd.Flags().IntVar(&registryLimit, "limit", training.DefaultListLimit, "Maximum versions to show")
	_ = registryCmd.MarkFlagRequired("model-name")

	trainCmd.AddCommand(thresholdsCmd, coldStartFlagCmd, registryCmd)
	rootCmd.AddCommand(datasetCmd)
}

// withDatabase connects to the database and runs fn.
func withDatabase(cmd *cobra.Command, fn func(context.Context, *db.DB, *observability.Printer) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx := cmd.Context()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	return fn(ctx, database, observability.NewPrinter(cmd.OutOrStdout()))
}
