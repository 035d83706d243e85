package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/footwear-triage/internal/assessment"
	"github.com/jonathan/footwear-triage/internal/imaging"
	"github.com/jonathan/footwear-triage/internal/intake"
	"github.com/jonathan/footwear-triage/internal/observability"
)

var (
	assessBrand string
	assessModel string
)

var assessCmd = &cobra.Command{
	Use:   "assess <image>",
	Short: "Classify and assess a local image without recording anything",
	Long: `Runs the classifier cascade and the assessment generator on one image file
and prints the result. Nothing is written to the database and no routing
payload is issued. Requires STAGE1_URL, STAGE2_URL and a model API key.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().StringVar(&assessBrand, "brand", "", "Brand hint for the assessment")
	assessCmd.Flags().StringVar(&assessModel, "model-name", "", "Model name hint for the assessment")
	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Classifier.Stage1URL == "" || cfg.Classifier.Stage2URL == "" {
		return fmt.Errorf("STAGE1_URL and STAGE2_URL are required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	mimeType, err := intake.CheckUpload(data, cfg.Intake.MaxUploadBytes)
	if err != nil {
		return err
	}
	prepared, err := imaging.Prepare(data, mimeType, cfg.Intake.MaxImageSide)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	result, err := newCascade(cfg, logger).Run(ctx, prepared.Data)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	vlm, err := newVisionClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = vlm.Close() }()

	assessed := assessment.NewGenerator(vlm, logger).Assess(ctx, prepared.Data, prepared.MIMEType, result,
		assessment.Hints{Brand: assessBrand, Model: assessModel})

	p := observability.NewPrinter(cmd.OutOrStdout())
	p.PrintCascade(result)
	p.PrintAssessment(assessed)
	return nil
}
