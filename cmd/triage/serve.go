package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/assessment"
	"github.com/jonathan/footwear-triage/internal/classify"
	"github.com/jonathan/footwear-triage/internal/config"
	"github.com/jonathan/footwear-triage/internal/db"
	"github.com/jonathan/footwear-triage/internal/intake"
	"github.com/jonathan/footwear-triage/internal/llm"
	"github.com/jonathan/footwear-triage/internal/routing"
	"github.com/jonathan/footwear-triage/internal/server"
	"github.com/jonathan/footwear-triage/internal/server/ratelimit"
	"github.com/jonathan/footwear-triage/internal/training"
)

var (
	servePort        int
	serveSkipMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing /analyze for intake and the /admin/training
endpoints for the retraining workflow. Pending migrations are applied first.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveSkipMigrate, "skip-migrate", false, "Do not apply database migrations on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !serveSkipMigrate {
		if err := db.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := waitForClassifiers(ctx, cfg, logger); err != nil {
		return err
	}
	cascade := newCascade(cfg, logger)

	vlm, err := newVisionClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = vlm.Close() }()

	analyzer := intake.NewService(
		database,
		cascade,
		assessment.NewGenerator(vlm, logger),
		routing.NewEngine(database, logger),
		intake.Limits{MaxBytes: cfg.Intake.MaxUploadBytes, MaxSide: cfg.Intake.MaxImageSide},
		logger,
	)

	orchestrator := training.NewOrchestrator(database, newTrainer(cfg, logger), logger)
	if cfg.Training.Schedule != "" {
		scheduler, err := training.NewScheduler(orchestrator, cfg.Training.Schedule, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		logger.Info("training scheduler started", zap.String("schedule", cfg.Training.Schedule))
		defer func() { <-scheduler.Stop().Done() }()
	}
	// Runs launched from the API finish before the database closes.
	defer orchestrator.Wait()

	admin, err := config.NewAdminAuth(cfg.Admin.Token, cfg.Admin.TokenBcrypt)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:           cfg.Port,
		MaxUploadBytes: cfg.Intake.MaxUploadBytes,
		RunListLimit:   cfg.Training.ListLimit,
		Analyzer:       analyzer,
		Training:       orchestrator,
		Admin:          admin,
		Health:         database,
		RateLimit:      rateLimitConfig(cfg.RateLimit),
		Logger:         logger,
	})

	return srv.Start(ctx)
}

// newCascade builds the two classifier clients. Each is serialized when the
// backing model cannot take concurrent requests.
func newCascade(cfg *config.Config, logger *zap.Logger) *classify.Cascade {
	var (
		stage1 classify.Classifier = classify.NewHTTPClient("stage1", cfg.Classifier.Stage1URL, cfg.Classifier.Timeout)
		stage2 classify.Classifier = classify.NewHTTPClient("stage2", cfg.Classifier.Stage2URL, cfg.Classifier.Timeout)
	)
	if cfg.SerializeInference {
		stage1 = classify.NewSerialized(stage1)
		stage2 = classify.NewSerialized(stage2)
	}
	return classify.NewCascade(stage1, stage2, cfg.Classifier.TargetLabel, logger)
}

// waitForClassifiers blocks until both inference services report a loaded
// model, so the first uploads are not answered with 502.
func waitForClassifiers(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Classifier.ReadyTimeout <= 0 {
		return nil
	}
	for name, url := range map[string]string{"stage1": cfg.Classifier.Stage1URL, "stage2": cfg.Classifier.Stage2URL} {
		client := classify.NewHTTPClient(name, url, cfg.Classifier.Timeout)
		if err := client.WaitReady(ctx, cfg.Classifier.ReadyTimeout); err != nil {
			return err
		}
		logger.Info("classifier ready", zap.String("stage", name), zap.String("url", url))
	}
	return nil
}

func newVisionClient(ctx context.Context, cfg *config.Config) (llm.VisionClient, error) {
	llmCfg, err := cfg.LLMClientConfig()
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.LLMAPIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", llmCfg.Provider, err)
	}
	return client, nil
}

// newTrainer returns the remote trainer, or the stub when none is configured.
func newTrainer(cfg *config.Config, logger *zap.Logger) training.Trainer {
	if cfg.Training.TrainerURL == "" {
		logger.Warn("TRAINER_URL not set; training runs use the stub trainer")
		return training.StubTrainer{}
	}
	return training.NewHTTPTrainer(cfg.Training.TrainerURL, cfg.Training.Timeout)
}

func rateLimitConfig(rl config.RateLimitConfig) *ratelimit.Config {
	return &ratelimit.Config{
		Enabled:         rl.Enabled,
		DefaultLimit:    rl.DefaultLimit,
		DefaultWindow:   rl.DefaultWindow,
		CleanupInterval: rl.CleanupInterval,
		Whitelist:       ratelimit.IPSet(rl.Whitelist),
		Blacklist:       ratelimit.IPSet(rl.Blacklist),
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(rl.AnalyzeLimit),
	}
}
