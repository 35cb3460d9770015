// Package app provides the application initialization and lifecycle management
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/reviewflow/internal/annotate"
	"github.com/tildaslashalef/reviewflow/internal/battery"
	"github.com/tildaslashalef/reviewflow/internal/config"
	"github.com/tildaslashalef/reviewflow/internal/database"
	"github.com/tildaslashalef/reviewflow/internal/feedback"
	"github.com/tildaslashalef/reviewflow/internal/github"
	"github.com/tildaslashalef/reviewflow/internal/llm"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
	"github.com/tildaslashalef/reviewflow/internal/report"
	"github.com/tildaslashalef/reviewflow/internal/review"
	"github.com/tildaslashalef/reviewflow/internal/sandbox"
	"github.com/tildaslashalef/reviewflow/internal/store"
)

// App represents the application instance with its dependencies
type App struct {
	Config *config.Config
	Runs   store.Repository

	logger *loggy.Logger
}

// New initializes a new application instance
func New() (*App, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"log_level", cfg.Logging.Level,
	)

	if err := database.InitDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	logger := loggy.GetGlobalLogger()

	return &App{
		Config: cfg,
		Runs:   store.NewSQLRepository(db, logger),
		logger: logger,
	}, nil
}

// initConfig loads and sets up the application configuration
func initConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	config.Set(cfg)
	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// NewReviewService validates the run parameters and wires up the full
// review pipeline for one run.
func (app *App) NewReviewService(repoDir string) (*review.Service, error) {
	cfg := app.Config

	if err := cfg.ValidateRun(); err != nil {
		return nil, err
	}

	hosting := github.NewService(cfg, app.logger)

	var fb review.FeedbackGenerator
	if cfg.FeedbackEnabled() {
		llmClient, llmType, err := initLLMClient(cfg, app.logger)
		if err != nil {
			loggy.Warn("Failed to initialize LLM client, AI feedback will be skipped", "error", err)
		} else {
			loggy.Info("Initialized LLM client", "type", llmType)
			fb = feedback.NewGenerator(hosting, llmClient, app.logger)
		}
	}

	return review.NewService(review.Deps{
		Repository: cfg.Run.Repository,
		PRNumber:   cfg.Run.PRNumber,
		RepoDir:    repoDir,
		Hosting:    hosting,
		Builder:    &runnerBuilder{runner: sandbox.NewRunner(cfg.Sandbox, app.logger)},
		Executor:   battery.NewExecutor(battery.DefaultRegistry(), app.logger),
		Composer:   report.NewComposer(nil),
		Annotator:  annotate.NewAnnotator(hosting, app.logger),
		Feedback:   fb,
		Runs:       app.Runs,
		Logger:     app.logger,
	}), nil
}

// runnerBuilder adapts the sandbox runner to the pipeline's builder contract
type runnerBuilder struct {
	runner *sandbox.Runner
}

func (b *runnerBuilder) BuildEnvironment(ctx context.Context, dir string) (review.Environment, error) {
	env, err := b.runner.BuildEnvironment(ctx, dir)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// initLLMClient initializes the LLM client
func initLLMClient(cfg *config.Config, logger *loggy.Logger) (llm.Client, llm.ClientType, error) {
	llmFactory := llm.NewFactory(cfg, logger)
	return llmFactory.GetDefaultClient()
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")

	if err := database.CloseDB(); err != nil {
		loggy.Error("Error closing database connection", "error", err)
	}

	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}
