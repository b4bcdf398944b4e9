package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	budgethandler "github.com/FACorreiaa/auto-qm-form/internal/domain/budget/handler"
	budgetrepo "github.com/FACorreiaa/auto-qm-form/internal/domain/budget/repository"
	budgetservice "github.com/FACorreiaa/auto-qm-form/internal/domain/budget/service"
	formhandler "github.com/FACorreiaa/auto-qm-form/internal/domain/form/handler"
	formrepo "github.com/FACorreiaa/auto-qm-form/internal/domain/form/repository"
	formservice "github.com/FACorreiaa/auto-qm-form/internal/domain/form/service"
	"github.com/FACorreiaa/auto-qm-form/internal/domain/specs"
	specshandler "github.com/FACorreiaa/auto-qm-form/internal/domain/specs/handler"
	"github.com/FACorreiaa/auto-qm-form/internal/domain/standards"
	standardshandler "github.com/FACorreiaa/auto-qm-form/internal/domain/standards/handler"

	"github.com/FACorreiaa/auto-qm-form/pkg/config"
	"github.com/FACorreiaa/auto-qm-form/pkg/cron"
	"github.com/FACorreiaa/auto-qm-form/pkg/db"
	"github.com/FACorreiaa/auto-qm-form/pkg/llm"
	"github.com/FACorreiaa/auto-qm-form/pkg/observability"
	"github.com/FACorreiaa/auto-qm-form/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *observability.Metrics

	// Repositories
	BudgetRepo    budgetrepo.BudgetRepository
	SpecsRepo     *specs.Repository
	StandardsRepo *standards.Repository
	FormRepo      formrepo.FormRepository

	// Services
	FileStorage      storage.Storage
	LLMClient        *llm.Client
	SearchIndex      *standards.SearchIndex
	BudgetService    *budgetservice.BudgetService
	SpecsService     *specs.Service
	StandardsService *standards.Service
	FormService      *formservice.FormService
	Scheduler        *cron.Scheduler

	// Handlers
	BudgetHandler    *budgethandler.BudgetHandler
	SpecsHandler     *specshandler.SpecsHandler
	ReferenceHandler *standardshandler.ReferenceHandler
	FormHandler      *formhandler.FormHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}

	// Initialize database
	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	deps.initRepositories()

	// Initialize services
	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase(ctx context.Context) error {
	database, err := db.New(ctx, db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(ctx); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.BudgetRepo = budgetrepo.NewPostgresBudgetRepository(d.DB.Pool)
	d.SpecsRepo = specs.NewRepository(d.DB.Pool)
	d.StandardsRepo = standards.NewRepository(d.DB.Pool)
	d.FormRepo = formrepo.NewPostgresFormRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	fileStorage, err := storage.New(&storage.Config{LocalPath: d.Config.Storage.LocalPath})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.LLMClient, err = llm.NewClient(llm.Config{
		Provider:  d.Config.LLM.Provider,
		Model:     d.Config.LLM.Model,
		MaxTokens: d.Config.LLM.MaxTokens,
	}, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to init llm client: %w", err)
	}

	d.SearchIndex, err = standards.NewSearchIndex()
	if err != nil {
		return fmt.Errorf("failed to init search index: %w", err)
	}

	d.BudgetService = budgetservice.NewBudgetService(d.BudgetRepo, d.FileStorage, d.Metrics, d.Config.Form.Currency, d.Logger)
	d.SpecsService = specs.NewService(d.SpecsRepo, d.FileStorage, d.LLMClient, d.Metrics, d.Logger)
	d.StandardsService = standards.NewService(d.StandardsRepo, d.FileStorage, d.SearchIndex, d.Logger)

	// Reference library seed and search index
	seed, err := standards.DefaultSeed()
	if err != nil {
		return fmt.Errorf("failed to load default seed: %w", err)
	}
	if _, err := d.StandardsService.Seed(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed quality standards: %w", err)
	}

	// Form workspace reads budgets and the reference library through adapters
	d.FormService = formservice.NewFormService(
		d.FormRepo,
		newBudgetAdapter(d.BudgetRepo),
		newReferenceAdapter(d.StandardsService),
		d.FileStorage,
		d.Metrics,
		d.Config.Form.TempRetentionDays,
		d.Logger,
	)

	d.Scheduler = cron.NewScheduler(d.FormService, d.Config.Form.CleanupSchedule, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	maxUpload := int64(d.Config.Server.MaxUploadMB) << 20

	d.BudgetHandler = budgethandler.NewBudgetHandler(d.BudgetService, maxUpload, d.Logger)
	d.SpecsHandler = specshandler.NewSpecsHandler(d.SpecsService, maxUpload, d.Logger)
	d.ReferenceHandler = standardshandler.NewReferenceHandler(d.StandardsService, maxUpload, d.Logger)
	d.FormHandler = formhandler.NewFormHandler(d.FormService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
