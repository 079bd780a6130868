package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/upb/audit-trail/config"
	"github.com/upb/audit-trail/handlers"
	"github.com/upb/audit-trail/internal/observability"
	"github.com/upb/audit-trail/repositories"
	"github.com/upb/audit-trail/repositories/jsonfile"
	"github.com/upb/audit-trail/repositories/ledger"
	"github.com/upb/audit-trail/repositories/postgres"
	"github.com/upb/audit-trail/services/audit"
	"github.com/upb/audit-trail/services/recorder"
	"github.com/upb/audit-trail/services/report"
	"github.com/upb/audit-trail/services/user"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Storage backends; only the ones used by the configured backend are set
	Store        *jsonfile.Store
	Watcher      *jsonfile.Watcher
	RepoFactory  *postgres.RepositoryFactory
	LedgerClient *ledger.Client

	// Repositories
	Repos *repositories.Repositories

	// Services
	Users    *user.UserService
	Audits   *audit.AuditService
	Reports  *report.ReportService
	Recorder *recorder.Recorder

	// HealthChecks are probed by the readiness endpoint
	HealthChecks map[string]handlers.Pinger
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps := &Dependencies{
		Config:       cfg,
		Logger:       logger,
		Registry:     registry,
		Metrics:      observability.NewMetrics(registry),
		HealthChecks: make(map[string]handlers.Pinger),
	}

	if err := deps.initStorage(ctx, cfg); err != nil {
		_ = deps.closeBackends()
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Backend, err)
	}

	if err := deps.initServices(cfg); err != nil {
		_ = deps.closeBackends()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("backend", cfg.Storage.Backend))
	return deps, nil
}

// initStorage opens the configured backend and builds its repositories
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		if err := d.initFileStore(cfg); err != nil {
			return err
		}
		d.Repos = jsonfile.NewRepositories(d.Store, d.Logger)

	case config.BackendPostgres:
		if err := d.initDatabase(ctx, cfg); err != nil {
			return err
		}
		d.Repos = d.RepoFactory.NewRepositories()

	case config.BackendLedger:
		// Reports are not held on chain; they stay in the file store.
		if err := d.initFileStore(cfg); err != nil {
			return err
		}
		client, err := ledger.Connect(cfg.Ledger, d.Logger)
		if err != nil {
			return err
		}
		d.LedgerClient = client
		d.HealthChecks["ledger"] = client
		d.Repos = ledger.NewRepositories(client, jsonfile.NewReportRepository(d.Store, d.Logger), d.Logger)

	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	d.Logger.Info("repositories initialized", zap.String("backend", cfg.Storage.Backend))
	return nil
}

func (d *Dependencies) initFileStore(cfg *config.Config) error {
	opts := []jsonfile.Option{jsonfile.WithMetrics(d.Metrics)}
	if cfg.Storage.Watch {
		opts = append(opts, jsonfile.WithCache())
	}

	store, err := jsonfile.Open(cfg.Storage.DataDir, d.Logger, opts...)
	if err != nil {
		return err
	}
	d.Store = store
	d.HealthChecks["store"] = store

	if cfg.Storage.Watch {
		watcher, err := jsonfile.NewWatcher(store, d.Logger)
		if err != nil {
			return err
		}
		d.Watcher = watcher
	}
	return nil
}

// initDatabase opens the PostgreSQL pools and creates missing tables when asked
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}
	d.RepoFactory = factory
	d.HealthChecks["database"] = factory

	if err := factory.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if cfg.Database.InitSchema {
		if err := factory.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

// initServices builds the services over the repositories
func (d *Dependencies) initServices(cfg *config.Config) error {
	d.Audits = audit.NewAuditService(d.Repos.Audits, d.Metrics, d.Logger)
	d.Reports = report.NewReportService(d.Repos.Reports, d.Repos.Audits, cfg.Reports.Aggregate, d.Metrics, d.Logger)

	if !cfg.Recorder.Enabled {
		d.Users = user.NewUserService(d.Repos.Users, nil, d.Logger)
		return nil
	}

	d.Recorder = recorder.New(d.Repos.Audits, d.Metrics, d.Logger, recorder.Config{
		BufferSize:  cfg.Recorder.BufferSize,
		WorkerCount: cfg.Recorder.Workers,
	})
	if err := d.Recorder.Start(); err != nil {
		return err
	}
	d.Users = user.NewUserService(d.Repos.Users, d.Recorder, d.Logger)
	return nil
}

// Backend names the configured storage backend
func (d *Dependencies) Backend() string {
	return d.Config.Storage.Backend
}

func (d *Dependencies) closeBackends() []error {
	var errs []error

	if d.Watcher != nil {
		if err := d.Watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close file watcher: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.LedgerClient != nil {
		if err := d.LedgerClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close ledger gateway: %w", err))
		} else {
			d.Logger.Info("ledger gateway closed")
		}
	}

	return errs
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain pending audit events before closing the backend they are written to
	if d.Recorder != nil {
		if err := d.Recorder.Stop(d.Config.Recorder.ShutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop recorder: %w", err))
		}
	}

	errs = append(errs, d.closeBackends()...)

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
