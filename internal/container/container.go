package container

import (
	"context"
	"fmt"
	"time"

	"biasaudit/adapters/api"
	"biasaudit/adapters/classifier"
	"biasaudit/adapters/excel"
	"biasaudit/adapters/postgres"
	"biasaudit/app"
	"biasaudit/internal/config"
	"biasaudit/internal/errors"
	"biasaudit/internal/logging"
	"biasaudit/internal/metrics"
	"biasaudit/internal/migration"
	"biasaudit/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const remoteTimeout = 30 * time.Second

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB       *sqlx.DB
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder

	// Adapters
	Reader  ports.DatasetReader
	Remote  *api.Reader
	Reports ports.ReportRepository

	Service *app.AuditService
}

// New creates a container without a report ledger
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	logger = logging.OrNop(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  metrics.New(reg),
		Reader:   excel.NewDataReader(logger),
		Remote:   api.NewReader(remoteTimeout, logger),
	}
	c.initService()
	return c, nil
}

// InitWithDatabase connects the report ledger, migrates it and rebuilds the service on top of it
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return errors.Wrap(err, "database migration failed")
	}

	c.DB = db
	c.Reports = postgres.NewReportRepository(db)
	c.initService()

	c.Logger.Info("report ledger initialized")
	return nil
}

func (c *Container) initService() {
	a := c.Config.Audit
	c.Service = app.NewAuditService(a, app.Dependencies{
		Forest:    classifier.NewForestTrainer(a.ForestTrees, a.ForestMaxDepth, a.Seed, c.Logger),
		Logistic:  classifier.NewLogisticTrainer(a.LogisticMaxIter, a.LogisticStepSize, c.Logger),
		Explainer: classifier.NewExplainer(),
		Reports:   c.Reports,
		Metrics:   c.Metrics,
		Logger:    c.Logger,
	})
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
