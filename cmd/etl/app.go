package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"

	"github.com/Joel785/Medallion-Project/internal/config"
	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/metrics"
	"github.com/Joel785/Medallion-Project/internal/repository"
	"github.com/Joel785/Medallion-Project/internal/services"
)

// app holds what every subcommand needs: configuration, a database pool
// and the metrics registry pushed when the command ends.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	pool    *pgxpool.Pool
	store   *repository.PostgresStore
	metrics *metrics.Metrics
}

func newApp(ctx context.Context, v *viper.Viper, configPath string) (*app, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "medallion-etl")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.Debug("configuration loaded", "config_file", v.ConfigFileUsed(), "environment", cfg.Environment)

	pool, err := initDatabase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrStoreUnavailable, err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		store:   repository.NewPostgresStore(pool, logger),
		metrics: metrics.New(),
	}, nil
}

func initDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// close pushes metrics and releases the pool. It runs after failed
// commands too, so failures reach the Pushgateway.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.Warn("metrics push failed", "url", a.cfg.Metrics.PushgatewayURL, "error", err)
	}
	a.pool.Close()
	_ = a.logger.Sync()
}

func (a *app) processingDate() (time.Time, error) {
	return a.cfg.ProcessingDate(time.Now())
}

func (a *app) bronze() *services.BronzeService {
	return services.NewBronzeService(a.store, a.logger, a.metrics)
}

func (a *app) silver() (*services.SilverService, error) {
	return services.NewSilverService(a.store, services.SilverConfig{
		Parallel: a.cfg.Pipeline.ParallelStages,
	}, a.logger, a.metrics)
}

func (a *app) gold() *services.GoldService {
	return services.NewGoldService(a.store, nil, a.logger, a.metrics)
}

func (a *app) reconcile() *services.ReconcileService {
	return services.NewReconcileService(a.store, a.logger, a.metrics)
}
