package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Simplici0/estimator/internal/config"
	"github.com/Simplici0/estimator/internal/db"
	"github.com/Simplici0/estimator/internal/depreciation"
	"github.com/Simplici0/estimator/internal/handler"
	"github.com/Simplici0/estimator/internal/logging"
	"github.com/Simplici0/estimator/internal/marketing"
	"github.com/Simplici0/estimator/internal/metrics"
	"github.com/Simplici0/estimator/internal/migrations"
	"github.com/Simplici0/estimator/internal/report"
	"github.com/Simplici0/estimator/internal/repository"
	"github.com/Simplici0/estimator/internal/seed"
	"github.com/Simplici0/estimator/internal/service"
)

const (
	shutdownTimeout = 15 * time.Second
	platformRPS     = 5
	platformBurst   = 5
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsDev() {
		if err := prepareDev(ctx, database, log); err != nil {
			return err
		}
	}
	if v, err := migrations.Version(database); err == nil {
		log.WithField("schema_version", v).Info("database ready")
	}

	engine, err := depreciation.NewEngine(cfg.DepreciationCacheSize)
	if err != nil {
		return fmt.Errorf("create depreciation engine: %w", err)
	}

	catalogRepo := repository.NewSQLiteCatalogRepository(database)
	marketingRepo := repository.NewSQLiteMarketingRepository(database)

	catalog := service.NewCatalogService(catalogRepo)
	analyses := service.NewAnalysisService(repository.NewSQLiteAnalysisRepository(database), catalogRepo)
	estimates := service.NewEstimateService(repository.NewSQLiteEstimateRepository(database), analyses)
	matrices := service.NewMatrixService(repository.NewSQLiteMatrixRepository(database), analyses)
	assets := service.NewAssetService(repository.NewSQLiteAssetRepository(database), engine)
	benchmarks := service.NewBenchmarkService(repository.NewSQLiteBenchmarkRepository(database))
	mkt := service.NewMarketingService(marketingRepo)

	m := metrics.New()
	syncer := marketing.NewSyncer(marketingRepo, marketing.NewFactory(nil, platformRPS, platformBurst), log)
	syncer.OnSync(m.ObserveSync)

	if cfg.SyncSchedule != "" {
		sched, err := marketing.NewScheduler(cfg.SyncSchedule, syncer, cfg.SyncDaysBack, log)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sched.Stop(stopCtx)
		}()
		log.WithField("schedule", cfg.SyncSchedule).Info("marketing sync scheduled")
	}

	if cfg.AuthSecret == "" {
		log.Warn("AUTH_SECRET is not set, the API is unauthenticated")
	}

	h := handler.New(handler.Deps{
		Catalog:    catalog,
		Analyses:   analyses,
		Estimates:  estimates,
		Matrices:   matrices,
		Assets:     assets,
		Benchmarks: benchmarks,
		Marketing:  mkt,
		Syncer:     syncer,
		Reports:    report.NewBuilder(estimates, assets, mkt),
		DB:         database,
		Metrics:    m,
		Log:        log,
	}, handler.Options{
		AuthSecret:     cfg.AuthSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		SyncDaysBack:   cfg.SyncDaysBack,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.Env}).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// prepareDev migrates the schema and loads the baseline reference data.
func prepareDev(ctx context.Context, database *sql.DB, log logrus.FieldLogger) error {
	if err := migrations.Up(database); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}
	stats, err := seed.Run(ctx, database)
	if err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	log.WithField("inserted", stats.Inserts).Info("seed data ensured")
	return nil
}
