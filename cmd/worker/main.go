package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/ledgerfix/internal/app"
	"github.com/odyssey-erp/ledgerfix/internal/correction/accounttypes"
	"github.com/odyssey-erp/ledgerfix/internal/correction/piggies"
	jobmetrics "github.com/odyssey-erp/ledgerfix/internal/jobs"
	"github.com/odyssey-erp/ledgerfix/internal/ledger"
	"github.com/odyssey-erp/ledgerfix/internal/ledger/accounts"
	"github.com/odyssey-erp/ledgerfix/internal/ledger/policy"
	"github.com/odyssey-erp/ledgerfix/internal/observability"
	"github.com/odyssey-erp/ledgerfix/internal/platform/cache"
	"github.com/odyssey-erp/ledgerfix/internal/platform/db"
	"github.com/odyssey-erp/ledgerfix/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	conn, err := db.Open(ctx, cfg.Driver(), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	lock, err := cache.NewRunLock(redisClient, "ledgerfix:lock:", cfg.LockTTL)
	if err != nil {
		return err
	}
	expected, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	jm := jobmetrics.NewMetrics(metrics.Registerer())
	repo := ledger.NewRepository(conn)

	accountFixer, err := accounttypes.NewFixer(accounttypes.Config{
		Repo:      repo,
		Accounts:  accounts.NewFactory(conn, logger),
		Expected:  expected,
		Logger:    logger,
		MaxPasses: cfg.RepairMaxPasses,
	})
	if err != nil {
		return err
	}
	piggyFixer, err := piggies.NewFixer(repo, logger, nil)
	if err != nil {
		return err
	}

	accountTask, err := jobs.NewFixAccountTypesTask("cron")
	if err != nil {
		return err
	}
	piggyTask, err := jobs.NewFixPiggiesTask("cron")
	if err != nil {
		return err
	}

	redisOpts := cfg.Redis().Asynq()
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskFixAccountTypes, Handler: jobs.NewFixAccountTypesJob(accountFixer, lock, logger, jm).Handle},
			{Type: jobs.TaskFixPiggies, Handler: jobs.NewFixPiggiesJob(piggyFixer, lock, logger, jm).Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CronAccountTypes, Task: accountTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.CronPiggies, Task: piggyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		return err
	}

	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	server := &http.Server{
		Addr: cfg.OpsAddr,
		Handler: app.NewRouter(app.RouterParams{
			Logger:     logger,
			Config:     cfg,
			Metrics:    metrics,
			JobHandler: jobs.NewHandler(inspector, logger),
			Readiness: []app.ReadinessCheck{
				{Name: "database", Check: conn.Ping},
				{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
			},
		}),
		ReadTimeout:  cfg.OpsReadTimeout,
		WriteTimeout: cfg.OpsWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("ops server listening", slog.String("addr", cfg.OpsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
