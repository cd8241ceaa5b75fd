package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/askcraft/askcraft-web/internal/app"
	jobmetrics "github.com/askcraft/askcraft-web/internal/jobs"
	"github.com/askcraft/askcraft-web/internal/observability"
	"github.com/askcraft/askcraft-web/internal/platform/blob"
	"github.com/askcraft/askcraft-web/internal/platform/db"
	"github.com/askcraft/askcraft-web/internal/shared"
	"github.com/askcraft/askcraft-web/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadWorkerConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(&cfg.LoggingConfig)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.WorkerConfig, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	obs := observability.NewMetrics()
	metrics := jobmetrics.NewMetrics(obs.Registerer())
	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskAuditPrune, Handler: jobs.NewAuditPruneJob(shared.NewAuditLogger(pool), logger, metrics).Handle},
	}

	if cfg.BlobEnabled() {
		store, err := blob.New(ctx, cfg.StoreConfig())
		if err != nil {
			return fmt.Errorf("blob store: %w", err)
		}
		handlers = append(handlers, jobs.TaskHandler{
			Type:    jobs.TaskMediaPurgeBlob,
			Handler: jobs.NewPurgeBlobJob(store, logger, metrics).Handle,
		})
	} else {
		logger.Warn("BLOB_BUCKET not set, blob purge tasks will not be processed")
	}

	pruneTask, err := jobs.NewAuditPruneTask(cfg.AuditRetentionDays)
	if err != nil {
		return fmt.Errorf("audit prune task: %w", err)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.QueueOptions(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    handlers,
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AuditPruneCron, Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		return fmt.Errorf("init worker: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("worker started", slog.Int("concurrency", cfg.WorkerConcurrency))
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.WorkerMetricsAddr != "" {
		server := jobs.NewMetricsServer(cfg.WorkerMetricsAddr, obs.Handler())
		g.Go(func() error {
			logger.Info("starting metrics server", slog.String("addr", cfg.WorkerMetricsAddr))
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
	}
	return g.Wait()
}
