package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/hostdesk/hostdesk/internal/app"
	"github.com/hostdesk/hostdesk/internal/archive"
	jobmetrics "github.com/hostdesk/hostdesk/internal/jobs"
	"github.com/hostdesk/hostdesk/internal/observability"
	"github.com/hostdesk/hostdesk/internal/payments"
	"github.com/hostdesk/hostdesk/internal/platform/db"
	"github.com/hostdesk/hostdesk/internal/recon"
	"github.com/hostdesk/hostdesk/internal/rooms"
	"github.com/hostdesk/hostdesk/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	paymentsRepo := payments.NewRepository(pool)
	roomsRepo := rooms.NewRepository(pool)
	reconRepo := recon.NewRepository(pool)
	// The worker applies no inbound patches and publishes none; record
	// mutations here are limited to the archive generation stamp.
	reconService := recon.NewService(reconRepo, paymentsRepo, roomsRepo, nil, logger,
		recon.ApprovalConfig{NotesLockedAfterApproval: cfg.NotesLocked})

	hasher := archive.NewSHA256()
	archiveRepo := archive.NewRepository(pool)
	archiveService := archive.NewService(archiveRepo, reconService, roomsRepo, nil)
	archiveJob := archive.NewJob(archive.JobConfig{
		Service:    archiveService,
		Builder:    archive.NewBuilder(),
		Bundler:    archive.NewBundler(hasher),
		StorageDir: cfg.ArchiveDir,
		Logger:     logger,
		Metrics:    metrics,
	})
	verifier := archive.NewVerifier(archiveRepo, hasher, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   jobmetrics.NewMetrics(metrics.Registerer()),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeArchiveBuild, Handler: archiveJob.Handle},
			{Type: jobs.TaskTypeArchiveVerify, Handler: verifier.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 3 * * *", Task: jobs.NewArchiveVerifyTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
