package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/hostdesk/hostdesk/internal/app"
	"github.com/hostdesk/hostdesk/internal/archive"
	archivehttp "github.com/hostdesk/hostdesk/internal/archive/http"
	"github.com/hostdesk/hostdesk/internal/observability"
	"github.com/hostdesk/hostdesk/internal/payments"
	"github.com/hostdesk/hostdesk/internal/platform/cache"
	"github.com/hostdesk/hostdesk/internal/platform/db"
	"github.com/hostdesk/hostdesk/internal/recon"
	reconhttp "github.com/hostdesk/hostdesk/internal/recon/http"
	"github.com/hostdesk/hostdesk/internal/rooms"
	"github.com/hostdesk/hostdesk/internal/syncer"
	"github.com/hostdesk/hostdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	publisher := syncer.NewPublisher(redisClient, cfg.NodeID)
	outbox := syncer.NewOutbox(publisher, logger, cfg.SyncQuietPeriod)
	defer outbox.Stop()

	paymentsRepo := payments.NewRepository(pool)
	roomsRepo := rooms.NewRepository(pool)
	reconRepo := recon.NewRepository(pool)
	reconService := recon.NewService(reconRepo, paymentsRepo, roomsRepo, outbox, logger,
		recon.ApprovalConfig{NotesLockedAfterApproval: cfg.NotesLocked})
	reconService.WithMetrics(metrics)

	subscriber := syncer.NewSubscriber(redisClient, reconService, logger, cfg.NodeID)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	archiveRepo := archive.NewRepository(pool)
	archiveService := archive.NewService(archiveRepo, reconService, roomsRepo, jobsClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ReconHandler:   reconhttp.NewHandler(logger, reconService),
		ArchiveHandler: archivehttp.NewHandler(logger, archiveService),
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		logger.Info("starting patch subscriber", slog.String("origin", cfg.NodeID))
		return subscriber.Run(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		outbox.Flush()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("run", slog.Any("error", err))
		os.Exit(1)
	}
}
