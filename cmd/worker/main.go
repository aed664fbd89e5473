package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-bank/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-bank/internal/jobs"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/nfc"
	"github.com/odyssey-erp/odyssey-bank/internal/notify"
	"github.com/odyssey-erp/odyssey-bank/internal/pin"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/db"
	"github.com/odyssey-erp/odyssey-bank/internal/reports"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
	"github.com/odyssey-erp/odyssey-bank/jobs"
)

func main() {
	if app.SkipStartup(nil, "worker") {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("process", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	sender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	mailJob := jobs.NewMailJob(sender, logger, metrics)

	links, err := nfc.NewLinkSigner(cfg.NFCLinkSecret)
	if err != nil {
		logger.Error("init payment links", slog.Any("error", err))
		os.Exit(1)
	}
	vault := pin.NewVault(pin.NewPGStore(pool), pin.Config{MaxAttempts: cfg.PinMaxAttempts, Logger: logger})
	// The sweeper never moves money; it only invalidates cached pending counts.
	hooks := ledger.Hooks{Cache: reports.NewCache(redisClient, cfg.ReportCacheTTL), Logger: logger}
	nfcService := nfc.NewService(nfc.NewPGStore(pool), vault, links, hooks, nil, nil, logger, nfc.Config{
		SessionTTL:    cfg.PaymentSessionTTL,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	sweepJob := jobs.NewSessionsExpireJob(nfcService, logger, metrics)

	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger, metrics)
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(cfg.IdempotencyRetentionHours)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskSessionsExpire, Handler: sweepJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SessionSweepSpec, Task: jobs.NewSessionsExpireTask(), Options: []asynq.Option{asynq.MaxRetry(0)}},
			{Spec: cfg.IdempotencyCleanupSpec, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
