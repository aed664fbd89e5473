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

	"github.com/odyssey-erp/odyssey-bank/internal/accounts"
	"github.com/odyssey-erp/odyssey-bank/internal/app"
	"github.com/odyssey-erp/odyssey-bank/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-bank/internal/audit/http"
	"github.com/odyssey-erp/odyssey-bank/internal/auth"
	"github.com/odyssey-erp/odyssey-bank/internal/business"
	"github.com/odyssey-erp/odyssey-bank/internal/events"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/nfc"
	"github.com/odyssey-erp/odyssey-bank/internal/notify"
	"github.com/odyssey-erp/odyssey-bank/internal/observability"
	"github.com/odyssey-erp/odyssey-bank/internal/pin"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/db"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/reports"
	"github.com/odyssey-erp/odyssey-bank/internal/roles"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
	"github.com/odyssey-erp/odyssey-bank/internal/withdrawals"
	"github.com/odyssey-erp/odyssey-bank/jobs"
)

func main() {
	if app.SkipStartup(nil, "http") {
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := db.Migrate(ctx, dbpool, logger); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

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

	sessionManager := shared.NewSessionManager(redisClient, "odyssey_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	publisher := events.Connect(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("events close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	mailer := notify.NewMailer(jobClient, cfg.MailLocale, logger)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	rbacService := rbac.NewService(rbac.NewPGStore(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	hooks := ledger.Hooks{Events: publisher, Cache: reportCache, Metrics: metrics, Logger: logger}

	ledgerService := ledger.NewService(ledger.NewPGStore(dbpool), hooks)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, idempotencyStore, rbacMiddleware)

	vault := pin.NewVault(pin.NewPGStore(dbpool), pin.Config{
		MaxAttempts: cfg.PinMaxAttempts,
		Metrics:     metrics,
		Logger:      logger,
	})
	links, err := nfc.NewLinkSigner(cfg.NFCLinkSecret)
	if err != nil {
		logger.Error("init payment links", slog.Any("error", err))
		os.Exit(1)
	}
	nfcService := nfc.NewService(nfc.NewPGStore(dbpool), vault, links, hooks, auditLogger, metrics, logger, nfc.Config{
		SessionTTL:    cfg.PaymentSessionTTL,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	nfcHandler := nfc.NewHandler(logger, nfcService, rbacMiddleware)

	businessService := business.NewService(business.NewPGStore(dbpool), hooks, mailer, auditLogger, logger)
	businessHandler := business.NewHandler(logger, businessService, rbacMiddleware)

	withdrawalService := withdrawals.NewService(withdrawals.NewPGStore(dbpool), hooks, mailer, auditLogger, logger)
	withdrawalHandler := withdrawals.NewHandler(logger, withdrawalService, rbacMiddleware)

	accountsService := accounts.NewService(accounts.NewPGStore(dbpool), ledgerService, auditLogger, logger)
	accountsHandler := accounts.NewHandler(logger, accountsService, rbacMiddleware)

	rolesService := roles.NewService(roles.NewRepository(dbpool), auditLogger, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacMiddleware)

	auditService := audit.NewService(audit.NewRepository(dbpool))
	auditHandler := audithttp.NewHandler(logger, auditService, rbacMiddleware)

	reportsService := reports.NewService(reports.NewPGStore(dbpool), reportCache, logger)
	reportsHandler := reports.NewHandler(logger, reportsService, rbacMiddleware)

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, rbacMiddleware)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		RBACMiddleware:    rbacMiddleware,
		Metrics:           metrics,
		Pool:              dbpool,
		Redis:             redisClient,
		AuthHandler:       authHandler,
		LedgerHandler:     ledgerHandler,
		NFCHandler:        nfcHandler,
		BusinessHandler:   businessHandler,
		WithdrawalHandler: withdrawalHandler,
		AccountsHandler:   accountsHandler,
		RolesHandler:      rolesHandler,
		AuditHandler:      auditHandler,
		ReportsHandler:    reportsHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
