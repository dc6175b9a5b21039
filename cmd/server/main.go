package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lokasi-umkm-backend/internal/config"
	"lokasi-umkm-backend/internal/db"
	"lokasi-umkm-backend/internal/handler"
	"lokasi-umkm-backend/internal/messaging"
	"lokasi-umkm-backend/internal/push"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/server"
	"lokasi-umkm-backend/internal/service"
	"lokasi-umkm-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Error("failed to migrate database", "err", err)
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	// repositories
	userRepo := repository.UserRepository{DB: pg}
	plotRepo := repository.PlotRepository{DB: pg}
	permitRepo := repository.PermitRepository{DB: pg}
	documentRepo := repository.DocumentRepository{DB: pg}
	deletionRepo := repository.DeletionRequestRepository{DB: pg}
	reportRepo := repository.ReportRepository{DB: pg}
	notificationRepo := repository.NotificationRepository{DB: pg}
	fcmRepo := repository.FCMRepository{DB: pg}

	files := storage.NewLocal(cfg.UploadDir)
	notifier := &service.Notifier{Store: notificationRepo, Admins: userRepo, Logger: logger}

	// Push (optional)
	if cfg.FirebaseProjectID != "" {
		fcm, err := push.New(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredFile, fcmRepo)
		if err != nil {
			logger.Error("failed to init firebase messaging", "err", err)
			os.Exit(1)
		}
		notifier.Push = fcm
	}

	// Event broker (optional)
	if cfg.AMQPURL != "" {
		broker, err := messaging.Dial(ctx, cfg.AMQPURL, logger)
		if err != nil {
			logger.Error("failed to connect rabbitmq", "err", err)
			os.Exit(1)
		}
		defer broker.Close()
		notifier.Events = broker
	}

	// services
	authSvc := service.AuthService{Users: userRepo, Logger: logger, JWTSecret: cfg.JWTSecret, TokenTTL: cfg.AccessTokenTTL}
	plotSvc := service.PlotService{
		Tx:        pg,
		Plots:     plotRepo,
		Permits:   permitRepo,
		Documents: documentRepo,
		Deletions: deletionRepo,
		Files:     files,
		Logger:    logger,
	}
	permitSvc := service.PermitService{
		Tx:             pg,
		Plots:          plotRepo,
		Permits:        permitRepo,
		Documents:      documentRepo,
		Deletions:      deletionRepo,
		Files:          files,
		Notifier:       notifier,
		Logger:         logger,
		PermitValidity: cfg.PermitValidity,
		MaxFileSize:    cfg.MaxPhotoSize,
	}
	reportSvc := service.ReportService{
		Tx:           pg,
		Reports:      reportRepo,
		Files:        files,
		Notifier:     notifier,
		Logger:       logger,
		MaxPhotoSize: cfg.MaxPhotoSize,
	}
	profileSvc := service.ProfileService{Users: userRepo, Files: files, Logger: logger, MaxPhotoSize: cfg.MaxPhotoSize}

	go reportSvc.RunReminders(ctx, cfg.ReminderInterval, cfg.UnhandledReportAfter)

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	docsHandler := handler.DocsHandler{}
	authHandler := handler.AuthHandler{Service: authSvc, Logger: logger, CookieName: cfg.CookieName, CookieSecure: cfg.CookieSecure}
	plotHandler := handler.PlotHandler{Service: plotSvc, Logger: logger}
	submissionHandler := handler.SubmissionHandler{Service: permitSvc, Logger: logger, MaxFileSize: cfg.MaxPhotoSize}
	reportHandler := handler.ReportHandler{Service: reportSvc, Logger: logger, MaxPhotoSize: cfg.MaxPhotoSize}
	profileHandler := handler.ProfileHandler{Service: profileSvc, Logger: logger, MaxPhotoSize: cfg.MaxPhotoSize}
	notificationHandler := handler.NotificationHandler{Store: notificationRepo, Tokens: fcmRepo, Logger: logger}
	exportHandler := handler.ExportHandler{Permits: permitSvc, Reports: reportSvc, Logger: logger}

	router := server.NewRouter(cfg, logger, authSvc, healthHandler, docsHandler, authHandler, plotHandler, submissionHandler,
		reportHandler, profileHandler, notificationHandler, exportHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
