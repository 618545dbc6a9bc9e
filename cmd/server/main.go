package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/minhtran/claimflow/internal/application/service"
	"github.com/minhtran/claimflow/internal/config"
	"github.com/minhtran/claimflow/internal/infrastructure/notification"
	"github.com/minhtran/claimflow/internal/infrastructure/persistence/repository"
	"github.com/minhtran/claimflow/internal/infrastructure/persistence/sqlite"
	"github.com/minhtran/claimflow/internal/infrastructure/worker"
	httpserver "github.com/minhtran/claimflow/internal/interfaces/http"
	"github.com/minhtran/claimflow/pkg/database"
	"github.com/minhtran/claimflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting claimflow server")

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories and transaction manager
	txManager := sqlite.NewDB(db.DB, logger)
	claimRepo := repository.NewClaimRepository(db.DB, logger)
	notificationRepo := repository.NewNotificationRepository(db.DB, logger)
	staffDir := repository.NewStaffDirectory(db.DB, logger)
	projectDir := repository.NewProjectDirectory(db.DB, logger)

	// Services
	notifier := notification.NewOutboxNotifier(notificationRepo)
	serviceLogger := utils.NewSugarAdapter(logger)
	claimService := service.NewClaimService(claimRepo, staffDir, projectDir, txManager, serviceLogger)
	lifecycleService := service.NewLifecycleService(claimRepo, staffDir, projectDir, notifier, txManager, serviceLogger)
	exportService := service.NewExportService(claimRepo, serviceLogger)

	// Background notification delivery
	sender := notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.Notification.SMTP.Host,
		Port:     cfg.Notification.SMTP.Port,
		Username: cfg.Notification.SMTP.Username,
		Password: cfg.Notification.SMTP.Password,
		From:     cfg.Notification.SMTP.From,
	}, logger)
	dispatcher := notification.NewDispatcher(notification.DispatcherConfig{
		PollInterval: cfg.Notification.PollInterval,
		BatchSize:    cfg.Notification.BatchSize,
	}, notificationRepo, claimRepo, staffDir, sender, logger)

	workers := worker.NewManager(logger)
	workers.Register(dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, claimService, lifecycleService, exportService, serviceLogger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("Server error", zap.Error(err))
	}

	cancel()

	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}
	if err := workers.StopAll(); err != nil {
		logger.Error("Failed to stop workers", zap.Error(err))
	}

	logger.Info("Server stopped")
}
