package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/config"
	"github.com/oakbyte/pulse-api/internal/database"
	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/handler"
	"github.com/oakbyte/pulse-api/internal/logging"
	"github.com/oakbyte/pulse-api/internal/middleware"
	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/repository"
	"github.com/oakbyte/pulse-api/internal/router"
	"github.com/oakbyte/pulse-api/internal/service"
)

func main() {
	runCleanup := flag.Bool("cleanup", false, "run a one-shot activity log cleanup and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.DatabaseMaxOpenConns)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Admin{}, &models.ActivityLog{}, &models.AdminActivityLog{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNats(cfg.NatsURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	sink, closeSink, err := logSink(cfg)
	if err != nil {
		log.Fatalf("failed to open log sink: %v", err)
	}
	defer closeSink()
	fileLogger := logging.NewCentralizedLogger(sink, cfg.LogChannel)

	validate := validator.New(validator.WithRequiredStructEnabled())

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	activityRepo := repository.NewActivityLogRepository(db)
	adminActivityRepo := repository.NewAdminActivityLogRepository(db)
	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	streamService := service.NewActivityStreamService(redisClient, cfg.ActivityChannelBase, natsConn, logger)
	streamService.Start(rootCtx)

	activityLogger := service.NewActivityLogger(activityRepo, fileLogger, streamService, logger)
	observer := service.NewActivityObserver(activityLogger, cfg.ObserverEnabled(!*runCleanup), logger)

	registry := service.NewSubjectRegistry()
	registry.Register("User", func(ctx context.Context, id string) (dto.SubjectSummary, error) {
		user, err := userRepo.FindByID(ctx, id)
		if err != nil {
			return dto.SubjectSummary{}, err
		}
		return dto.SubjectSummary{Type: "User", ID: user.ID, Label: user.Name}, nil
	})
	registry.Register("Admin", func(ctx context.Context, id string) (dto.SubjectSummary, error) {
		admin, err := adminRepo.FindByID(ctx, id)
		if err != nil {
			return dto.SubjectSummary{}, err
		}
		return dto.SubjectSummary{Type: "Admin", ID: admin.ID, Label: admin.Name}, nil
	})

	queryService := service.NewActivityQueryService(activityRepo, userRepo, registry, redisClient, cfg.DashboardCacheTTL, service.DashboardWindow{
		RecentDays:  cfg.DashboardRecentDays,
		RecentLimit: cfg.DashboardRecentLimit,
		WindowDays:  cfg.DashboardWindowDays,
	}, logger)
	cleanupService := service.NewActivityCleanupService(activityRepo, fileLogger, cfg.ActivityRetentionDays, logger)

	if *runCleanup {
		result, err := cleanupService.Cleanup(rootCtx, 0)
		if err != nil {
			log.Fatalf("activity cleanup failed: %v", err)
		}
		logger.Info().Int64("deleted_records", result.DeletedRecords).Int("days_kept", result.DaysKept).Msg("one-shot cleanup finished")
		return
	}

	recordService := service.NewActivityService(activityLogger, registry, validate, logger)
	authService := service.NewAuthService(userRepo, activityLogger, observer, fileLogger, cfg.JWTSecret, cfg.JWTExpiry, cfg.BcryptCost, logger)
	userService := service.NewUserService(userRepo, observer, logger)
	adminService := service.NewAdminService(adminRepo, adminActivityRepo, observer, cfg.BcryptCost, logger)
	statsService := service.NewStatsService(userRepo, adminRepo, activityRepo, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:           handler.NewAuthHandler(authService, validate, logger),
		UserHandler:           handler.NewUserHandler(userService, validate, logger),
		AdminHandler:          handler.NewAdminHandler(adminService, validate, logger),
		ActivityHandler:       handler.NewActivityHandler(queryService, recordService, cleanupService, registry, logger),
		ActivityStreamHandler: handler.NewActivityStreamHandler(streamService, logger),
		StatsHandler:          handler.NewStatsHandler(statsService, logger),
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
	})

	go runRetentionLoop(rootCtx, cleanupService, logger)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(rootCtx, app)
}

// runRetentionLoop prunes expired activity records once a day.
func runRetentionLoop(ctx context.Context, cleanup *service.ActivityCleanupService, logger zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := cleanup.Cleanup(ctx, 0); err != nil {
				logger.Error().Err(err).Msg("scheduled activity cleanup failed")
			}
		}
	}
}

func logSink(cfg config.Config) (io.Writer, func(), error) {
	if cfg.AppEnv == "development" {
		return os.Stdout, func() {}, nil
	}

	dir := "logs"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.log", cfg.LogChannel))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	return file, func() { _ = file.Close() }, nil
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
