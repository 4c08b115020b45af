package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/config"
	"github.com/arisu-sports/lesson-server/internal/infrastructure/database"
	httpServer "github.com/arisu-sports/lesson-server/internal/infrastructure/http"
	"github.com/arisu-sports/lesson-server/internal/infrastructure/provider/kispg"
	"github.com/arisu-sports/lesson-server/internal/infrastructure/scheduler"
	"github.com/arisu-sports/lesson-server/internal/usecase"
	"github.com/arisu-sports/lesson-server/pkg/logger"
	"github.com/arisu-sports/lesson-server/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Development: cfg.Service.Environment != "production",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	if err := database.SeedLockerInventories(db, cfg.Service.Payment.LockerTotalPerGender, zapLogger); err != nil {
		zapLogger.Fatal("Failed to seed locker inventories", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Redis is a best-effort status event channel; the service runs without it.
	var publisher messaging.RedisClient
	if cfg.Redis.Enabled {
		publisher, err = messaging.NewRedisClient(messaging.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			zapLogger.Warn("Redis unavailable, status events disabled", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	// Payment gateway client
	kispgClient := kispg.NewClient(cfg.Service.KISPG, zapLogger)

	// Usecases
	enrollments := usecase.NewEnrollmentService(
		repos.Enrollment, repos.Lesson, repos.Locker,
		cfg.Service.Payment, cfg.Service.ClientURL, zapLogger)
	payments := usecase.NewPaymentService(repos.Enrollment, kispgClient, zapLogger)
	reconcile := usecase.NewReconcileService(
		repos.Enrollment, repos.Notification, kispgClient,
		publisher, cfg.Service.Payment, zapLogger)
	refunds := usecase.NewRefundService(
		repos.Enrollment, repos.Payment, repos.CancelRequest,
		kispgClient, publisher, zapLogger)
	expiration := usecase.NewExpirationService(repos.Enrollment, publisher, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Expiration sweeper
	sweeper := scheduler.NewSweeper(expiration, cfg.Service.Payment.SweepSpec, zapLogger)
	if err := sweeper.Start(); err != nil {
		zapLogger.Fatal("Failed to start expiration sweeper", zap.Error(err))
	}

	// HTTP server
	httpSrv := httpServer.NewServer(cfg, zapLogger, &httpServer.Services{
		Enrollments: enrollments,
		Payments:    payments,
		Reconcile:   reconcile,
		Refunds:     refunds,
	})

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down...")

	sweeper.Stop()
	if err := httpSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
