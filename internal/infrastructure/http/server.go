package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/arisu-sports/lesson-server/internal/adapter/handler/http"
	"github.com/arisu-sports/lesson-server/internal/config"
	"github.com/arisu-sports/lesson-server/internal/middleware/auth"
	"github.com/arisu-sports/lesson-server/internal/usecase"
	pkgerrors "github.com/arisu-sports/lesson-server/pkg/errors"
	"github.com/arisu-sports/lesson-server/pkg/logger"
)

// Services bundles the usecases the HTTP surface exposes.
type Services struct {
	Enrollments *usecase.EnrollmentService
	Payments    *usecase.PaymentService
	Reconcile   *usecase.ReconcileService
	Refunds     *usecase.RefundService
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services *Services
}

func NewServer(cfg *config.Config, log *zap.Logger, services *Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(pkgerrors.ToHTTPError(err), c)
	}

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		services: services,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize handlers
	lessonHandler := handlers.NewLessonHandler(s.services.Enrollments, s.logger)
	enrollmentHandler := handlers.NewEnrollmentHandler(s.services.Enrollments, s.services.Reconcile, s.logger)
	paymentHandler := handlers.NewPaymentHandler(s.services.Payments, s.services.Reconcile, s.config.Service.ClientURL, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.services.Reconcile, s.logger)
	cancelHandler := handlers.NewCancelHandler(s.services.Refunds, s.logger)
	adminHandler := handlers.NewAdminHandler(s.services.Refunds, s.services.Reconcile, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Public routes: lesson catalog browsing and the gateway callbacks.
	// KISPG posts these server-to-server / browser-redirect, no bearer token.
	v1.GET("/lessons", lessonHandler.ListLessons)
	v1.GET("/lessons/:id", lessonHandler.GetLesson)
	v1.GET("/lessons/:id/availability", lessonHandler.GetAvailability)
	v1.POST("/payments/kispg/notify", webhookHandler.HandleNotify)
	v1.POST("/payments/kispg/return", paymentHandler.HandleReturn)

	// Protected routes (require JWT authentication)
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	protected.POST("/lessons/:id/enrollments", enrollmentHandler.CreateEnrollment)
	protected.GET("/enrollments", enrollmentHandler.ListMine)
	protected.GET("/enrollments/:id/status", enrollmentHandler.GetStatus)
	protected.GET("/enrollments/:id/payment-params", paymentHandler.GetPaymentParams)
	protected.GET("/enrollments/:id/refund-preview", cancelHandler.PreviewRefund)
	protected.POST("/enrollments/:id/cancel", cancelHandler.RequestCancel)
	protected.POST("/enrollments/:id/cancel/withdraw", cancelHandler.WithdrawCancel)

	// Admin routes
	admin := protected.Group("/admin", auth.RequireAdmin(s.logger))
	admin.GET("/cancel-requests", adminHandler.ListCancelRequests)
	admin.POST("/cancel-requests/:id/approve", adminHandler.ApproveCancelRequest)
	admin.POST("/cancel-requests/:id/deny", adminHandler.DenyCancelRequest)
	admin.POST("/enrollments/:id/cancel", adminHandler.CancelEnrollment)
	admin.POST("/enrollments/:id/execute-refund", adminHandler.ExecuteRefund)
	admin.GET("/reconciliation-flags", adminHandler.ListReconciliationFlags)
}
