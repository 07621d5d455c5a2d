package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/wowsandek/scud-portal/internal/converter"
	"github.com/wowsandek/scud-portal/internal/handler"
	"github.com/wowsandek/scud-portal/internal/middleware"
	"github.com/wowsandek/scud-portal/internal/service"
	"github.com/wowsandek/scud-portal/internal/storage"
	"github.com/wowsandek/scud-portal/pkg/config"
	"github.com/wowsandek/scud-portal/pkg/database"
	"github.com/wowsandek/scud-portal/pkg/jwtutil"
	"github.com/wowsandek/scud-portal/pkg/logger"
	"github.com/wowsandek/scud-portal/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting SCUD portal...", cfg.LogConfig()...)

	// Configure JWT signing
	jwtutil.Initialize(&cfg.JWT)

	// Connect and migrate the database
	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// File store for uploaded turnover documents
	files, err := storage.New(cfg.Upload.Dir, log)
	if err != nil {
		log.Fatal("Failed to initialize file store", zap.Error(err))
	}
	conv := converter.New(cfg.Converter.Binary, cfg.Converter.Timeout, log)

	// Services
	authSvc := service.NewAuthService(db, log)
	tenantSvc := service.NewTenantService(db, log)
	staffSvc := service.NewStaffService(db, log)
	requestSvc := service.NewChangeRequestService(db, log)
	turnoverSvc := service.NewTurnoverService(db, files, conv, cfg.Upload.MaxFileBytes, log)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	tenantHandler := handler.NewTenantHandler(tenantSvc)
	staffHandler := handler.NewStaffHandler(staffSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	turnoverHandler := handler.NewTurnoverHandler(turnoverSvc, files)

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	// Leave headroom over the file limit for the multipart envelope.
	e.Use(echomiddleware.BodyLimit(fmt.Sprintf("%d", cfg.Upload.MaxFileBytes+1024*1024)))
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/", handler.Hello)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/api/auth")
	auth.GET("/available-stores", authHandler.AvailableStores)
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Authenticated routes
	api := e.Group("/api", middleware.AuthMiddleware)

	api.POST("/auth/change-password", authHandler.ChangePassword)

	api.GET("/tenants", tenantHandler.List)
	api.GET("/tenants/:id", tenantHandler.Get)

	api.GET("/staff/tenant/:tenantId", staffHandler.ListByTenant)
	api.POST("/staff/tenant/:tenantId", staffHandler.Add)

	api.POST("/requests", requestHandler.Create)
	api.GET("/requests/tenant/:tenantId", requestHandler.ListByTenant)

	api.POST("/turnover", turnoverHandler.Submit)
	api.GET("/turnover/tenant/:tenantId", turnoverHandler.ListByTenant)
	api.GET("/turnover/chart/:tenantId", turnoverHandler.Chart)
	api.GET("/turnover/:id/download", turnoverHandler.Download)
	api.GET("/turnover/:id/view", turnoverHandler.View)
	api.GET("/turnover/:id/view-pdf", turnoverHandler.ViewPDF)
	api.PATCH("/turnover/:id", turnoverHandler.Edit)

	// Admin-only routes
	admin := e.Group("/api", middleware.AuthMiddleware, middleware.RequireAdmin)

	admin.GET("/auth/pending-tenants", authHandler.PendingTenants)
	admin.POST("/auth/approve-registration/:id", authHandler.ApproveRegistration)
	admin.POST("/auth/reject-registration/:id", authHandler.RejectRegistration)

	admin.PATCH("/tenants/:id", tenantHandler.Update)
	admin.POST("/tenants/:id/reset-password", tenantHandler.ResetPassword)
	admin.DELETE("/tenants/:id", tenantHandler.Delete)

	admin.DELETE("/staff/:id", staffHandler.Remove)

	admin.GET("/requests", requestHandler.List)
	admin.POST("/requests/:id/approve", requestHandler.Approve)
	admin.POST("/requests/:id/reject", requestHandler.Reject)

	admin.GET("/turnover/overview", turnoverHandler.Overview)
	admin.GET("/turnover/overview/export", turnoverHandler.ExportOverview)
	admin.GET("/turnover/statistics", turnoverHandler.Statistics)
	admin.GET("/turnover/pending-approval", turnoverHandler.PendingApproval)
	admin.POST("/turnover/:id/approve", turnoverHandler.Approve)
	admin.POST("/turnover/:id/reject", turnoverHandler.Reject)

	// Start server and wait for a shutdown signal
	go func() {
		port := cfg.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil {
			log.Info("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
