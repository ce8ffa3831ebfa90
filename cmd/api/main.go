package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/attendly/fieldforce-api/api/swagger"
	"github.com/attendly/fieldforce-api/internal/classifier"
	"github.com/attendly/fieldforce-api/internal/geo"
	"github.com/attendly/fieldforce-api/internal/handler"
	"github.com/attendly/fieldforce-api/internal/middleware"
	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/internal/repository"
	"github.com/attendly/fieldforce-api/internal/service"
	"github.com/attendly/fieldforce-api/pkg/cache"
	"github.com/attendly/fieldforce-api/pkg/config"
	"github.com/attendly/fieldforce-api/pkg/database"
	"github.com/attendly/fieldforce-api/pkg/logger"
	corsmiddleware "github.com/attendly/fieldforce-api/pkg/middleware/cors"
	reqidmiddleware "github.com/attendly/fieldforce-api/pkg/middleware/requestid"
)

// @title FieldForce Attendance API
// @version 1.0.0
// @description Attendance determination and approval workflow engine for field teams
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, summary cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	attendanceRepo := repository.NewAttendanceRepository(db)
	travelRepo := repository.NewTravelRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	// Shared components.
	validate := validator.New()
	ruleSet := classifier.New(classifier.CutoffsFromConfig(cfg.Workday))
	fence := geo.NewValidator(cfg.Geofence.RadiusMeters)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT)

	auditSvc := service.NewAuditService(auditRepo, logr)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	snapshotSvc := service.NewSnapshotService(cfg.Snapshot, logr)
	snapshotSvc.Start(ctx)
	defer snapshotSvc.Stop()

	exportSvc := service.NewExportService(cfg.Payroll, attendanceRepo, directoryRepo, logr)
	leaveSvc := service.NewLeaveService(leaveRepo)

	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceConfig{
		Store:           attendanceRepo,
		Leaves:          leaveRepo,
		Travel:          travelRepo,
		Directory:       directoryRepo,
		Geofence:        fence,
		Classifier:      ruleSet,
		Audit:           auditSvc,
		Notifier:        snapshotSvc,
		Cache:           cacheRepo,
		Metrics:         metricsSvc,
		Validator:       validate,
		Logger:          logr,
		EnforceGeofence: cfg.Geofence.Enforce,
		SummaryTTL:      cfg.Cache.SummaryTTL,
	})

	confirmationSvc := service.NewConfirmationService(service.ConfirmationServiceConfig{
		Store:      attendanceRepo,
		Leaves:     leaveRepo,
		Classifier: ruleSet,
		Audit:      auditSvc,
		Notifier:   snapshotSvc,
		Cache:      cacheRepo,
		Metrics:    metricsSvc,
		Exporter:   exportSvc,
		Logger:     logr,
	})

	travelSvc := service.NewTravelService(service.TravelServiceConfig{
		Store:     travelRepo,
		Records:   attendanceRepo,
		Directory: directoryRepo,
		Audit:     auditSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
		Rules: service.TravelRules{
			MinDistanceKM:         cfg.Travel.MinDistanceKM,
			MinJustificationWords: cfg.Travel.MinJustificationWords,
			MinPurposeWords:       cfg.Travel.MinPurposeWords,
		},
	})

	// Handlers.
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, leaveSvc, auditSvc)
	confirmationHandler := handler.NewConfirmationHandler(confirmationSvc)
	travelHandler := handler.NewTravelHandler(travelSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		attendance := api.Group("/attendance")
		{
			attendance.POST("/check-in", middleware.Require(models.CapAttendanceMark), attendanceHandler.CheckIn)
			attendance.POST("/check-out", middleware.Require(models.CapAttendanceMark), attendanceHandler.CheckOut)
			attendance.GET("", attendanceHandler.List)
			attendance.GET("/records/:employeeId", attendanceHandler.Get)
			attendance.GET("/records/:employeeId/history", attendanceHandler.History)
			attendance.GET("/records/:employeeId/summary", attendanceHandler.Summary)
			attendance.GET("/records/:employeeId/leaves", attendanceHandler.Leaves)
			attendance.POST("/sweep", middleware.Require(models.CapAttendanceApprove), attendanceHandler.Sweep)
			attendance.POST("/confirm", middleware.Require(models.CapAttendanceConfirm), confirmationHandler.Confirm)
			attendance.POST("/approve", middleware.Require(models.CapAttendanceApprove), confirmationHandler.Approve)
			attendance.POST("/approve/bulk", middleware.Require(models.CapAttendanceApprove), confirmationHandler.BulkApprove)
		}

		api.POST("/payroll/close", middleware.Require(models.CapPayrollClose), confirmationHandler.CloseCycle)

		travel := api.Group("/travel")
		{
			travel.POST("", middleware.Require(models.CapAttendanceMark), travelHandler.Submit)
			travel.GET("", travelHandler.List)
			travel.GET("/:id", travelHandler.Get)
			travel.POST("/:id/decide", middleware.Require(models.CapTravelDecide), travelHandler.Decide)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
