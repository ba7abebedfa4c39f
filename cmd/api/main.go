package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unimark/attendance-api/api/swagger"
	"github.com/unimark/attendance-api/internal/handler"
	"github.com/unimark/attendance-api/internal/middleware"
	"github.com/unimark/attendance-api/internal/models"
	"github.com/unimark/attendance-api/internal/repository"
	"github.com/unimark/attendance-api/internal/service"
	"github.com/unimark/attendance-api/pkg/cache"
	"github.com/unimark/attendance-api/pkg/config"
	"github.com/unimark/attendance-api/pkg/database"
	"github.com/unimark/attendance-api/pkg/logger"
	corsmiddleware "github.com/unimark/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unimark/attendance-api/pkg/middleware/requestid"
)

// @title UniMark Attendance API
// @version 1.0.0
// @description QR-based attendance tracking for university classes
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	// repositories
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewAttendanceSessionRepository(db)
	qrRepo := repository.NewQRSessionRepository(db)
	recordRepo := repository.NewAttendanceRecordRepository(db)
	geofenceRepo := repository.NewGeofenceRepository(db)
	justificationRepo := repository.NewJustificationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// services
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "attendance-api",
	})
	studentSvc := service.NewStudentService(studentRepo, logr)
	qrSvc := service.NewQRSessionService(qrRepo, sessionRepo, classRepo, cacheRepo, validate, logr, service.QRSessionConfig{
		Expiry:       cfg.QR.Expiry,
		PollInterval: cfg.QR.PollInterval,
		BaseURL:      cfg.QR.BaseURL,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, cfg.Notifications.WorkerConcurrency, cfg.Notifications.WorkerRetries, logr)
	gamificationSvc := service.NewGamificationService(pointsRepo, cfg.Gamification.Enabled, cfg.Gamification.CheckInPoints, logr)
	attendanceSvc := service.NewAttendanceService(
		qrRepo, recordRepo, studentSvc, geofenceRepo, validate, logr,
		models.GeofenceSettings{Enabled: cfg.Geofence.Enabled, DefaultRadius: cfg.Geofence.DefaultRadius},
	)
	// The notifier hook must be a nil literal when notifications are
	// disabled: a nil *NotificationService stored in an interface value is
	// non-nil and would defeat the optional-hook guards.
	var justificationSvc *service.JustificationService
	if cfg.Notifications.Enabled {
		attendanceSvc.WithHooks(gamificationSvc, notificationSvc, metricsSvc, cacheRepo)
		justificationSvc = service.NewJustificationService(justificationRepo, recordRepo, notificationSvc, validate, logr)
	} else {
		attendanceSvc.WithHooks(gamificationSvc, nil, metricsSvc, cacheRepo)
		justificationSvc = service.NewJustificationService(justificationRepo, recordRepo, nil, validate, logr)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Notifications.Enabled {
		notificationSvc.Start(rootCtx)
		defer notificationSvc.Stop()
	}

	// handlers
	authHandler := handler.NewAuthHandler(authSvc)
	qrHandler := handler.NewQRHandler(qrSvc, attendanceSvc, metricsSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, gamificationSvc)
	justificationHandler := handler.NewJustificationHandler(justificationSvc, studentSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	staffOnly := []gin.HandlerFunc{
		middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleAdmin, models.RoleStaff),
	}

	qr := api.Group("/qr")
	qr.POST("/generate", append(staffOnly, middleware.Audit(userRepo, models.AuditActionQRGenerate, "qr_session"), qrHandler.Generate)...)
	qr.POST("/mark/:sessionId", middleware.OptionalJWT(authSvc), qrHandler.Mark)
	qr.GET("/session/:sessionId", append(staffOnly, qrHandler.Status)...)
	qr.POST("/session/:sessionId/close", append(staffOnly, middleware.Audit(userRepo, models.AuditActionSessionClose, "qr_session"), qrHandler.Close)...)

	attendance := api.Group("/attendance")
	attendance.GET("", append(staffOnly, attendanceHandler.List)...)
	attendance.POST("/manual", append(staffOnly, middleware.Audit(userRepo, models.AuditActionManualMark, "attendance_record"), attendanceHandler.MarkManual)...)

	students := api.Group("/students", middleware.JWT(authSvc))
	students.GET("/:id/attendance/summary", attendanceHandler.StudentSummary)
	students.GET("/:id/points", attendanceHandler.StudentPoints)

	justifications := api.Group("/justifications", middleware.JWT(authSvc))
	justifications.POST("", justificationHandler.Submit)
	justifications.GET("", justificationHandler.List)
	justifications.PUT("/:id/review",
		middleware.RequireRoles(models.RoleAdmin, models.RoleStaff),
		middleware.Audit(userRepo, models.AuditActionJustificationReview, "justification"),
		justificationHandler.Review,
	)

	notifications := api.Group("/notifications", middleware.JWT(authSvc))
	notifications.GET("", notificationHandler.List)
	notifications.POST("/:id/read", notificationHandler.MarkRead)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
