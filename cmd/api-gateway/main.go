package main

import (
	"context"
	"errors"
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

	_ "github.com/minhvh/teacher-hub-api/api/swagger"
	"github.com/minhvh/teacher-hub-api/internal/handler"
	"github.com/minhvh/teacher-hub-api/internal/lark"
	"github.com/minhvh/teacher-hub-api/internal/middleware"
	"github.com/minhvh/teacher-hub-api/internal/repository"
	"github.com/minhvh/teacher-hub-api/internal/service"
	"github.com/minhvh/teacher-hub-api/pkg/cache"
	"github.com/minhvh/teacher-hub-api/pkg/config"
	"github.com/minhvh/teacher-hub-api/pkg/database"
	"github.com/minhvh/teacher-hub-api/pkg/logger"
	corsmiddleware "github.com/minhvh/teacher-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/minhvh/teacher-hub-api/pkg/middleware/requestid"
	"github.com/minhvh/teacher-hub-api/pkg/storage"
)

// @title Teacher Hub API
// @version 1.0.0
// @description School staff management backend: scheduling, leave, messaging and course administration
// @BasePath /api
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	uploads, err := storage.NewUploadStorage(cfg.Uploads.Dir, cfg.Uploads.MaxDocumentBytes, cfg.Uploads.MaxImageBytes)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewCourseAssignmentRepository(db)
	classRepo := repository.NewCourseClassRepository(db)
	scheduleRepo := repository.NewWorkScheduleRepository(db)
	leaveRepo := repository.NewLeaveRequestRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	fileRepo := repository.NewCourseFileRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, assignmentRepo, classRepo, userRepo, validate, logr)
	scheduleSvc := service.NewWorkScheduleService(scheduleRepo, userRepo, validate, logr)
	leaveSvc := service.NewLeaveRequestService(leaveRepo, validate, logr, service.LeaveConfig{
		OverlapCheck: cfg.Leave.OverlapCheck,
	})
	messageSvc := service.NewMessageService(messageRepo, userRepo, validate, logr)
	profileSvc := service.NewProfileService(profileRepo, userRepo, uploads, validate, logr)
	fileSvc := service.NewCourseFileService(fileRepo, courseRepo, uploads, logr)
	dashboardSvc := service.NewDashboardService(
		scheduleRepo, courseRepo, classRepo, assignmentRepo,
		messageRepo, leaveRepo, userRepo, leaveSvc,
		cacheRepo, cfg.Dashboard.CacheTTL, logr,
	)
	scheduleSvc.UseDashboard(dashboardSvc)
	leaveSvc.UseDashboard(dashboardSvc)
	messageSvc.UseDashboard(dashboardSvc)
	exportSvc := service.NewExportService(scheduleSvc, logr)

	larkClient := lark.NewClient(cfg.Lark.APIURL, cfg.Lark.AppID, cfg.Lark.AppSecret, logr)
	larkClient.UseTokenStore(cacheRepo)
	syncSvc := service.NewLarkSyncService(larkClient, userRepo, courseRepo, scheduleRepo, leaveRepo, service.LarkSyncConfig{
		Enabled:            cfg.Lark.Enabled,
		BaseToken:          cfg.Lark.BaseToken,
		UsersTable:         cfg.Lark.UsersTable,
		CoursesTable:       cfg.Lark.CoursesTable,
		SchedulesTable:     cfg.Lark.SchedulesTable,
		LeaveRequestsTable: cfg.Lark.LeaveRequestsTable,
		RecordDelay:        cfg.Lark.RecordDelay,
		Workers:            cfg.Lark.SyncWorkers,
	}, metricsSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncSvc.Start(ctx)
	defer syncSvc.Stop()

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router := &handler.Router{
		Auth:        handler.NewAuthHandler(authSvc, userSvc),
		Users:       handler.NewUserHandler(userSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Files:       handler.NewCourseFileHandler(fileSvc, metricsSvc),
		Schedules:   handler.NewWorkScheduleHandler(scheduleSvc, exportSvc),
		Leaves:      handler.NewLeaveRequestHandler(leaveSvc),
		Messages:    handler.NewMessageHandler(messageSvc),
		Profiles:    handler.NewProfileHandler(profileSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Sync:        handler.NewSyncHandler(syncSvc),
		AuthService: authSvc,
		AuditRepo:   userRepo,
	}
	router.Register(r, cfg.APIPrefix)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
