// Package app assembles the attendance API from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sunday-attendance/api/swagger"
	"github.com/noah-isme/sunday-attendance/internal/handler"
	"github.com/noah-isme/sunday-attendance/internal/middleware"
	"github.com/noah-isme/sunday-attendance/internal/repository"
	"github.com/noah-isme/sunday-attendance/internal/service"
	"github.com/noah-isme/sunday-attendance/pkg/cache"
	"github.com/noah-isme/sunday-attendance/pkg/config"
	"github.com/noah-isme/sunday-attendance/pkg/database"
	"github.com/noah-isme/sunday-attendance/pkg/export"
	"github.com/noah-isme/sunday-attendance/pkg/logger"
	corsmiddleware "github.com/noah-isme/sunday-attendance/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sunday-attendance/pkg/middleware/requestid"
	"github.com/noah-isme/sunday-attendance/pkg/storage"
)

type closableCache interface {
	service.CacheRepository
	Close() error
}

// App owns the router and the resources it must release on shutdown.
type App struct {
	Router *gin.Engine
	DB     *sqlx.DB

	cache  closableCache
	logger *zap.Logger
}

// New opens the store, migrates it, and wires repositories, services and handlers.
func New(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*App, error) {
	if logr == nil {
		logr = zap.NewNop()
	}

	db, dialect, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db, dialect, time.Now().In(cfg.Attendance.Location)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	cacheRepo, err := newCacheRepository(ctx, cfg, logr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	metrics := service.NewMetricsService()
	if !cfg.Metrics.Enabled {
		metrics = nil
	}
	validate := validator.New()

	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
	readModel := service.NewReadModel(classRepo, studentRepo, attendanceRepo, sessionRepo, cacheSvc, metrics, logr)

	sessionSvc := service.NewSessionService(sessionRepo, readModel, validate, logr)
	calendarSvc := service.NewCalendarService(sessionSvc, cfg.Attendance.Weekday, cfg.Attendance.Location)
	classSvc := service.NewClassService(classRepo, readModel, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, readModel, validate, logr)
	rosterSvc := service.NewRosterService(studentRepo, classRepo, readModel, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, classRepo, calendarSvc, readModel, metrics, validate, logr)
	reportSvc := service.NewReportService(readModel, calendarSvc, logr)
	exportSvc := service.NewExportService(reportSvc, service.ExportConfig{FilePrefix: cfg.Reports.FilePrefix}, logr,
		export.NewXLSXExporter(), export.NewCSVExporter(), export.NewPDFExporter())
	if cfg.Reports.ArchiveDir != "" {
		archive, err := storage.NewArchive(cfg.Reports.ArchiveDir, cfg.Reports.ArchiveRetention)
		if err != nil {
			_ = cacheRepo.Close()
			_ = db.Close()
			return nil, err
		}
		exportSvc.WithArchive(archive)
	}

	handlers := handler.Handlers{
		Session:    handler.NewSessionHandler(sessionSvc, calendarSvc),
		Class:      handler.NewClassHandler(classSvc, rosterSvc),
		Student:    handler.NewStudentHandler(studentSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Report:     handler.NewReportHandler(reportSvc, exportSvc, logr),
		System:     handler.NewSystemHandler(metrics, db),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, metrics != nil)
	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return &App{Router: r, DB: db, cache: cacheRepo, logger: logr}, nil
}

func newCacheRepository(ctx context.Context, cfg *config.Config, logr *zap.Logger) (closableCache, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logr.Info("snapshot cache backed by redis", zap.String("addr", cache.Addr(cfg.Redis)), zap.String("namespace", cfg.Redis.Namespace))
		return repository.NewCacheRepository(client, cfg.Redis.Namespace, logr), nil
	default:
		return repository.NewMemoryCacheRepository(), nil
	}
}

// Close releases the cache backend and the database.
func (a *App) Close() error {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close cache", zap.Error(err))
	}
	return a.DB.Close()
}
