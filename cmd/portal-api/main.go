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
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-portal-api/api/swagger"
	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/cache"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/database"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
)

const shutdownTimeout = 15 * time.Second

// @title Campus Portal API
// @version 1.0.0
// @description JSON backend for the college site and student dashboard, backed by the LMS web services
// @BasePath /api
// @schemes http https

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	lms, err := moodle.NewFactory(moodle.Config{
		BaseURL:       cfg.Moodle.BaseURL,
		ServiceToken:  cfg.Moodle.ServiceToken,
		LoginService:  cfg.Moodle.LoginService,
		StudentRoleID: cfg.Moodle.StudentRoleID,
		Timeout:       cfg.Moodle.Timeout,
		InsecureTLS:   cfg.Moodle.InsecureTLS,
	}, moodle.WithLogger(logr), moodle.WithObserver(metrics))
	if err != nil {
		return fmt.Errorf("lms client: %w", err)
	}

	checks := map[string]handler.Pinger{}

	var cacheRepo service.CacheRepository
	if cfg.CatalogCache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("catalog cache: %w", err)
		}
		defer client.Close() //nolint:errcheck
		repo := repository.NewCacheRepository(client, logr)
		cacheRepo = repo
		checks["redis"] = repo
	}
	catalogCache := service.NewCacheService(cacheRepo, metrics, cfg.CatalogCache.TTL, logr, cfg.CatalogCache.Enabled)
	if err := catalogCache.InvalidateCatalog(ctx); err != nil {
		logr.Warn("failed to clear catalog cache", zap.Error(err))
	}

	profileRepo, audit, closeStore, err := openStores(ctx, cfg, logr, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	secret := cfg.Session.Secret
	if secret == "" {
		if cfg.Env == config.EnvProduction {
			return errors.New("SESSION_SECRET is required in production")
		}
		secret = uuid.NewString()
		logr.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}
	sessions := service.NewSessionService(service.SessionConfig{Secret: secret, MaxAge: cfg.Session.MaxAge})
	validate := validator.New()

	courseSvc := service.NewCourseService(lms, catalogCache, cfg.CatalogCache.TTL, logr)
	cookie := handler.CookieConfig{Name: cfg.Session.CookieName, MaxAge: sessions.MaxAge(), Secure: cfg.Session.Secure}

	router := newRouter(cfg, logr, handlers{
		auth:       handler.NewAuthHandler(service.NewAuthService(lms, sessions, validate, logr), cookie),
		profile:    handler.NewProfileHandler(service.NewProfileService(profileRepo, validate, logr)),
		course:     handler.NewCourseHandler(courseSvc, service.NewExportService(nil, nil, logr)),
		enrollment: handler.NewEnrollmentHandler(service.NewEnrollmentService(lms, audit, metrics, logr)),
		category:   handler.NewCategoryHandler(service.NewCategoryService(lms, courseSvc, catalogCache, cfg.CatalogCache.TTL, logr)),
		ops:        handler.NewMetricsHandler(metrics, checks),
		sessions:   sessions,
		metrics:    metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type profileStore interface {
	FindByOpenID(ctx context.Context, openID string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

type auditSink interface {
	Create(ctx context.Context, audit *models.EnrollmentAudit) error
}

// openStores connects the profile store and the enrollment audit log. Without
// a database profiles live in memory and no audit is kept.
func openStores(ctx context.Context, cfg *config.Config, logr *zap.Logger, checks map[string]handler.Pinger) (profileStore, auditSink, func(), error) {
	if !cfg.ProfileStore.Enabled {
		logr.Info("profile store disabled, using in-memory profiles")
		return repository.NewMemoryProfileRepository(), nil, func() {}, nil
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("profile store: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("migrate profile store: %w", err)
	}
	checks["database"] = handler.PingFunc(db.PingContext)

	audit := service.NewAuditWriter(repository.NewAuditRepository(db), jobs.Config{
		Workers:    2,
		MaxRetries: 2,
		Logger:     logr,
	})
	closeFn := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := audit.Close(flushCtx); err != nil {
			logr.Warn("enrollment audit flush incomplete", zap.Error(err))
		}
		closeDB(db, logr)
	}
	return repository.NewProfileRepository(db), audit, closeFn, nil
}

func closeDB(db *sqlx.DB, logr *zap.Logger) {
	if err := db.Close(); err != nil {
		logr.Warn("failed to close database", zap.Error(err))
	}
}
