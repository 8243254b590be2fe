package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/requestid"
)

var opsPaths = []string{"/health", "/ready", "/metrics"}

type handlers struct {
	auth       *handler.AuthHandler
	profile    *handler.ProfileHandler
	course     *handler.CourseHandler
	enrollment *handler.EnrollmentHandler
	category   *handler.CategoryHandler
	ops        *handler.MetricsHandler
	sessions   middleware.SessionParser
	metrics    *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, h handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, opsPaths...))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(h.metrics, opsPaths...))
	}
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Session(h.sessions, cfg.Session.CookieName))

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.ops.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.auth.Login)
	auth.GET("/logout", h.auth.Logout)
	auth.POST("/logout", h.auth.Logout)
	auth.GET("/me", h.auth.Me)
	auth.GET("/user", h.auth.User)
	auth.GET("/profile", h.profile.Get)
	auth.POST("/profile", h.profile.Save)
	api.POST("/register", h.auth.Register)

	courses := api.Group("/courses")
	courses.GET("", h.course.List)
	courses.GET("/me", h.course.Mine)
	courses.GET("/search", h.course.Search)
	courses.GET("/recent", h.course.Recent)
	courses.GET("/:courseId", h.course.Detail)
	courses.GET("/:courseId/photo", h.course.Photo)
	courses.GET("/:courseId/sections", h.course.Sections)
	courses.GET("/:courseId/grades", h.course.Grades)
	courses.GET("/:courseId/enrollment-status", h.enrollment.Status)
	courses.POST("/:courseId/enroll", h.enrollment.Enroll)

	categories := api.Group("/categories")
	categories.GET("", h.category.List)
	categories.GET("/:categoryId", h.category.Detail)

	return r
}
