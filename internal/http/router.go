package httpapi

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/visa_estimator/backend/internal/config"
	"github.com/visa_estimator/backend/internal/http/handlers"
	"github.com/visa_estimator/backend/internal/http/middleware"

	_ "github.com/visa_estimator/backend/docs"
)

// Deps are the collaborators the router wires into handlers. Store and Reload are optional.
type Deps struct {
	Predictor handlers.Predictor
	Store     handlers.RunStore
	Reload    func(ctx context.Context) error
	Logger    zerolog.Logger
}

func Router(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Predictor: deps.Predictor,
		Store:     deps.Store,
		Validator: validator.New(),
		Logger:    deps.Logger,
		Timeout:   cfg.RequestTimeout,
		Reload:    deps.Reload,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/predict", h.Predict)
		api.GET("/statistics", h.Statistics)
		api.GET("/visa-types", h.VisaTypes)
		api.GET("/countries", h.Countries)
		api.GET("/options", h.Options)
		if deps.Store != nil {
			api.GET("/runs/latest", h.RunsLatest)
		}
	}

	if deps.Reload != nil {
		admin := api.Group("/admin")
		admin.Use(middleware.AdminKey(cfg.AdminKey))
		admin.POST("/reload", h.ReloadArtifacts)
	}

	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
