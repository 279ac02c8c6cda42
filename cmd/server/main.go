package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/visa_estimator/backend/internal/config"
	"github.com/visa_estimator/backend/internal/db"
	httpapi "github.com/visa_estimator/backend/internal/http"
	"github.com/visa_estimator/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "visa-estimator").Logger()

	ctx := context.Background()
	var store *db.Store
	if cfg.DatabaseURL != "" {
		store, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer store.Close()
	}

	predictor := service.NewPredictionService(logger)
	reload := func(ctx context.Context) error {
		artifacts, err := service.LoadArtifacts(ctx, cfg, store, logger)
		if err != nil {
			return err
		}
		return predictor.Init(artifacts)
	}
	if err := reload(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load artifacts")
	}

	deps := httpapi.Deps{Predictor: predictor, Logger: logger}
	if store != nil {
		deps.Store = store
	}
	if cfg.AdminKey != "" {
		deps.Reload = reload
	}
	router := httpapi.Router(cfg, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
