package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/visa_estimator/backend/internal/config"
	"github.com/visa_estimator/backend/internal/dataset"
	"github.com/visa_estimator/backend/internal/db"
	"github.com/visa_estimator/backend/internal/model"
	"github.com/visa_estimator/backend/internal/models"
)

// LoadArtifacts reads the model bundle and the reference dataset named by cfg. The
// store is only used when the reference source is postgres.
func LoadArtifacts(ctx context.Context, cfg config.Config, store *db.Store, logger zerolog.Logger) (Artifacts, error) {
	bundle, err := model.LoadBundle(cfg.ArtifactPath)
	if err != nil {
		return Artifacts{}, fmt.Errorf("load bundle %s: %w", cfg.ArtifactPath, err)
	}

	var records []models.HistoricalRecord
	switch cfg.ReferenceSource {
	case config.ReferencePostgres:
		if store == nil {
			return Artifacts{}, errors.New("postgres reference source without a store")
		}
		records, err = store.ListApplications(ctx)
	default:
		records, err = dataset.ReadRecordsFile(cfg.ReferenceDataPath)
	}
	if err != nil {
		return Artifacts{}, fmt.Errorf("load reference (%s): %w", cfg.ReferenceSource, err)
	}

	table, skipped := dataset.FromRecords(records, bundle.Defaults)
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("reference rows without processing time dropped")
	}
	logger.Info().
		Str("source", cfg.ReferenceSource).
		Int("rows", table.Len()).
		Str("bundle_id", bundle.ID).
		Msg("artifacts loaded")

	a := Artifacts{Bundle: bundle, Reference: table}
	if cfg.RemoteModelURL != "" {
		a.Regressor = model.HTTPRegressor{
			BaseURL: cfg.RemoteModelURL,
			Client:  &http.Client{Timeout: cfg.RequestTimeout},
		}
		logger.Info().Str("url", cfg.RemoteModelURL).Msg("using remote model")
	}
	return a, nil
}
