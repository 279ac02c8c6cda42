package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/visa_estimator/backend/internal/dataset"
	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/features"
	"github.com/visa_estimator/backend/internal/metrics"
	"github.com/visa_estimator/backend/internal/model"
	"github.com/visa_estimator/backend/internal/models"
	"github.com/visa_estimator/backend/internal/scaler"
)

var (
	ErrNotReady         = errors.New("prediction service not ready")
	ErrPredictionFailed = errors.New("prediction failed")
)

const (
	bandFraction  = 0.15
	minBandMargin = 2.0
	minDays       = 1.0
)

// Artifacts are the read-only inputs Init needs. Regressor overrides the bundle's
// model when set.
type Artifacts struct {
	Bundle    *model.Bundle
	Reference *dataset.Table
	Regressor model.Regressor
}

type state struct {
	bundle    *model.Bundle
	enc       *encoding.Set
	defaults  features.Defaults
	scaler    *scaler.Standard
	regressor model.Regressor
	ref       *dataset.Table
	evaluated model.Metrics
	stats     models.Statistics
	visaStats map[string]models.GroupStats
	countries map[string]models.GroupStats
	options   models.Options
}

// PredictionService answers prediction and statistics queries. After Init it holds
// only immutable state and is safe for concurrent use.
type PredictionService struct {
	logger zerolog.Logger
	st     atomic.Pointer[state]
}

func NewPredictionService(logger zerolog.Logger) *PredictionService {
	return &PredictionService{logger: logger}
}

// Init validates the artifacts, precomputes the statistics views and marks the
// service ready. A failed Init leaves the previous state in place.
func (s *PredictionService) Init(a Artifacts) error {
	if a.Bundle == nil {
		return errors.New("init: no model bundle")
	}
	if err := a.Bundle.Verify(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if a.Reference == nil || a.Reference.Len() == 0 {
		return errors.New("init: empty reference dataset")
	}
	reg := a.Regressor
	if reg == nil {
		var err error
		if reg, err = a.Bundle.Regressor(); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	evaluated, _ := a.Bundle.SelectedMetrics()

	st := &state{
		bundle:    a.Bundle,
		enc:       a.Bundle.Encodings,
		defaults:  a.Bundle.Defaults,
		scaler:    a.Bundle.Scaler,
		regressor: reg,
		ref:       a.Reference,
		evaluated: evaluated,
	}
	if err := st.precompute(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	s.st.Store(st)

	metrics.ReferenceRows.Set(float64(a.Reference.Len()))
	metrics.ModelInfo.Reset()
	metrics.ModelInfo.WithLabelValues(a.Bundle.ID, reg.Name(), a.Bundle.Encodings.Version).Set(1)
	s.logger.Info().
		Str("bundle_id", a.Bundle.ID).
		Str("model", reg.Name()).
		Str("encoding_version", a.Bundle.Encodings.Version).
		Int("reference_rows", a.Reference.Len()).
		Msg("prediction service ready")
	return nil
}

func (s *PredictionService) Ready() bool {
	return s.st.Load() != nil
}

func (s *PredictionService) current() (*state, error) {
	st := s.st.Load()
	if st == nil {
		return nil, ErrNotReady
	}
	return st, nil
}

// Predict estimates processing time for one application. Missing optional fields take
// the bundle defaults. Internal failures are logged and surface as ErrPredictionFailed.
func (s *PredictionService) Predict(ctx context.Context, raw models.RawApplication) (models.PredictionResult, error) {
	st, err := s.current()
	if err != nil {
		return models.PredictionResult{}, err
	}
	start := time.Now()
	res, err := st.predict(ctx, raw)
	metrics.PredictionDuration.WithLabelValues(st.regressor.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Predictions.WithLabelValues("error", "").Inc()
		s.logger.Error().Err(err).Msg("prediction failed")
		return models.PredictionResult{}, ErrPredictionFailed
	}
	metrics.Predictions.WithLabelValues("ok", res.RiskLevel).Inc()
	return res, nil
}

func (st *state) predict(ctx context.Context, raw models.RawApplication) (models.PredictionResult, error) {
	app := features.Normalize(raw, st.defaults)
	vec, d, err := features.Build(app, st.enc, st.ref)
	if err != nil {
		return models.PredictionResult{}, err
	}
	scaled, err := st.scaler.Transform(vec.Slice())
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("scale: %w", err)
	}
	p, err := st.regressor.Predict(ctx, scaled)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("model %s: %w", st.regressor.Name(), err)
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return models.PredictionResult{}, fmt.Errorf("model %s returned %v", st.regressor.Name(), p)
	}

	days, lo, hi := Band(p)
	band := RiskBandFor(d.RiskScore)
	return models.PredictionResult{
		PredictedDays:      days,
		MinDays:            lo,
		MaxDays:            hi,
		RiskScore:          d.RiskScore,
		RiskLevel:          band.Level,
		ApprovalLikelihood: band.Likelihood,
		ApprovalPercentage: band.Percentage,
		CountryAverage:     round1(d.CountryAvg),
		VisaTypeAverage:    round1(d.VisaTypeAvg),
		IsPeakSeason:       d.IsPeakSeason == 1,
		Factors: models.PredictionFactors{
			DocumentsComplete: app.DocumentsComplete,
			HasSponsor:        app.HasSponsor,
			ExpressProcessing: app.ExpressProcessing,
			PreviousVisits:    app.NumPreviousVisits,
		},
	}, nil
}

// Band rounds the prediction and derives a symmetric band around the rounded value, so the
// band stays symmetric at display precision unless the lower bound is clamped to one day.
// Predictions below one day are raised to one day so min <= predicted <= max holds.
func Band(p float64) (days, lo, hi float64) {
	days = math.Max(minDays, round1(p))
	margin := round1(math.Max(days*bandFraction, minBandMargin))
	return days, round1(math.Max(minDays, days-margin)), round1(days + margin)
}

// RiskBand is the qualitative reading of a risk score.
type RiskBand struct {
	Level      string
	Likelihood string
	Percentage int
}

func RiskBandFor(score int) RiskBand {
	switch {
	case score <= 1:
		return RiskBand{Level: "Low", Likelihood: "High", Percentage: 85}
	case score <= 3:
		return RiskBand{Level: "Medium", Likelihood: "Medium", Percentage: 70}
	default:
		return RiskBand{Level: "High", Likelihood: "Low", Percentage: 50}
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
