package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/visa_estimator/backend/internal/models"
	"github.com/visa_estimator/backend/internal/service"
)

// Predictor is the read side of service.PredictionService.
type Predictor interface {
	Ready() bool
	Predict(ctx context.Context, raw models.RawApplication) (models.PredictionResult, error)
	Statistics() (models.Statistics, error)
	VisaTypeStats() (map[string]models.GroupStats, error)
	CountryStats() (map[string]models.GroupStats, error)
	Options() (models.Options, error)
}

type RunStore interface {
	Ping(ctx context.Context) error
	GetLatestRun(ctx context.Context) (models.Run, error)
}

type Handler struct {
	Predictor Predictor
	Store     RunStore
	Validator *validator.Validate
	Logger    zerolog.Logger
	Timeout   time.Duration
	// Reload swaps in freshly loaded artifacts. Nil disables the admin endpoint.
	Reload func(ctx context.Context) error
}

type PredictRequest struct {
	ApplicantAge          *int     `json:"applicant_age" validate:"required,min=18,max=100"`
	Nationality           *string  `json:"nationality" validate:"required,min=1"`
	VisaType              *string  `json:"visa_type" validate:"required,min=1"`
	Occupation            *string  `json:"occupation" validate:"omitempty,min=1"`
	EducationLevel        *string  `json:"education_level" validate:"omitempty,min=1"`
	DurationRequestedDays *int     `json:"duration_requested_days" validate:"omitempty,min=1,max=365"`
	NumPreviousVisits     *int     `json:"num_previous_visits" validate:"omitempty,min=0"`
	FinancialProofUSD     *float64 `json:"financial_proof_usd" validate:"omitempty,min=0"`
	HasSponsor            *bool    `json:"has_sponsor"`
	DocumentsComplete     *bool    `json:"documents_complete"`
	ExpressProcessing     *bool    `json:"express_processing"`
	ApplicationMonth      *int     `json:"application_month" validate:"omitempty,min=1,max=12"`
}

func (r PredictRequest) raw() models.RawApplication {
	return models.RawApplication{
		ApplicantAge:          r.ApplicantAge,
		Nationality:           r.Nationality,
		VisaType:              r.VisaType,
		Occupation:            r.Occupation,
		EducationLevel:        r.EducationLevel,
		DurationRequestedDays: r.DurationRequestedDays,
		ApplicationMonth:      r.ApplicationMonth,
		NumPreviousVisits:     r.NumPreviousVisits,
		FinancialProofUSD:     r.FinancialProofUSD,
		HasSponsor:            r.HasSponsor,
		DocumentsComplete:     r.DocumentsComplete,
		ExpressProcessing:     r.ExpressProcessing,
	}
}

// @Summary Liveness
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      "visa-estimator-api",
		"model_loaded": h.Predictor.Ready(),
	})
}

// Healthz is the readiness probe: artifacts loaded and, when configured, the database reachable.
func (h *Handler) Healthz(c *gin.Context) {
	if !h.Predictor.Ready() {
		writeError(c, http.StatusServiceUnavailable, "NOT_READY", "Prediction service not ready", nil)
		return
	}
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			h.Logger.Error().Err(err).Msg("database ping failed")
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", nil)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Predict processing time
// @Description Estimate processing days with a confidence band, risk level and approval likelihood
// @Tags predict
// @Accept json
// @Produce json
// @Param application body PredictRequest true "Visa application"
// @Success 200 {object} models.PredictionResult
// @Failure 400 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /api/predict [post]
func (h *Handler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	ctx := c.Request.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	res, err := h.Predictor.Predict(ctx, req.raw())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Dataset and model statistics
// @Tags statistics
// @Produce json
// @Success 200 {object} models.Statistics
// @Router /api/statistics [get]
func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.Predictor.Statistics()
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Per visa type statistics
// @Tags statistics
// @Produce json
// @Success 200 {object} map[string]models.GroupStats
// @Router /api/visa-types [get]
func (h *Handler) VisaTypes(c *gin.Context) {
	stats, err := h.Predictor.VisaTypeStats()
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Per country statistics
// @Tags statistics
// @Produce json
// @Success 200 {object} map[string]models.GroupStats
// @Router /api/countries [get]
func (h *Handler) Countries(c *gin.Context) {
	stats, err := h.Predictor.CountryStats()
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Form options
// @Tags statistics
// @Produce json
// @Success 200 {object} models.Options
// @Router /api/options [get]
func (h *Handler) Options(c *gin.Context) {
	opts, err := h.Predictor.Options()
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// @Summary Latest pipeline run
// @Tags runs
// @Produce json
// @Success 200 {object} models.Run
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	result, err := h.Store.GetLatestRun(c.Request.Context())
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", nil)
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("latest run lookup failed")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load run", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Reload model artifacts
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/admin/reload [post]
func (h *Handler) ReloadArtifacts(c *gin.Context) {
	if err := h.Reload(c.Request.Context()); err != nil {
		h.Logger.Error().Err(err).Msg("artifact reload failed")
		writeError(c, http.StatusInternalServerError, "RELOAD_FAILED", "Artifact reload failed", err.Error())
		return
	}
	stats, err := h.Predictor.Statistics()
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model_version": stats.ModelVersion})
}

func (h *Handler) serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotReady):
		writeError(c, http.StatusServiceUnavailable, "NOT_READY", "Prediction service not ready", nil)
	default:
		writeError(c, http.StatusInternalServerError, "PREDICTION_FAILED", "Prediction failed", nil)
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
