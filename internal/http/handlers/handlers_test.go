package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visa_estimator/backend/internal/models"
	"github.com/visa_estimator/backend/internal/service"
)

type fakePredictor struct {
	ready   bool
	err     error
	last    models.RawApplication
	result  models.PredictionResult
	stats   models.Statistics
	options models.Options
}

func (f *fakePredictor) Ready() bool { return f.ready }

func (f *fakePredictor) Predict(_ context.Context, raw models.RawApplication) (models.PredictionResult, error) {
	f.last = raw
	return f.result, f.err
}

func (f *fakePredictor) Statistics() (models.Statistics, error) { return f.stats, f.err }

func (f *fakePredictor) VisaTypeStats() (map[string]models.GroupStats, error) {
	rate := 80.0
	return map[string]models.GroupStats{"Tourist": {Count: 3, AvgDays: 5.5, ApprovalRate: &rate}}, f.err
}

func (f *fakePredictor) CountryStats() (map[string]models.GroupStats, error) {
	return map[string]models.GroupStats{"USA": {Count: 2, AvgDays: 6}}, f.err
}

func (f *fakePredictor) Options() (models.Options, error) { return f.options, f.err }

type fakeStore struct {
	pingErr error
	run     models.Run
	runErr  error
}

func (f fakeStore) Ping(context.Context) error { return f.pingErr }

func (f fakeStore) GetLatestRun(context.Context) (models.Run, error) { return f.run, f.runErr }

func newEngine(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if h.Validator == nil {
		h.Validator = validator.New()
	}
	h.Logger = zerolog.Nop()
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/api/health", h.Health)
	r.POST("/api/predict", h.Predict)
	r.GET("/api/statistics", h.Statistics)
	r.GET("/api/visa-types", h.VisaTypes)
	r.GET("/api/countries", h.Countries)
	r.GET("/api/options", h.Options)
	r.GET("/api/runs/latest", h.RunsLatest)
	r.POST("/api/admin/reload", h.ReloadArtifacts)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestPredictSuccess(t *testing.T) {
	p := &fakePredictor{ready: true, result: models.PredictionResult{PredictedDays: 9.5, MinDays: 7.5, MaxDays: 11.5, RiskLevel: "Low"}}
	r := newEngine(&Handler{Predictor: p})

	w := do(r, http.MethodPost, "/api/predict", `{"applicant_age":34,"nationality":"UK","visa_type":"Business","has_sponsor":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.PredictionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 9.5, got.PredictedDays)
	assert.Equal(t, "Low", got.RiskLevel)

	require.NotNil(t, p.last.ApplicantAge)
	assert.Equal(t, 34, *p.last.ApplicantAge)
	assert.Equal(t, "UK", *p.last.Nationality)
	assert.True(t, *p.last.HasSponsor)
	assert.Nil(t, p.last.Occupation)
	assert.Nil(t, p.last.ApplicationMonth)
}

func TestPredictRejectsBadInput(t *testing.T) {
	r := newEngine(&Handler{Predictor: &fakePredictor{ready: true}})

	cases := []struct {
		name string
		body string
		code string
	}{
		{"malformed", `{"applicant_age":`, "INVALID_REQUEST"},
		{"wrong type", `{"applicant_age":"old","nationality":"UK","visa_type":"Tourist"}`, "INVALID_REQUEST"},
		{"missing nationality", `{"applicant_age":30,"visa_type":"Tourist"}`, "VALIDATION_ERROR"},
		{"too young", `{"applicant_age":12,"nationality":"UK","visa_type":"Tourist"}`, "VALIDATION_ERROR"},
		{"month out of range", `{"applicant_age":30,"nationality":"UK","visa_type":"Tourist","application_month":13}`, "VALIDATION_ERROR"},
		{"duration out of range", `{"applicant_age":30,"nationality":"UK","visa_type":"Tourist","duration_requested_days":400}`, "VALIDATION_ERROR"},
		{"negative proof", `{"applicant_age":30,"nationality":"UK","visa_type":"Tourist","financial_proof_usd":-1}`, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/predict", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestPredictServiceErrors(t *testing.T) {
	body := `{"applicant_age":30,"nationality":"UK","visa_type":"Tourist"}`

	r := newEngine(&Handler{Predictor: &fakePredictor{err: service.ErrNotReady}})
	w := do(r, http.MethodPost, "/api/predict", body)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NOT_READY", errorCode(t, w))

	r = newEngine(&Handler{Predictor: &fakePredictor{ready: true, err: service.ErrPredictionFailed}})
	w = do(r, http.MethodPost, "/api/predict", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "PREDICTION_FAILED", errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "prediction failed:")
}

func TestStatisticsEndpoints(t *testing.T) {
	p := &fakePredictor{
		ready:   true,
		stats:   models.Statistics{TotalApplications: 10, ModelName: "linear_regression", ModelAccuracy: 76.9},
		options: models.Options{VisaTypes: []string{"Business", "Tourist"}},
	}
	r := newEngine(&Handler{Predictor: p})

	w := do(r, http.MethodGet, "/api/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"model_accuracy":76.9`)

	w = do(r, http.MethodGet, "/api/visa-types", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"Tourist":{"count":3,"avg_days":5.5,"approval_rate":80}}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/countries", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"USA":{"count":2,"avg_days":6}}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/options", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"visa_types":["Business","Tourist"]`)

	r = newEngine(&Handler{Predictor: &fakePredictor{err: service.ErrNotReady}})
	for _, path := range []string{"/api/statistics", "/api/visa-types", "/api/countries", "/api/options"} {
		w = do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestHealth(t *testing.T) {
	r := newEngine(&Handler{Predictor: &fakePredictor{}})
	w := do(r, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"model_loaded":false`)

	w = do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NOT_READY", errorCode(t, w))

	r = newEngine(&Handler{Predictor: &fakePredictor{ready: true}})
	w = do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	r = newEngine(&Handler{Predictor: &fakePredictor{ready: true}, Store: fakeStore{pingErr: errors.New("dial tcp 10.0.0.5:5432: connection refused")}})
	w = do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DB_UNAVAILABLE", errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Contains(t, w.Body.String(), `"details":null`)
}

func TestRunsLatest(t *testing.T) {
	r := newEngine(&Handler{Predictor: &fakePredictor{ready: true}, Store: fakeStore{run: models.Run{ID: "r1", Kind: "train", Status: "SUCCESS", Summary: json.RawMessage(`{"counts":{}}`)}}})
	w := do(r, http.MethodGet, "/api/runs/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"r1"`)

	r = newEngine(&Handler{Predictor: &fakePredictor{ready: true}, Store: fakeStore{runErr: pgx.ErrNoRows}})
	w = do(r, http.MethodGet, "/api/runs/latest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReloadArtifacts(t *testing.T) {
	calls := 0
	p := &fakePredictor{ready: true, stats: models.Statistics{ModelVersion: "b-2"}}
	r := newEngine(&Handler{Predictor: p, Reload: func(context.Context) error {
		calls++
		return nil
	}})
	w := do(r, http.MethodPost, "/api/admin/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"model_version":"b-2"`)
	assert.Equal(t, 1, calls)

	r = newEngine(&Handler{Predictor: p, Reload: func(context.Context) error { return errors.New("bad bundle") }})
	w = do(r, http.MethodPost, "/api/admin/reload", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "RELOAD_FAILED", errorCode(t, w))
}
