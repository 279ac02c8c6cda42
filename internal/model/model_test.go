package model

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/features"
	"github.com/visa_estimator/backend/internal/scaler"
)

func syntheticRows(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(9))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		row := make([]float64, features.NumFeatures)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		x[i] = row
		y[i] = 3 + 2*row[0] - row[5]
	}
	return x, y
}

func validBundle() *Bundle {
	weights := make([]float64, features.NumFeatures)
	weights[0] = 1
	mean := make([]float64, features.NumFeatures)
	scale := make([]float64, features.NumFeatures)
	for i := range scale {
		scale[i] = 1
	}
	return &Bundle{
		ID:            "b1",
		CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SchemaVersion: SchemaVersion,
		FeatureNames:  features.FeatureNames[:],
		Encodings:     encoding.Default(),
		Defaults:      features.DefaultValues(),
		Scaler:        &scaler.Standard{Mean: mean, Scale: scale},
		Model:         Spec{Type: TypeLinear, Linear: &Linear{Intercept: 5, Weights: weights}},
		Metrics:       []Metrics{{Model: TypeLinear, MAE: 1.2, RMSE: 1.5, R2: 0.7689}, {Model: TypeMean, MAE: 3}},
		Selected:      TypeLinear,
	}
}

func TestFitLinearRecoversCoefficients(t *testing.T) {
	x, y := syntheticRows(60)
	lin, r2, err := FitLinear(x, y)
	require.NoError(t, err)

	assert.InDelta(t, 3, lin.Intercept, 1e-6)
	assert.InDelta(t, 2, lin.Weights[0], 1e-6)
	assert.InDelta(t, -1, lin.Weights[5], 1e-6)
	assert.InDelta(t, 0, lin.Weights[3], 1e-6)
	assert.InDelta(t, 1, r2, 1e-6)

	m, err := Evaluate(context.Background(), lin, x, y)
	require.NoError(t, err)
	assert.InDelta(t, 0, m.MAE, 1e-6)
	assert.Equal(t, TypeLinear, m.Model)
}

func TestFitLinearRejectsBadShapes(t *testing.T) {
	_, _, err := FitLinear([][]float64{{1}}, []float64{1, 2})
	assert.ErrorIs(t, err, scaler.ErrShapeMismatch)

	_, err = (&Linear{Weights: []float64{1, 2}}).Predict(context.Background(), []float64{1})
	assert.ErrorIs(t, err, scaler.ErrShapeMismatch)
}

func TestMeanBaselineAndBest(t *testing.T) {
	m, err := FitMean([]float64{2, 4, 6})
	require.NoError(t, err)
	p, err := m.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, p)

	score := Score(TypeMean, []float64{4, 4, 4}, []float64{2, 4, 6})
	assert.InDelta(t, 4.0/3, score.MAE, 1e-9)
	assert.Equal(t, 0.0, score.R2)

	best, ok := Best([]Metrics{{Model: "a", MAE: 2}, {Model: "b", MAE: 1}, {Model: "c", MAE: 1}})
	require.True(t, ok)
	assert.Equal(t, "b", best.Model)
	_, ok = Best(nil)
	assert.False(t, ok)
}

func TestAccuracyFromMetrics(t *testing.T) {
	assert.Equal(t, 76.9, Metrics{R2: 0.7689}.Accuracy())
}

func TestSpecRoundTrip(t *testing.T) {
	spec, err := SpecOf(&Mean{Value: 7})
	require.NoError(t, err)
	r, err := spec.Build(features.NumFeatures)
	require.NoError(t, err)
	assert.Equal(t, TypeMean, r.Name())

	_, err = Spec{Type: TypeLinear, Linear: &Linear{Weights: []float64{1}}}.Build(features.NumFeatures)
	assert.ErrorIs(t, err, scaler.ErrShapeMismatch)
	_, err = Spec{Type: "forest"}.Build(features.NumFeatures)
	assert.Error(t, err)
	_, err = SpecOf(HTTPRegressor{})
	assert.Error(t, err)
}

func TestBundleSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "bundle.json")
	require.NoError(t, SaveBundle(path, validBundle()))

	b, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	m, ok := b.SelectedMetrics()
	require.True(t, ok)
	assert.Equal(t, 76.9, m.Accuracy())

	code, err := b.Encodings.Encode(encoding.FieldVisaType, "Tourist")
	require.NoError(t, err)
	assert.Equal(t, 7, code)

	r, err := b.Regressor()
	require.NoError(t, err)
	p, err := r.Predict(context.Background(), make([]float64, features.NumFeatures))
	require.NoError(t, err)
	assert.Equal(t, 5.0, p)
}

func TestBundleRejectsReorderedFeatures(t *testing.T) {
	b := validBundle()
	names := append([]string(nil), features.FeatureNames[:]...)
	names[13], names[14] = names[14], names[13]
	b.FeatureNames = names

	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, SaveBundle(path, b))
	_, err := LoadBundle(path)
	assert.ErrorIs(t, err, ErrFeatureOrderMismatch)
}

func TestBundleRejectsBadArtifacts(t *testing.T) {
	narrow := validBundle()
	narrow.Scaler = &scaler.Standard{Mean: []float64{0}, Scale: []float64{1}}
	assert.ErrorIs(t, narrow.Verify(), scaler.ErrShapeMismatch)

	unselected := validBundle()
	unselected.Selected = "forest"
	assert.Error(t, unselected.Verify())

	tampered := validBundle()
	tampered.Encodings.Maps[encoding.FieldVisaType].Default = "Business"
	assert.ErrorIs(t, tampered.Verify(), encoding.ErrVersionMismatch)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := LoadBundle(path)
	assert.Error(t, err)
}

func TestHTTPRegressor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Features, features.NumFeatures)
		_ = json.NewEncoder(w).Encode(map[string]any{"prediction": 9.5})
	}))
	defer srv.Close()

	p, err := HTTPRegressor{BaseURL: srv.URL}.Predict(context.Background(), make([]float64, features.NumFeatures))
	require.NoError(t, err)
	assert.Equal(t, 9.5, p)
}

func TestHTTPRegressorErrors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	_, err := HTTPRegressor{BaseURL: failing.URL}.Predict(context.Background(), []float64{1})
	assert.Error(t, err)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer empty.Close()
	_, err = HTTPRegressor{BaseURL: empty.URL}.Predict(context.Background(), []float64{1})
	assert.Error(t, err)
}
