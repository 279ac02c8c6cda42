package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visa_estimator/backend/internal/config"
	"github.com/visa_estimator/backend/internal/dataset"
	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/features"
	"github.com/visa_estimator/backend/internal/model"
	"github.com/visa_estimator/backend/internal/models"
)

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	return config.Config{
		ReferenceSource:   config.ReferenceCSV,
		DataDir:           filepath.Join(dir, "data"),
		ReportDir:         filepath.Join(dir, "reports"),
		ArtifactPath:      filepath.Join(dir, "models", "bundle.json"),
		ReferenceDataPath: filepath.Join(dir, "data", "processed", "visa_applications_cleaned.csv"),
		RandomSeed:        7,
		TestSize:          0.2,
		GenerateRows:      400,
		MissingRate:       0.08,
	}
}

func TestSplit(t *testing.T) {
	train, test := Split(100, 42, 0.2)
	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d repeated", i)
		seen[i] = true
	}
	assert.Len(t, seen, 100)

	train2, test2 := Split(100, 42, 0.2)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	train, test = Split(3, 1, 0.01)
	assert.Len(t, test, 1)
	assert.Len(t, train, 2)

	train, test = Split(2, 1, 0.99)
	assert.Len(t, test, 1)
	assert.Len(t, train, 1)
}

func TestTrainBundle(t *testing.T) {
	records := dataset.NewGenerator(3).Generate(300, nil)
	table, skipped := dataset.FromRecords(records, features.DefaultValues())
	require.Zero(t, skipped)
	enc, err := encoding.Build(table.LabelCounts())
	require.NoError(t, err)

	b, err := TrainBundle(context.Background(), table, enc, TrainOptions{
		Seed:     3,
		TestSize: 0.2,
		Defaults: features.DefaultValues(),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, b.Verify())
	assert.Equal(t, 240, b.TrainRows)
	assert.Equal(t, 60, b.TestRows)
	assert.Equal(t, enc.Version, b.Encodings.Version)
	assert.NotEmpty(t, b.ID)

	names := map[string]bool{}
	for _, m := range b.Metrics {
		names[m.Model] = true
	}
	assert.True(t, names[model.TypeMean])
	assert.True(t, names[model.TypeLinear])

	best, ok := model.Best(b.Metrics)
	require.True(t, ok)
	assert.Equal(t, best.Model, b.Selected)

	// Same seed, same split and parameters.
	b2, err := TrainBundle(context.Background(), table, enc, TrainOptions{Seed: 3, TestSize: 0.2, Defaults: features.DefaultValues(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, b.Scaler, b2.Scaler)
	assert.Equal(t, b.Metrics, b2.Metrics)
}

func TestTrainBundleTooSmall(t *testing.T) {
	table := dataset.NewTable([]models.LabeledApplication{labeled("1", "USA", "Tourist", 4, dataset.StatusApproved)})
	_, err := TrainBundle(context.Background(), table, encoding.Default(), TrainOptions{Seed: 1, TestSize: 0.2, Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	p := &Pipeline{Config: cfg, Logger: zerolog.Nop()}
	ctx := context.Background()

	ticks := 0
	sum, err := p.Generate(ctx, func() { ticks++ })
	require.NoError(t, err)
	assert.Equal(t, 400, ticks)
	assert.Equal(t, 400, sum.Counts["rows"])
	assert.FileExists(t, cfg.RawDataPath())

	_, err = p.Preprocess(ctx)
	require.NoError(t, err)
	assert.FileExists(t, cfg.CleanDataPath())
	assert.FileExists(t, cfg.EncodingsPath())

	clean, err := dataset.ReadRecordsFile(cfg.CleanDataPath())
	require.NoError(t, err)
	for col, n := range dataset.MissingCounts(clean) {
		if col == "processing_time_days" {
			continue
		}
		assert.Zero(t, n, col)
	}

	_, err = p.Features(ctx)
	require.NoError(t, err)
	assert.FileExists(t, cfg.FeaturedDataPath())

	bundle, _, err := p.Train(ctx)
	require.NoError(t, err)
	saved, err := encoding.Load(cfg.EncodingsPath())
	require.NoError(t, err)
	assert.Equal(t, saved.Version, bundle.Encodings.Version)

	summary, _, err := p.Report(ctx)
	require.NoError(t, err)
	assert.Greater(t, summary.Rows, 0)
	report, err := os.ReadFile(cfg.ReportPath())
	require.NoError(t, err)
	assert.NotEmpty(t, report)

	_, err = p.SeedDB(ctx)
	assert.ErrorIs(t, err, ErrNoStore)

	a, err := LoadArtifacts(ctx, cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, a.Regressor)
	assert.Equal(t, bundle.ID, a.Bundle.ID)

	svc := NewPredictionService(zerolog.Nop())
	require.NoError(t, svc.Init(a))
	res, err := svc.Predict(ctx, models.RawApplication{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.MinDays, 1.0)
	assert.LessOrEqual(t, res.MinDays, res.PredictedDays)
	assert.GreaterOrEqual(t, res.MaxDays, res.PredictedDays)
}

func TestPipelineMissingInput(t *testing.T) {
	p := &Pipeline{Config: testConfig(t), Logger: zerolog.Nop()}
	_, err := p.Preprocess(context.Background())
	assert.Error(t, err)
	_, _, err = p.Train(context.Background())
	assert.Error(t, err)
}

func TestLoadArtifactsRemote(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, model.SaveBundle(cfg.ArtifactPath, testBundle()))
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.ReferenceDataPath), 0o755))

	days := 5.0
	visa := "Tourist"
	require.NoError(t, dataset.WriteRecordsFile(cfg.ReferenceDataPath, []models.HistoricalRecord{
		{ApplicationID: "USA20230000001", Application: models.RawApplication{VisaType: &visa}, ProcessingTimeDays: &days, VisaStatus: dataset.StatusApproved},
		{ApplicationID: "USA20230000002", VisaStatus: "Pending"},
	}))

	cfg.RemoteModelURL = "http://scoring.local"
	a, err := LoadArtifacts(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, a.Reference.Len())
	require.NotNil(t, a.Regressor)
	assert.Equal(t, model.TypeRemote, a.Regressor.Name())

	cfg.ReferenceSource = config.ReferencePostgres
	_, err = LoadArtifacts(context.Background(), cfg, nil, zerolog.Nop())
	assert.Error(t, err)

	cfg.ArtifactPath = filepath.Join(t.TempDir(), "missing.json")
	_, err = LoadArtifacts(context.Background(), cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}
