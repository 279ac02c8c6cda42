package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/visa_estimator/backend/internal/config"
	"github.com/visa_estimator/backend/internal/dataset"
	"github.com/visa_estimator/backend/internal/db"
	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/features"
	"github.com/visa_estimator/backend/internal/metrics"
	"github.com/visa_estimator/backend/internal/model"
	"github.com/visa_estimator/backend/internal/scaler"
)

const (
	RunRunning = "RUNNING"
	RunSuccess = "SUCCESS"
	RunError   = "ERROR"
)

const (
	StageGenerate   = "generate"
	StagePreprocess = "preprocess"
	StageFeatures   = "features"
	StageTrain      = "train"
	StageReport     = "report"
	StageSeedDB     = "seed-db"
)

var ErrNoStore = errors.New("no database configured")

type RunSummary struct {
	Events  []map[string]any `json:"events"`
	Counts  map[string]any   `json:"counts"`
	Samples []map[string]any `json:"samples,omitempty"`
}

func (s *RunSummary) event(kind, message string, fields map[string]any) {
	e := map[string]any{"type": kind, "message": message, "time": time.Now().UTC()}
	for k, v := range fields {
		e[k] = v
	}
	s.Events = append(s.Events, e)
}

// Pipeline runs the offline stages over the files under cfg.DataDir. Store is optional;
// when set every stage is recorded in the runs table.
type Pipeline struct {
	Config config.Config
	Store  *db.Store
	Logger zerolog.Logger
}

func (p *Pipeline) run(ctx context.Context, stage string, fn func(*RunSummary) error) (RunSummary, error) {
	summary := RunSummary{Counts: map[string]any{}}
	start := time.Now()

	var runID string
	if p.Store != nil {
		id, err := p.Store.CreateRun(ctx, stage, RunRunning)
		if err != nil {
			p.Logger.Warn().Err(err).Str("stage", stage).Msg("run record not created")
		} else {
			runID = id
		}
	}

	err := fn(&summary)
	elapsed := time.Since(start)
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	summary.Counts["elapsed_ms"] = elapsed.Milliseconds()

	status := RunSuccess
	if err != nil {
		status = RunError
		summary.event("error", err.Error(), nil)
	}
	if runID != "" {
		b, _ := json.Marshal(summary)
		if ferr := p.Store.FinishRun(ctx, runID, status, b); ferr != nil {
			p.Logger.Warn().Err(ferr).Str("run_id", runID).Msg("run record not finished")
		}
	}

	if err != nil {
		p.Logger.Error().Err(err).Str("stage", stage).Msg("stage failed")
		return summary, fmt.Errorf("%s: %w", stage, err)
	}
	p.Logger.Info().Str("stage", stage).Interface("counts", summary.Counts).Msg("stage complete")
	return summary, nil
}

// Generate writes a synthetic raw dataset with injected gaps.
func (p *Pipeline) Generate(ctx context.Context, progress func()) (RunSummary, error) {
	return p.run(ctx, StageGenerate, func(s *RunSummary) error {
		gen := dataset.NewGenerator(p.Config.RandomSeed)
		records := gen.Generate(p.Config.GenerateRows, progress)
		gen.InjectMissing(records, p.Config.MissingRate)
		if err := writeFile(p.Config.RawDataPath(), func(path string) error {
			return dataset.WriteRecordsFile(path, records)
		}); err != nil {
			return err
		}
		missing := dataset.MissingCounts(records)
		s.event("dataset_generated", "Synthetic dataset written", map[string]any{
			"path": p.Config.RawDataPath(),
			"seed": p.Config.RandomSeed,
		})
		s.Counts["rows"] = len(records)
		s.Counts["missing"] = missing
		return nil
	})
}

// Preprocess imputes the raw dataset and builds the encoding set from the cleaned rows.
func (p *Pipeline) Preprocess(ctx context.Context) (RunSummary, error) {
	return p.run(ctx, StagePreprocess, func(s *RunSummary) error {
		raw, err := dataset.ReadRecordsFile(p.Config.RawDataPath())
		if err != nil {
			return err
		}
		clean, report := dataset.Preprocess(raw)
		if err := writeFile(p.Config.CleanDataPath(), func(path string) error {
			return dataset.WriteRecordsFile(path, clean)
		}); err != nil {
			return err
		}

		table, _ := dataset.FromRecords(clean, features.DefaultValues())
		enc, err := encoding.Build(table.LabelCounts())
		if err != nil {
			return err
		}
		if err := writeFile(p.Config.EncodingsPath(), func(path string) error {
			return encoding.Save(path, enc)
		}); err != nil {
			return err
		}

		s.event("imputation", "Missing values filled", map[string]any{
			"missing_before": report.MissingBefore,
		})
		for _, imp := range report.Imputations {
			if len(s.Samples) < 10 {
				s.Samples = append(s.Samples, map[string]any{
					"column": imp.Column,
					"value":  imp.Value,
					"filled": imp.Filled,
				})
			}
		}
		s.Counts["rows"] = report.Rows
		s.Counts["encoding_version"] = enc.Version
		return nil
	})
}

// Features writes the engineered dataset using the saved encoding set.
func (p *Pipeline) Features(ctx context.Context) (RunSummary, error) {
	return p.run(ctx, StageFeatures, func(s *RunSummary) error {
		table, enc, err := p.loadClean(s)
		if err != nil {
			return err
		}
		rows, err := features.Engineer(table.Rows(), enc, table)
		if err != nil {
			return err
		}
		if err := writeFile(p.Config.FeaturedDataPath(), func(path string) error {
			return dataset.WriteFeaturedFile(path, rows)
		}); err != nil {
			return err
		}
		s.Counts["rows"] = len(rows)
		s.Counts["features"] = features.NumFeatures
		return nil
	})
}

// Train fits the candidates, keeps the one with the lowest test MAE and saves the bundle
// to cfg.ArtifactPath.
func (p *Pipeline) Train(ctx context.Context) (*model.Bundle, RunSummary, error) {
	var bundle *model.Bundle
	summary, err := p.run(ctx, StageTrain, func(s *RunSummary) error {
		table, enc, err := p.loadClean(s)
		if err != nil {
			return err
		}
		b, err := TrainBundle(ctx, table, enc, TrainOptions{
			Seed:     p.Config.RandomSeed,
			TestSize: p.Config.TestSize,
			Defaults: features.DefaultValues(),
			Logger:   p.Logger,
		})
		if err != nil {
			return err
		}
		if err := model.SaveBundle(p.Config.ArtifactPath, b); err != nil {
			return err
		}
		for _, m := range b.Metrics {
			s.event("evaluation", "Model evaluated", map[string]any{
				"model": m.Model,
				"mae":   m.MAE,
				"rmse":  m.RMSE,
				"r2":    m.R2,
			})
		}
		s.Counts["bundle_id"] = b.ID
		s.Counts["selected"] = b.Selected
		s.Counts["train_rows"] = b.TrainRows
		s.Counts["test_rows"] = b.TestRows
		bundle = b
		return nil
	})
	return bundle, summary, err
}

// Report writes the data summary for the cleaned dataset.
func (p *Pipeline) Report(ctx context.Context) (dataset.Summary, RunSummary, error) {
	var out dataset.Summary
	summary, err := p.run(ctx, StageReport, func(s *RunSummary) error {
		records, err := dataset.ReadRecordsFile(p.Config.CleanDataPath())
		if err != nil {
			return err
		}
		table, skipped := dataset.FromRecords(records, features.DefaultValues())
		if table.Len() == 0 {
			return errors.New("no rows with a processing time")
		}
		out = dataset.Summarize(table)
		if err := writeFile(p.Config.ReportPath(), func(path string) error {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := out.WriteText(f); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		}); err != nil {
			return err
		}
		s.Counts["rows"] = table.Len()
		s.Counts["skipped"] = skipped
		s.Counts["path"] = p.Config.ReportPath()
		return nil
	})
	return out, summary, err
}

// SeedDB replaces the applications table with the cleaned dataset.
func (p *Pipeline) SeedDB(ctx context.Context) (RunSummary, error) {
	if p.Store == nil {
		return RunSummary{}, ErrNoStore
	}
	return p.run(ctx, StageSeedDB, func(s *RunSummary) error {
		records, err := dataset.ReadRecordsFile(p.Config.CleanDataPath())
		if err != nil {
			return err
		}
		if err := p.Store.EnsureSchema(ctx); err != nil {
			return err
		}
		n, err := p.Store.ReplaceApplications(ctx, records)
		if err != nil {
			return err
		}
		s.event("db_save", "Reference dataset stored", map[string]any{"rows": n})
		s.Counts["rows"] = n
		return nil
	})
}

// loadClean reads the cleaned dataset and the encoding set written by Preprocess. If the
// encoding file is missing it is rebuilt from the table.
func (p *Pipeline) loadClean(s *RunSummary) (*dataset.Table, *encoding.Set, error) {
	records, err := dataset.ReadRecordsFile(p.Config.CleanDataPath())
	if err != nil {
		return nil, nil, err
	}
	table, skipped := dataset.FromRecords(records, features.DefaultValues())
	if skipped > 0 {
		s.Counts["skipped"] = skipped
	}
	if table.Len() == 0 {
		return nil, nil, errors.New("no rows with a processing time")
	}

	enc, err := encoding.Load(p.Config.EncodingsPath())
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		p.Logger.Warn().Str("path", p.Config.EncodingsPath()).Msg("encodings not found, rebuilding")
		if enc, err = encoding.Build(table.LabelCounts()); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, err
	}
	s.Counts["encoding_version"] = enc.Version
	return table, enc, nil
}

type TrainOptions struct {
	Seed     int64
	TestSize float64
	Defaults features.Defaults
	Logger   zerolog.Logger
}

// TrainBundle engineers the table, splits it, fits the scaler on the training rows only
// and evaluates every candidate on the held-out rows.
func TrainBundle(ctx context.Context, table *dataset.Table, enc *encoding.Set, opts TrainOptions) (*model.Bundle, error) {
	rows, err := features.Engineer(table.Rows(), enc, table)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("need at least 2 rows to train, have %d", len(rows))
	}

	trainIdx, testIdx := Split(len(rows), opts.Seed, opts.TestSize)
	xTrain, yTrain := columns(rows, trainIdx)
	xTest, yTest := columns(rows, testIdx)

	sc, err := scaler.Fit(xTrain)
	if err != nil {
		return nil, err
	}
	if xTrain, err = sc.TransformAll(xTrain); err != nil {
		return nil, err
	}
	if xTest, err = sc.TransformAll(xTest); err != nil {
		return nil, err
	}

	var candidates []model.Regressor
	lin, r2, err := model.FitLinear(xTrain, yTrain)
	if err != nil {
		opts.Logger.Warn().Err(err).Msg("linear model skipped")
	} else {
		opts.Logger.Debug().Float64("train_r2", r2).Msg("linear model fitted")
		candidates = append(candidates, lin)
	}
	mean, err := model.FitMean(yTrain)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, mean)

	evaluated := make([]model.Metrics, 0, len(candidates))
	byName := map[string]model.Regressor{}
	for _, c := range candidates {
		m, err := model.Evaluate(ctx, c, xTest, yTest)
		if err != nil {
			return nil, err
		}
		evaluated = append(evaluated, m)
		byName[c.Name()] = c
	}
	best, _ := model.Best(evaluated)
	spec, err := model.SpecOf(byName[best.Model])
	if err != nil {
		return nil, err
	}

	b := &model.Bundle{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		SchemaVersion: model.SchemaVersion,
		FeatureNames:  append([]string(nil), features.FeatureNames[:]...),
		Encodings:     enc,
		Defaults:      opts.Defaults,
		Scaler:        sc,
		Model:         spec,
		Metrics:       evaluated,
		Selected:      best.Model,
		Seed:          opts.Seed,
		TrainRows:     len(trainIdx),
		TestRows:      len(testIdx),
	}
	if err := b.Verify(); err != nil {
		return nil, err
	}
	opts.Logger.Info().
		Str("selected", best.Model).
		Float64("mae", best.MAE).
		Float64("r2", best.R2).
		Msg("model selected")
	return b, nil
}

// Split shuffles 0..n-1 with a seeded source and holds out ceil(n*testSize) indices,
// keeping at least one row on each side.
func Split(n int, seed int64, testSize float64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testSize))
	nTest = max(1, min(nTest, n-1))
	return perm[nTest:], perm[:nTest]
}

func columns(rows []features.FeaturedRow, idx []int) ([][]float64, []float64) {
	x := make([][]float64, len(idx))
	y := make([]float64, len(idx))
	for i, j := range idx {
		x[i] = rows[j].Vector.Slice()
		y[i] = rows[j].ProcessingTimeDays
	}
	return x, y
}

func writeFile(path string, write func(string) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return write(path)
}
