package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sajari/regression"

	"github.com/visa_estimator/backend/internal/features"
	"github.com/visa_estimator/backend/internal/scaler"
)

const (
	TypeLinear = "linear_regression"
	TypeMean   = "mean_baseline"
	TypeRemote = "remote"
)

// Regressor maps one scaled feature vector to predicted processing days.
type Regressor interface {
	Predict(ctx context.Context, x []float64) (float64, error)
	Name() string
}

// Linear is an ordinary least squares model over the scaled features.
type Linear struct {
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
}

func (l *Linear) Name() string { return TypeLinear }

func (l *Linear) Predict(_ context.Context, x []float64) (float64, error) {
	if len(x) != len(l.Weights) {
		return 0, fmt.Errorf("%w: got %d, want %d", scaler.ErrShapeMismatch, len(x), len(l.Weights))
	}
	y := l.Intercept
	for i, w := range l.Weights {
		y += w * x[i]
	}
	return y, nil
}

// FitLinear trains a linear model on scaled rows and returns it with the training R2.
func FitLinear(x [][]float64, y []float64) (*Linear, float64, error) {
	if len(x) != len(y) {
		return nil, 0, fmt.Errorf("%w: %d rows, %d targets", scaler.ErrShapeMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return nil, 0, errors.New("fit linear: no rows")
	}
	var r regression.Regression
	r.SetObserved(features.TargetProcessingTime)
	for i := range x[0] {
		name := fmt.Sprintf("x%d", i)
		if i < features.NumFeatures {
			name = features.FeatureNames[i]
		}
		r.SetVar(i, name)
	}
	for i, row := range x {
		r.Train(regression.DataPoint(y[i], row))
	}
	if err := r.Run(); err != nil {
		return nil, 0, fmt.Errorf("fit linear: %w", err)
	}
	coeffs := r.GetCoeffs()
	if len(coeffs) != len(x[0])+1 {
		return nil, 0, fmt.Errorf("fit linear: got %d coefficients for %d features", len(coeffs), len(x[0]))
	}
	for i, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, 0, fmt.Errorf("fit linear: coefficient %d is %v", i, c)
		}
	}
	return &Linear{Intercept: coeffs[0], Weights: append([]float64(nil), coeffs[1:]...)}, r.R2, nil
}

// Mean always predicts the training-set mean.
type Mean struct {
	Value float64 `json:"value"`
}

func (m *Mean) Name() string { return TypeMean }

func (m *Mean) Predict(context.Context, []float64) (float64, error) {
	return m.Value, nil
}

func FitMean(y []float64) (*Mean, error) {
	if len(y) == 0 {
		return nil, errors.New("fit mean: no targets")
	}
	var sum float64
	for _, v := range y {
		sum += v
	}
	return &Mean{Value: sum / float64(len(y))}, nil
}

// Spec is the serialized form of a trained regressor.
type Spec struct {
	Type   string  `json:"type"`
	Linear *Linear `json:"linear,omitempty"`
	Mean   *Mean   `json:"mean,omitempty"`
}

func SpecOf(r Regressor) (Spec, error) {
	switch v := r.(type) {
	case *Linear:
		return Spec{Type: TypeLinear, Linear: v}, nil
	case *Mean:
		return Spec{Type: TypeMean, Mean: v}, nil
	default:
		return Spec{}, fmt.Errorf("model %s cannot be serialized", r.Name())
	}
}

// Build restores the regressor and checks it accepts width inputs.
func (s Spec) Build(width int) (Regressor, error) {
	switch s.Type {
	case TypeLinear:
		if s.Linear == nil {
			return nil, errors.New("linear model has no parameters")
		}
		if len(s.Linear.Weights) != width {
			return nil, fmt.Errorf("%w: model has %d weights, want %d", scaler.ErrShapeMismatch, len(s.Linear.Weights), width)
		}
		return s.Linear, nil
	case TypeMean:
		if s.Mean == nil {
			return nil, errors.New("mean model has no parameters")
		}
		return s.Mean, nil
	default:
		return nil, fmt.Errorf("unknown model type %q", s.Type)
	}
}
