package model

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

type Metrics struct {
	Model string  `json:"model"`
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	R2    float64 `json:"r2"`
}

// Accuracy is R2 as a percentage with one decimal.
func (m Metrics) Accuracy() float64 {
	return math.Round(m.R2*1000) / 10
}

// Evaluate scores r on already-scaled rows.
func Evaluate(ctx context.Context, r Regressor, x [][]float64, y []float64) (Metrics, error) {
	if len(x) != len(y) || len(x) == 0 {
		return Metrics{}, fmt.Errorf("evaluate: %d rows, %d targets", len(x), len(y))
	}
	pred := make([]float64, len(x))
	for i, row := range x {
		p, err := r.Predict(ctx, row)
		if err != nil {
			return Metrics{}, fmt.Errorf("evaluate row %d: %w", i, err)
		}
		pred[i] = p
	}
	return Score(r.Name(), pred, y), nil
}

func Score(name string, pred, y []float64) Metrics {
	var abs, sq float64
	for i := range y {
		d := pred[i] - y[i]
		abs += math.Abs(d)
		sq += d * d
	}
	n := float64(len(y))
	r2 := stat.RSquaredFrom(pred, y, nil)
	// Undefined for a constant target.
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}
	return Metrics{
		Model: name,
		MAE:   abs / n,
		RMSE:  math.Sqrt(sq / n),
		R2:    r2,
	}
}

// Best returns the metrics with the lowest MAE. Ties keep the earlier entry.
func Best(ms []Metrics) (Metrics, bool) {
	if len(ms) == 0 {
		return Metrics{}, false
	}
	best := ms[0]
	for _, m := range ms[1:] {
		if m.MAE < best.MAE {
			best = m
		}
	}
	return best, true
}
