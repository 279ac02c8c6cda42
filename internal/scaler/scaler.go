package scaler

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrShapeMismatch = errors.New("feature width mismatch")
	ErrNotFitted     = errors.New("scaler not fitted")
)

// Standard centers each column on its training mean and divides by the population
// standard deviation. Columns with zero variance get scale 1.
type Standard struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit learns per-column statistics from rows. Every row must have the same width.
func Fit(rows [][]float64) (*Standard, error) {
	if len(rows) == 0 {
		return nil, errors.New("fit: no rows")
	}
	width := len(rows[0])
	col := make([]float64, len(rows))
	s := &Standard{Mean: make([]float64, width), Scale: make([]float64, width)}
	for j := 0; j < width; j++ {
		for i, r := range rows {
			if len(r) != width {
				return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShapeMismatch, i, len(r), width)
			}
			col[i] = r[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

func (s *Standard) Width() int { return len(s.Mean) }

// Transform returns a scaled copy of x.
func (s *Standard) Transform(x []float64) ([]float64, error) {
	if s == nil || len(s.Mean) == 0 {
		return nil, ErrNotFitted
	}
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShapeMismatch, len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

func (s *Standard) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		t, err := s.Transform(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// Validate checks the parameters loaded from an artifact.
func (s *Standard) Validate(width int) error {
	if len(s.Mean) != width || len(s.Scale) != width {
		return fmt.Errorf("%w: scaler has %d/%d columns, want %d", ErrShapeMismatch, len(s.Mean), len(s.Scale), width)
	}
	for i, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("scaler column %d has zero scale", i)
		}
	}
	return nil
}
