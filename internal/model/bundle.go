package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/features"
	"github.com/visa_estimator/backend/internal/scaler"
)

const SchemaVersion = 1

var ErrFeatureOrderMismatch = errors.New("feature order mismatch")

// Bundle is the single training artifact: everything serving needs to rebuild the
// exact feature pipeline the model was fit with.
type Bundle struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	SchemaVersion int               `json:"schema_version"`
	FeatureNames  []string          `json:"feature_names"`
	Encodings     *encoding.Set     `json:"encodings"`
	Defaults      features.Defaults `json:"defaults"`
	Scaler        *scaler.Standard  `json:"scaler"`
	Model         Spec              `json:"model"`
	Metrics       []Metrics         `json:"metrics"`
	Selected      string            `json:"selected"`
	Seed          int64             `json:"seed"`
	TrainRows     int               `json:"train_rows"`
	TestRows      int               `json:"test_rows"`
}

// Verify fails fast on any artifact that does not match the compiled feature pipeline.
func (b *Bundle) Verify() error {
	if b.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported bundle schema %d", b.SchemaVersion)
	}
	if !features.SameOrder(b.FeatureNames) {
		return fmt.Errorf("%w: bundle has %v", ErrFeatureOrderMismatch, b.FeatureNames)
	}
	if b.Encodings == nil {
		return errors.New("bundle has no encodings")
	}
	if err := b.Encodings.Verify(); err != nil {
		return err
	}
	if b.Scaler == nil {
		return errors.New("bundle has no scaler")
	}
	if err := b.Scaler.Validate(features.NumFeatures); err != nil {
		return err
	}
	if _, err := b.Model.Build(features.NumFeatures); err != nil {
		return err
	}
	if _, ok := b.SelectedMetrics(); !ok {
		return fmt.Errorf("bundle has no metrics for selected model %q", b.Selected)
	}
	return nil
}

// SelectedMetrics returns the stored evaluation of the selected model.
func (b *Bundle) SelectedMetrics() (Metrics, bool) {
	for _, m := range b.Metrics {
		if m.Model == b.Selected {
			return m, true
		}
	}
	return Metrics{}, false
}

func (b *Bundle) Regressor() (Regressor, error) {
	return b.Model.Build(features.NumFeatures)
}

func SaveBundle(path string, b *Bundle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if err := b.Verify(); err != nil {
		return nil, fmt.Errorf("verify bundle: %w", err)
	}
	return &b, nil
}
