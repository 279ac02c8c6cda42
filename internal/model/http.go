package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPRegressor delegates to a remote scoring service. Features are scaled locally
// before they are sent.
type HTTPRegressor struct {
	BaseURL string
	Client  *http.Client
}

type predictRequest struct {
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Prediction   *float64 `json:"prediction"`
	ModelVersion string   `json:"model_version"`
}

func (h HTTPRegressor) Name() string { return TypeRemote }

func (h HTTPRegressor) Predict(ctx context.Context, x []float64) (float64, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	b, err := json.Marshal(predictRequest{Features: x})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/predict", bytes.NewBuffer(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("model service error: status %d", resp.StatusCode)
	}

	var r predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return 0, err
	}
	if r.Prediction == nil {
		return 0, fmt.Errorf("model service returned no prediction")
	}
	return *r.Prediction, nil
}
