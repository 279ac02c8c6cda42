package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visa_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visa_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visa_predictions_total",
			Help: "Total number of predictions by outcome and risk level",
		},
		[]string{"outcome", "risk_level"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visa_prediction_duration_seconds",
			Help:    "Duration of a single prediction in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"model"},
	)

	ReferenceRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visa_reference_rows",
			Help: "Rows in the loaded reference dataset",
		},
	)

	ModelInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "visa_model_info",
			Help: "Loaded model bundle; value is 1 for the active bundle",
		},
		[]string{"bundle_id", "model", "encoding_version"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "visa_pipeline_stage_duration_seconds",
			Help: "Duration of offline pipeline stages in seconds",
		},
		[]string{"stage"},
	)
)
