package features

import (
	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/models"
)

const (
	TargetProcessingTime = "processing_time_days"

	LowProofThresholdUSD = 10000
)

var peakMonths = map[int]bool{10: true, 11: true, 12: true, 1: true, 2: true, 3: true}

var complexVisaTypes = map[string]bool{"Research": true, "Employment": true}

// Reference answers group-mean queries over the training-time dataset.
type Reference interface {
	// GroupAverage returns the mean of target over rows where groupField == groupValue,
	// or the dataset-wide mean of target when no row matches. Implementations may return
	// NaN for targets they do not track.
	GroupAverage(groupField, groupValue, target string) float64
}

// IsPeakSeason is 1 for October through March.
func IsPeakSeason(month int) int {
	if peakMonths[month] {
		return 1
	}
	return 0
}

// RiskScore sums fixed points per indicator; the result is always in [0,5].
func RiskScore(app models.Application) int {
	score := 0
	if !app.DocumentsComplete {
		score += 2
	}
	if app.NumPreviousVisits == 0 {
		score++
	}
	if !app.HasSponsor {
		score++
	}
	if app.FinancialProofUSD < LowProofThresholdUSD {
		score++
	}
	if complexVisaTypes[app.VisaType] {
		score++
	}
	return score
}

// RiskSignals names the indicators counted by RiskScore.
func RiskSignals(app models.Application) []string {
	signals := make([]string, 0, 5)
	if !app.DocumentsComplete {
		signals = append(signals, "documents_incomplete")
	}
	if app.NumPreviousVisits == 0 {
		signals = append(signals, "first_time_applicant")
	}
	if !app.HasSponsor {
		signals = append(signals, "no_sponsor")
	}
	if app.FinancialProofUSD < LowProofThresholdUSD {
		signals = append(signals, "low_financial_proof")
	}
	if complexVisaTypes[app.VisaType] {
		signals = append(signals, "complex_visa_type")
	}
	return signals
}

// Derived holds the per-record computed features.
type Derived struct {
	IsPeakSeason int     `json:"is_peak_season"`
	RiskScore    int     `json:"risk_score"`
	CountryAvg   float64 `json:"country_avg_processing_time"`
	VisaTypeAvg  float64 `json:"visa_type_avg_time"`
}

func Derive(app models.Application, ref Reference) Derived {
	return Derived{
		IsPeakSeason: IsPeakSeason(app.ApplicationMonth),
		RiskScore:    RiskScore(app),
		CountryAvg:   ref.GroupAverage(string(encoding.FieldNationality), app.Nationality, TargetProcessingTime),
		VisaTypeAvg:  ref.GroupAverage(string(encoding.FieldVisaType), app.VisaType, TargetProcessingTime),
	}
}
