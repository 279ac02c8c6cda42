package models

import (
	"encoding/json"
	"time"
)

// RawApplication is an application as it arrives from a request payload or a CSV row.
// Nil fields are missing and get filled from features.Defaults.
type RawApplication struct {
	ApplicantAge          *int     `json:"applicant_age,omitempty"`
	Nationality           *string  `json:"nationality,omitempty"`
	VisaType              *string  `json:"visa_type,omitempty"`
	Occupation            *string  `json:"occupation,omitempty"`
	EducationLevel        *string  `json:"education_level,omitempty"`
	DurationRequestedDays *int     `json:"duration_requested_days,omitempty"`
	ApplicationMonth      *int     `json:"application_month,omitempty"`
	NumPreviousVisits     *int     `json:"num_previous_visits,omitempty"`
	FinancialProofUSD     *float64 `json:"financial_proof_usd,omitempty"`
	HasSponsor            *bool    `json:"has_sponsor,omitempty"`
	DocumentsComplete     *bool    `json:"documents_complete,omitempty"`
	ExpressProcessing     *bool    `json:"express_processing,omitempty"`
}

type Application struct {
	ApplicantAge          int     `json:"applicant_age"`
	Nationality           string  `json:"nationality"`
	VisaType              string  `json:"visa_type"`
	Occupation            string  `json:"occupation"`
	EducationLevel        string  `json:"education_level"`
	DurationRequestedDays int     `json:"duration_requested_days"`
	ApplicationMonth      int     `json:"application_month"`
	NumPreviousVisits     int     `json:"num_previous_visits"`
	FinancialProofUSD     float64 `json:"financial_proof_usd"`
	HasSponsor            bool    `json:"has_sponsor"`
	DocumentsComplete     bool    `json:"documents_complete"`
	ExpressProcessing     bool    `json:"express_processing"`
}

// HistoricalRecord is one row of the raw or cleaned dataset.
type HistoricalRecord struct {
	ApplicationID      string         `json:"application_id"`
	Application        RawApplication `json:"application"`
	Gender             string         `json:"gender"`
	ProcessingCenter   string         `json:"processing_center"`
	VisitPurpose       string         `json:"visit_purpose"`
	ApplicationYear    int            `json:"application_year"`
	PreviousVisa       string         `json:"previous_visa"`
	ProcessingTimeDays *float64       `json:"processing_time_days,omitempty"`
	VisaStatus         string         `json:"visa_status"`
}

// LabeledApplication is a normalized historical row with a known target.
type LabeledApplication struct {
	ID                 string
	Application        Application
	ProcessingTimeDays float64
	VisaStatus         string
}

type PredictionFactors struct {
	DocumentsComplete bool `json:"documents_complete"`
	HasSponsor        bool `json:"has_sponsor"`
	ExpressProcessing bool `json:"express_processing"`
	PreviousVisits    int  `json:"previous_visits"`
}

type PredictionResult struct {
	PredictedDays      float64           `json:"predicted_days"`
	MinDays            float64           `json:"min_days"`
	MaxDays            float64           `json:"max_days"`
	RiskScore          int               `json:"risk_score"`
	RiskLevel          string            `json:"risk_level"`
	ApprovalLikelihood string            `json:"approval_likelihood"`
	ApprovalPercentage int               `json:"approval_percentage"`
	CountryAverage     float64           `json:"country_average"`
	VisaTypeAverage    float64           `json:"visa_type_average"`
	IsPeakSeason       bool              `json:"is_peak_season"`
	Factors            PredictionFactors `json:"factors"`
}

type Statistics struct {
	TotalApplications int      `json:"total_applications"`
	AvgProcessingTime float64  `json:"avg_processing_time"`
	MinProcessingTime int      `json:"min_processing_time"`
	MaxProcessingTime int      `json:"max_processing_time"`
	ApprovalRate      float64  `json:"approval_rate"`
	VisaTypes         []string `json:"visa_types"`
	Nationalities     []string `json:"nationalities"`
	Occupations       []string `json:"occupations"`
	EducationLevels   []string `json:"education_levels"`
	ModelName         string   `json:"model_name"`
	ModelAccuracy     float64  `json:"model_accuracy"`
	ModelMAE          float64  `json:"model_mae"`
	ModelVersion      string   `json:"model_version"`
}

type GroupStats struct {
	Count        int      `json:"count"`
	AvgDays      float64  `json:"avg_days"`
	ApprovalRate *float64 `json:"approval_rate,omitempty"`
}

type Options struct {
	Nationalities   []string `json:"nationalities"`
	VisaTypes       []string `json:"visa_types"`
	Occupations     []string `json:"occupations"`
	EducationLevels []string `json:"education_levels"`
}

// Run is one recorded pipeline execution.
type Run struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
	Status     string          `json:"status"`
	Summary    json.RawMessage `json:"summary"`
}
