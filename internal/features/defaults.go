package features

import "github.com/visa_estimator/backend/internal/models"

// Defaults fill missing optional fields. The training pipeline stores them in the model
// bundle and the server reads them back from there, so both paths use one copy.
type Defaults struct {
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

func DefaultValues() Defaults {
	return Defaults{
		ApplicantAge:          30,
		Nationality:           "USA",
		VisaType:              "Tourist",
		Occupation:            "Professional",
		EducationLevel:        "Graduate",
		DurationRequestedDays: 30,
		ApplicationMonth:      1,
		NumPreviousVisits:     0,
		FinancialProofUSD:     15000,
		HasSponsor:            false,
		DocumentsComplete:     true,
		ExpressProcessing:     false,
	}
}

func Normalize(raw models.RawApplication, d Defaults) models.Application {
	return models.Application{
		ApplicantAge:          intOr(raw.ApplicantAge, d.ApplicantAge),
		Nationality:           stringOr(raw.Nationality, d.Nationality),
		VisaType:              stringOr(raw.VisaType, d.VisaType),
		Occupation:            stringOr(raw.Occupation, d.Occupation),
		EducationLevel:        stringOr(raw.EducationLevel, d.EducationLevel),
		DurationRequestedDays: intOr(raw.DurationRequestedDays, d.DurationRequestedDays),
		ApplicationMonth:      intOr(raw.ApplicationMonth, d.ApplicationMonth),
		NumPreviousVisits:     intOr(raw.NumPreviousVisits, d.NumPreviousVisits),
		FinancialProofUSD:     floatOr(raw.FinancialProofUSD, d.FinancialProofUSD),
		HasSponsor:            boolOr(raw.HasSponsor, d.HasSponsor),
		DocumentsComplete:     boolOr(raw.DocumentsComplete, d.DocumentsComplete),
		ExpressProcessing:     boolOr(raw.ExpressProcessing, d.ExpressProcessing),
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Blank strings count as missing.
func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}
