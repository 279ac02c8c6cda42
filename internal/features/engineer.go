package features

import (
	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/models"
)

// Baseline processing days per visa type.
var ExpectedProcessingDays = map[string]float64{
	"Tourist": 5, "Business": 7, "Employment": 15, "Student": 12,
	"Medical": 3, "Conference": 5, "Research": 20, "Entry": 4,
}

// FeaturedRow is one row of the engineered dataset written by the pipeline.
type FeaturedRow struct {
	ID                   string
	Application          models.Application
	ProcessingTimeDays   float64
	VisaStatus           string
	Vector               Vector
	Season               string
	CountryTimeDeviation float64
	AgeGroup             string
	AgeGroupCode         int
	ExpectedTime         float64
	Efficiency           float64
	EfficiencyCategory   string
}

func Engineer(rows []models.LabeledApplication, enc *encoding.Set, ref Reference) ([]FeaturedRow, error) {
	out := make([]FeaturedRow, 0, len(rows))
	for _, r := range rows {
		vec, d, err := Build(r.Application, enc, ref)
		if err != nil {
			return nil, err
		}
		group, code := AgeGroup(r.Application.ApplicantAge)
		expected := ExpectedProcessingDays[r.Application.VisaType]
		eff := Efficiency(r.ProcessingTimeDays, expected)
		season := "Off-Peak"
		if d.IsPeakSeason == 1 {
			season = "Peak"
		}
		out = append(out, FeaturedRow{
			ID:                   r.ID,
			Application:          r.Application,
			ProcessingTimeDays:   r.ProcessingTimeDays,
			VisaStatus:           r.VisaStatus,
			Vector:               vec,
			Season:               season,
			CountryTimeDeviation: r.ProcessingTimeDays - d.CountryAvg,
			AgeGroup:             group,
			AgeGroupCode:         code,
			ExpectedTime:         expected,
			Efficiency:           eff,
			EfficiencyCategory:   EfficiencyCategory(eff),
		})
	}
	return out, nil
}

// AgeGroup buckets ages into right-closed bins (0,25], (25,35], (35,50], (50,100].
// Ages outside (0,100] have no group and code -1.
func AgeGroup(age int) (string, int) {
	switch {
	case age <= 0 || age > 100:
		return "", -1
	case age <= 25:
		return "Young", 0
	case age <= 35:
		return "Adult", 1
	case age <= 50:
		return "Middle-Aged", 2
	default:
		return "Senior", 3
	}
}

// Efficiency is actual over expected time; zero when the visa type has no baseline.
func Efficiency(actual, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	return actual / expected
}

func EfficiencyCategory(eff float64) string {
	switch {
	case eff <= 0:
		return ""
	case eff <= 0.8:
		return "Fast"
	case eff <= 1.2:
		return "Normal"
	default:
		return "Slow"
	}
}
