package features

import (
	"fmt"

	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/models"
)

const NumFeatures = 15

// FeatureNames is the column order the scaler and model are fit with. The bundle stores
// a copy and loading fails if the two differ.
var FeatureNames = [NumFeatures]string{
	"applicant_age",
	"duration_requested_days",
	"num_previous_visits",
	"financial_proof_usd",
	"has_sponsor",
	"documents_complete",
	"express_processing",
	"is_peak_season",
	"education_encoded",
	"visa_type_encoded",
	"nationality_encoded",
	"occupation_encoded",
	"risk_score",
	"country_avg_processing_time",
	"visa_type_avg_time",
}

type Vector [NumFeatures]float64

func (v Vector) Slice() []float64 {
	return append([]float64(nil), v[:]...)
}

// Codes are the encoded categorical values of one application.
type Codes struct {
	Education   int
	VisaType    int
	Nationality int
	Occupation  int
}

func EncodeCategoricals(app models.Application, enc *encoding.Set) (Codes, error) {
	var (
		c   Codes
		err error
	)
	if c.Education, err = enc.Encode(encoding.FieldEducation, app.EducationLevel); err != nil {
		return Codes{}, err
	}
	if c.VisaType, err = enc.Encode(encoding.FieldVisaType, app.VisaType); err != nil {
		return Codes{}, err
	}
	if c.Nationality, err = enc.Encode(encoding.FieldNationality, app.Nationality); err != nil {
		return Codes{}, err
	}
	if c.Occupation, err = enc.Encode(encoding.FieldOccupation, app.Occupation); err != nil {
		return Codes{}, err
	}
	return c, nil
}

func Assemble(app models.Application, codes Codes, d Derived) Vector {
	return Vector{
		float64(app.ApplicantAge),
		float64(app.DurationRequestedDays),
		float64(app.NumPreviousVisits),
		app.FinancialProofUSD,
		boolToFloat(app.HasSponsor),
		boolToFloat(app.DocumentsComplete),
		boolToFloat(app.ExpressProcessing),
		float64(d.IsPeakSeason),
		float64(codes.Education),
		float64(codes.VisaType),
		float64(codes.Nationality),
		float64(codes.Occupation),
		float64(d.RiskScore),
		d.CountryAvg,
		d.VisaTypeAvg,
	}
}

// Build runs derive, encode and assemble for one normalized application. Training
// and serving both go through here.
func Build(app models.Application, enc *encoding.Set, ref Reference) (Vector, Derived, error) {
	d := Derive(app, ref)
	codes, err := EncodeCategoricals(app, enc)
	if err != nil {
		return Vector{}, Derived{}, fmt.Errorf("encode: %w", err)
	}
	return Assemble(app, codes, d), d, nil
}

// SameOrder reports whether names equals FeatureNames element for element.
func SameOrder(names []string) bool {
	if len(names) != NumFeatures {
		return false
	}
	for i, n := range names {
		if FeatureNames[i] != n {
			return false
		}
	}
	return true
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
