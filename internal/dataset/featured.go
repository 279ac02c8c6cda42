package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/visa_estimator/backend/internal/features"
)

func featuredHeader() []string {
	h := []string{"application_id", "nationality", "visa_type", "occupation", "education_level", "application_month"}
	h = append(h, features.FeatureNames[:]...)
	return append(h,
		"season",
		"country_time_deviation",
		"age_group",
		"age_group_encoded",
		"expected_processing_time",
		"processing_efficiency",
		"efficiency_category",
		features.TargetProcessingTime,
		"visa_status",
	)
}

// WriteFeatured writes engineered rows. The 15 model columns appear in feature order.
func WriteFeatured(w io.Writer, rows []features.FeaturedRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(featuredHeader()); err != nil {
		return err
	}
	for _, r := range rows {
		a := r.Application
		rec := []string{r.ID, a.Nationality, a.VisaType, a.Occupation, a.EducationLevel, strconv.Itoa(a.ApplicationMonth)}
		for _, v := range r.Vector {
			rec = append(rec, formatFloat(v))
		}
		rec = append(rec,
			r.Season,
			formatFloat(r.CountryTimeDeviation),
			r.AgeGroup,
			strconv.Itoa(r.AgeGroupCode),
			formatFloat(r.ExpectedTime),
			formatFloat(r.Efficiency),
			r.EfficiencyCategory,
			formatFloat(r.ProcessingTimeDays),
			r.VisaStatus,
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteFeaturedFile(path string, rows []features.FeaturedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteFeatured(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
