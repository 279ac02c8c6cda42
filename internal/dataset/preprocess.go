package dataset

import (
	"math"
	"sort"

	"github.com/visa_estimator/backend/internal/models"
)

// Imputation records one filled column.
type Imputation struct {
	Column string `json:"column"`
	Filled int    `json:"filled"`
	Value  any    `json:"value"`
}

type PreprocessReport struct {
	Rows          int            `json:"rows"`
	MissingBefore map[string]int `json:"missing_before"`
	Imputations   []Imputation   `json:"imputations"`
}

// Preprocess fills numeric gaps with the column median and categorical gaps with the
// column mode, then truncates processing time to whole days. The input is not modified.
func Preprocess(records []models.HistoricalRecord) ([]models.HistoricalRecord, PreprocessReport) {
	out := make([]models.HistoricalRecord, len(records))
	for i, r := range records {
		out[i] = cloneRecord(r)
	}
	rep := PreprocessReport{Rows: len(out), MissingBefore: MissingCounts(out)}

	if v, n := fillFloat(out, func(r *models.HistoricalRecord) **float64 { return &r.Application.FinancialProofUSD }); n > 0 {
		rep.Imputations = append(rep.Imputations, Imputation{Column: "financial_proof_usd", Filled: n, Value: v})
	}
	if v, n := fillFloat(out, func(r *models.HistoricalRecord) **float64 { return &r.ProcessingTimeDays }); n > 0 {
		rep.Imputations = append(rep.Imputations, Imputation{Column: "processing_time_days", Filled: n, Value: v})
	}
	if v, n := fillInt(out, func(r *models.HistoricalRecord) **int { return &r.Application.ApplicantAge }); n > 0 {
		rep.Imputations = append(rep.Imputations, Imputation{Column: "applicant_age", Filled: n, Value: v})
	}
	if v, n := fillInt(out, func(r *models.HistoricalRecord) **int { return &r.Application.NumPreviousVisits }); n > 0 {
		rep.Imputations = append(rep.Imputations, Imputation{Column: "num_previous_visits", Filled: n, Value: v})
	}
	if v, n := fillBool(out, func(r *models.HistoricalRecord) **bool { return &r.Application.DocumentsComplete }); n > 0 {
		rep.Imputations = append(rep.Imputations, Imputation{Column: "documents_complete", Filled: n, Value: v})
	}
	if v, n := fillString(out, func(r *models.HistoricalRecord) **string { return &r.Application.EducationLevel }); n > 0 {
		rep.Imputations = append(rep.Imputations, Imputation{Column: "education_level", Filled: n, Value: v})
	}
	if v, n := fillString(out, func(r *models.HistoricalRecord) **string { return &r.Application.Occupation }); n > 0 {
		rep.Imputations = append(rep.Imputations, Imputation{Column: "occupation", Filled: n, Value: v})
	}

	for i := range out {
		if p := out[i].ProcessingTimeDays; p != nil {
			t := math.Trunc(*p)
			out[i].ProcessingTimeDays = &t
		}
	}
	return out, rep
}

// MissingCounts counts nil cells per nullable column. Columns without gaps are omitted.
func MissingCounts(records []models.HistoricalRecord) map[string]int {
	out := map[string]int{}
	inc := func(col string, missing bool) {
		if missing {
			out[col]++
		}
	}
	for _, r := range records {
		a := r.Application
		inc("applicant_age", a.ApplicantAge == nil)
		inc("nationality", a.Nationality == nil)
		inc("visa_type", a.VisaType == nil)
		inc("occupation", a.Occupation == nil)
		inc("education_level", a.EducationLevel == nil)
		inc("duration_requested_days", a.DurationRequestedDays == nil)
		inc("application_month", a.ApplicationMonth == nil)
		inc("num_previous_visits", a.NumPreviousVisits == nil)
		inc("financial_proof_usd", a.FinancialProofUSD == nil)
		inc("has_sponsor", a.HasSponsor == nil)
		inc("documents_complete", a.DocumentsComplete == nil)
		inc("express_processing", a.ExpressProcessing == nil)
		inc("processing_time_days", r.ProcessingTimeDays == nil)
	}
	return out
}

// Median of the values; the mean of the two middle values for even lengths.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// Mode returns the most frequent value, the lexicographically smallest on ties.
func Mode(values []string) string {
	counts := map[string]int{}
	for _, v := range values {
		counts[v]++
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

func fillFloat(rs []models.HistoricalRecord, col func(*models.HistoricalRecord) **float64) (float64, int) {
	var present []float64
	missing := 0
	for i := range rs {
		if p := *col(&rs[i]); p != nil {
			present = append(present, *p)
		} else {
			missing++
		}
	}
	if missing == 0 || len(present) == 0 {
		return 0, 0
	}
	m := Median(present)
	for i := range rs {
		if p := col(&rs[i]); *p == nil {
			v := m
			*p = &v
		}
	}
	return m, missing
}

// Integer columns take the median rounded to the nearest whole value.
func fillInt(rs []models.HistoricalRecord, col func(*models.HistoricalRecord) **int) (int, int) {
	var present []float64
	missing := 0
	for i := range rs {
		if p := *col(&rs[i]); p != nil {
			present = append(present, float64(*p))
		} else {
			missing++
		}
	}
	if missing == 0 || len(present) == 0 {
		return 0, 0
	}
	m := int(math.Round(Median(present)))
	for i := range rs {
		if p := col(&rs[i]); *p == nil {
			v := m
			*p = &v
		}
	}
	return m, missing
}

// Boolean columns are treated as 0/1; a median of at least one half fills true.
func fillBool(rs []models.HistoricalRecord, col func(*models.HistoricalRecord) **bool) (bool, int) {
	var present []float64
	missing := 0
	for i := range rs {
		if p := *col(&rs[i]); p != nil {
			if *p {
				present = append(present, 1)
			} else {
				present = append(present, 0)
			}
		} else {
			missing++
		}
	}
	if missing == 0 || len(present) == 0 {
		return false, 0
	}
	m := Median(present) >= 0.5
	for i := range rs {
		if p := col(&rs[i]); *p == nil {
			v := m
			*p = &v
		}
	}
	return m, missing
}

func fillString(rs []models.HistoricalRecord, col func(*models.HistoricalRecord) **string) (string, int) {
	var present []string
	missing := 0
	for i := range rs {
		if p := *col(&rs[i]); p != nil && *p != "" {
			present = append(present, *p)
		} else {
			missing++
		}
	}
	if missing == 0 || len(present) == 0 {
		return "", 0
	}
	m := Mode(present)
	for i := range rs {
		if p := col(&rs[i]); *p == nil || **p == "" {
			v := m
			*p = &v
		}
	}
	return m, missing
}

func cloneRecord(r models.HistoricalRecord) models.HistoricalRecord {
	c := r
	a := &c.Application
	a.ApplicantAge = cloneInt(a.ApplicantAge)
	a.Nationality = cloneString(a.Nationality)
	a.VisaType = cloneString(a.VisaType)
	a.Occupation = cloneString(a.Occupation)
	a.EducationLevel = cloneString(a.EducationLevel)
	a.DurationRequestedDays = cloneInt(a.DurationRequestedDays)
	a.ApplicationMonth = cloneInt(a.ApplicationMonth)
	a.NumPreviousVisits = cloneInt(a.NumPreviousVisits)
	a.FinancialProofUSD = cloneFloat(a.FinancialProofUSD)
	a.HasSponsor = cloneBool(a.HasSponsor)
	a.DocumentsComplete = cloneBool(a.DocumentsComplete)
	a.ExpressProcessing = cloneBool(a.ExpressProcessing)
	c.ProcessingTimeDays = cloneFloat(c.ProcessingTimeDays)
	return c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
