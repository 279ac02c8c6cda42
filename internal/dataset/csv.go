package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/visa_estimator/backend/internal/models"
)

// Columns is the header written for raw and cleaned datasets.
var Columns = []string{
	"application_id",
	"visa_type",
	"applicant_age",
	"gender",
	"education_level",
	"nationality",
	"occupation",
	"processing_center",
	"visit_purpose",
	"duration_requested_days",
	"application_month",
	"application_year",
	"previous_visa",
	"num_previous_visits",
	"financial_proof_usd",
	"has_sponsor",
	"documents_complete",
	"express_processing",
	"processing_time_days",
	"visa_status",
}

// ReadRecords parses a dataset CSV. Empty cells become nil fields. Rows that fail to
// parse are skipped and reported in the returned error list.
func ReadRecords(r io.Reader) ([]models.HistoricalRecord, []string) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var (
		errs []string
		out  []models.HistoricalRecord
	)
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		hr, err := parseRecord(rec, index)
		if err != nil {
			errs = append(errs, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		out = append(out, hr)
	}
	return out, errs
}

// ReadRecordsFile reads a dataset CSV from disk and fails on any malformed row.
func ReadRecordsFile(path string) ([]models.HistoricalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, errs := ReadRecords(f)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s: %d malformed rows, first: %s", path, len(errs), errs[0])
	}
	return records, nil
}

func parseRecord(rec []string, idx map[string]int) (models.HistoricalRecord, error) {
	var (
		hr  models.HistoricalRecord
		err error
	)
	a := &hr.Application
	hr.ApplicationID = getField(rec, idx, "application_id")
	hr.Gender = getField(rec, idx, "gender")
	hr.ProcessingCenter = getField(rec, idx, "processing_center")
	hr.VisitPurpose = getField(rec, idx, "visit_purpose")
	hr.PreviousVisa = getField(rec, idx, "previous_visa")
	hr.VisaStatus = getField(rec, idx, "visa_status")

	a.VisaType = optString(getField(rec, idx, "visa_type"))
	a.Nationality = optString(getField(rec, idx, "nationality"))
	a.EducationLevel = optString(getField(rec, idx, "education_level"))
	a.Occupation = optString(getField(rec, idx, "occupation"))

	if a.ApplicantAge, err = optInt(getField(rec, idx, "applicant_age")); err != nil {
		return hr, fmt.Errorf("applicant_age: %w", err)
	}
	if a.DurationRequestedDays, err = optInt(getField(rec, idx, "duration_requested_days")); err != nil {
		return hr, fmt.Errorf("duration_requested_days: %w", err)
	}
	if a.ApplicationMonth, err = optInt(getField(rec, idx, "application_month")); err != nil {
		return hr, fmt.Errorf("application_month: %w", err)
	}
	if a.NumPreviousVisits, err = optInt(getField(rec, idx, "num_previous_visits")); err != nil {
		return hr, fmt.Errorf("num_previous_visits: %w", err)
	}
	if a.FinancialProofUSD, err = optFloat(getField(rec, idx, "financial_proof_usd")); err != nil {
		return hr, fmt.Errorf("financial_proof_usd: %w", err)
	}
	if a.HasSponsor, err = optBool(getField(rec, idx, "has_sponsor")); err != nil {
		return hr, fmt.Errorf("has_sponsor: %w", err)
	}
	if a.DocumentsComplete, err = optBool(getField(rec, idx, "documents_complete")); err != nil {
		return hr, fmt.Errorf("documents_complete: %w", err)
	}
	if a.ExpressProcessing, err = optBool(getField(rec, idx, "express_processing")); err != nil {
		return hr, fmt.Errorf("express_processing: %w", err)
	}
	if hr.ProcessingTimeDays, err = optFloat(getField(rec, idx, "processing_time_days")); err != nil {
		return hr, fmt.Errorf("processing_time_days: %w", err)
	}
	year, err := optInt(getField(rec, idx, "application_year"))
	if err != nil {
		return hr, fmt.Errorf("application_year: %w", err)
	}
	if year != nil {
		hr.ApplicationYear = *year
	}
	return hr, nil
}

// WriteRecords writes records with the Columns header. Nil fields are written empty.
func WriteRecords(w io.Writer, records []models.HistoricalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		a := r.Application
		year := ""
		if r.ApplicationYear != 0 {
			year = strconv.Itoa(r.ApplicationYear)
		}
		row := []string{
			r.ApplicationID,
			fmtString(a.VisaType),
			fmtInt(a.ApplicantAge),
			r.Gender,
			fmtString(a.EducationLevel),
			fmtString(a.Nationality),
			fmtString(a.Occupation),
			r.ProcessingCenter,
			r.VisitPurpose,
			fmtInt(a.DurationRequestedDays),
			fmtInt(a.ApplicationMonth),
			year,
			r.PreviousVisa,
			fmtInt(a.NumPreviousVisits),
			fmtFloat(a.FinancialProofUSD),
			fmtBool(a.HasSponsor),
			fmtBool(a.DocumentsComplete),
			fmtBool(a.ExpressProcessing),
			fmtFloat(r.ProcessingTimeDays),
			r.VisaStatus,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteRecordsFile(path string, records []models.HistoricalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteRecords(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func optString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Integer columns may come back as "34.0" once a column held NaN upstream.
func optInt(v string) (*int, error) {
	if v == "" || strings.EqualFold(v, "nan") {
		return nil, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	n := int(f)
	return &n, nil
}

func optFloat(v string) (*float64, error) {
	if v == "" || strings.EqualFold(v, "nan") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func optBool(v string) (*bool, error) {
	switch strings.ToLower(v) {
	case "", "nan":
		return nil, nil
	case "1", "1.0", "true", "yes":
		b := true
		return &b, nil
	case "0", "0.0", "false", "no":
		b := false
		return &b, nil
	default:
		return nil, fmt.Errorf("invalid boolean %q", v)
	}
}

func fmtString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func fmtInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func fmtBool(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "1"
	}
	return "0"
}
