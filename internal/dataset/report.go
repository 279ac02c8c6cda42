package dataset

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/features"
)

type Share struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type TargetSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

type Insights struct {
	ApprovalRate      float64            `json:"approval_rate"`
	RejectionRate     float64            `json:"rejection_rate"`
	TopVisaType       string             `json:"top_visa_type"`
	CompleteDocsAvg   float64            `json:"complete_docs_avg"`
	IncompleteDocsAvg float64            `json:"incomplete_docs_avg"`
	ExpressAvg        float64            `json:"express_avg"`
	NormalAvg         float64            `json:"normal_avg"`
	PeakAvg           float64            `json:"peak_avg"`
	OffPeakAvg        float64            `json:"off_peak_avg"`
	SlowestCountries  []string           `json:"slowest_countries"`
	RiskScoreAvg      map[int]float64    `json:"risk_score_avg"`
	Correlations      map[string]float64 `json:"correlations"`
}

// Summary describes a cleaned dataset.
type Summary struct {
	Rows      int           `json:"rows"`
	Target    TargetSummary `json:"target"`
	Status    []Share       `json:"status"`
	VisaTypes []Share       `json:"visa_types"`
	Insights  Insights      `json:"insights"`
}

// Summarize computes the dataset summary and key insights from the reference table.
func Summarize(t *Table) Summary {
	rows := t.Rows()
	s := Summary{Rows: len(rows)}
	if len(rows) == 0 {
		return s
	}

	y := make([]float64, len(rows))
	statuses := make([]string, len(rows))
	visas := make([]string, len(rows))
	for i, r := range rows {
		y[i] = r.ProcessingTimeDays
		statuses[i] = r.VisaStatus
		visas[i] = r.Application.VisaType
	}
	lo, hi := t.MinMax()
	s.Target = TargetSummary{
		Min:    lo,
		Max:    hi,
		Mean:   stat.Mean(y, nil),
		Median: Median(y),
	}
	if len(y) > 1 {
		s.Target.Std = stat.StdDev(y, nil)
	}
	s.Status = shares(statuses)
	s.VisaTypes = shares(visas)

	in := Insights{
		ApprovalRate:     t.ApprovalRate(),
		SlowestCountries: t.SlowestGroups(encoding.FieldNationality, 3),
		RiskScoreAvg:     map[int]float64{},
		Correlations:     map[string]float64{},
	}
	for _, sh := range s.Status {
		if sh.Label == "Rejected" {
			in.RejectionRate = sh.Percent
		}
	}
	if len(s.VisaTypes) > 0 {
		in.TopVisaType = s.VisaTypes[0].Label
	}

	var docs, noDocs, express, normal, peak, offPeak []float64
	byRisk := map[int][]float64{}
	cols := map[string][]float64{}
	for _, r := range rows {
		a := r.Application
		if a.DocumentsComplete {
			docs = append(docs, r.ProcessingTimeDays)
		} else {
			noDocs = append(noDocs, r.ProcessingTimeDays)
		}
		if a.ExpressProcessing {
			express = append(express, r.ProcessingTimeDays)
		} else {
			normal = append(normal, r.ProcessingTimeDays)
		}
		if features.IsPeakSeason(a.ApplicationMonth) == 1 {
			peak = append(peak, r.ProcessingTimeDays)
		} else {
			offPeak = append(offPeak, r.ProcessingTimeDays)
		}
		risk := features.RiskScore(a)
		byRisk[risk] = append(byRisk[risk], r.ProcessingTimeDays)

		cols["applicant_age"] = append(cols["applicant_age"], float64(a.ApplicantAge))
		cols["duration_requested_days"] = append(cols["duration_requested_days"], float64(a.DurationRequestedDays))
		cols["num_previous_visits"] = append(cols["num_previous_visits"], float64(a.NumPreviousVisits))
		cols["financial_proof_usd"] = append(cols["financial_proof_usd"], a.FinancialProofUSD)
		cols["risk_score"] = append(cols["risk_score"], float64(risk))
	}
	in.CompleteDocsAvg = mean(docs)
	in.IncompleteDocsAvg = mean(noDocs)
	in.ExpressAvg = mean(express)
	in.NormalAvg = mean(normal)
	in.PeakAvg = mean(peak)
	in.OffPeakAvg = mean(offPeak)
	for k, v := range byRisk {
		in.RiskScoreAvg[k] = mean(v)
	}
	if len(rows) > 1 {
		for name, x := range cols {
			if stat.Variance(x, nil) == 0 {
				continue
			}
			in.Correlations[name] = stat.Correlation(x, y, nil)
		}
	}
	s.Insights = in
	return s
}

// WriteText renders the summary as a plain-text report.
func (s Summary) WriteText(w io.Writer) error {
	var b strings.Builder
	line := strings.Repeat("=", 60)
	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "VISA APPLICATION DATASET SUMMARY")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "\nTotal Records: %d\n", s.Rows)

	fmt.Fprintln(&b, "\n--- Target Variable: processing_time_days ---")
	fmt.Fprintf(&b, "  Min: %.0f\n  Max: %.0f\n  Mean: %.2f\n  Median: %.1f\n  Std: %.2f\n",
		s.Target.Min, s.Target.Max, s.Target.Mean, s.Target.Median, s.Target.Std)

	fmt.Fprintln(&b, "\n--- Visa Status Distribution ---")
	for _, sh := range s.Status {
		fmt.Fprintf(&b, "  %s: %d (%.1f%%)\n", sh.Label, sh.Count, sh.Percent)
	}
	fmt.Fprintln(&b, "\n--- Visa Type Distribution ---")
	for _, sh := range s.VisaTypes {
		fmt.Fprintf(&b, "  %s: %d (%.1f%%)\n", sh.Label, sh.Count, sh.Percent)
	}

	in := s.Insights
	fmt.Fprintln(&b, "\n--- Key Insights ---")
	fmt.Fprintf(&b, "  Approval rate: %.1f%%, rejection rate: %.1f%%\n", in.ApprovalRate, in.RejectionRate)
	fmt.Fprintf(&b, "  Most common visa type: %s\n", in.TopVisaType)
	fmt.Fprintf(&b, "  Complete docs: %.1f days, incomplete docs: %.1f days\n", in.CompleteDocsAvg, in.IncompleteDocsAvg)
	fmt.Fprintf(&b, "  Express: %.1f days, normal: %.1f days\n", in.ExpressAvg, in.NormalAvg)
	fmt.Fprintf(&b, "  Peak season: %.1f days, off-peak: %.1f days\n", in.PeakAvg, in.OffPeakAvg)
	fmt.Fprintf(&b, "  Slowest countries: %s\n", strings.Join(in.SlowestCountries, ", "))

	risks := make([]int, 0, len(in.RiskScoreAvg))
	for k := range in.RiskScoreAvg {
		risks = append(risks, k)
	}
	sort.Ints(risks)
	for _, k := range risks {
		fmt.Fprintf(&b, "  Risk score %d: %.1f days\n", k, in.RiskScoreAvg[k])
	}

	names := make([]string, 0, len(in.Correlations))
	for k := range in.Correlations {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Fprintln(&b, "\n--- Correlation with processing time ---")
	for _, n := range names {
		fmt.Fprintf(&b, "  %s: %.3f\n", n, in.Correlations[n])
	}
	fmt.Fprintln(&b, line)

	_, err := io.WriteString(w, b.String())
	return err
}

// shares counts labels, most frequent first.
func shares(labels []string) []Share {
	counts := map[string]int{}
	for _, l := range labels {
		counts[l]++
	}
	out := make([]Share, 0, len(counts))
	for l, n := range counts {
		out = append(out, Share{Label: l, Count: n, Percent: float64(n) / float64(len(labels)) * 100})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
