package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/features"
	"github.com/visa_estimator/backend/internal/models"
)

const StatusApproved = "Approved"

type groupAcc struct {
	count    int
	sum      float64
	approved int
}

// Table is the read-only reference dataset. Group means are computed once in NewTable,
// so lookups never scan rows and concurrent readers need no locking.
type Table struct {
	rows   []models.LabeledApplication
	groups map[encoding.Field]map[string]*groupAcc
	mean   float64
	min    float64
	max    float64
}

func NewTable(rows []models.LabeledApplication) *Table {
	t := &Table{
		rows:   rows,
		groups: map[encoding.Field]map[string]*groupAcc{},
	}
	for _, f := range encoding.Fields {
		t.groups[f] = map[string]*groupAcc{}
	}
	var sum float64
	for i, r := range rows {
		sum += r.ProcessingTimeDays
		if i == 0 || r.ProcessingTimeDays < t.min {
			t.min = r.ProcessingTimeDays
		}
		if i == 0 || r.ProcessingTimeDays > t.max {
			t.max = r.ProcessingTimeDays
		}
		for _, f := range encoding.Fields {
			key := fieldValue(r.Application, f)
			acc, ok := t.groups[f][key]
			if !ok {
				acc = &groupAcc{}
				t.groups[f][key] = acc
			}
			acc.count++
			acc.sum += r.ProcessingTimeDays
			if r.VisaStatus == StatusApproved {
				acc.approved++
			}
		}
	}
	if len(rows) > 0 {
		t.mean = sum / float64(len(rows))
	}
	return t
}

// FromRecords normalizes cleaned records into a table. Rows without a processing time
// are dropped and counted.
func FromRecords(records []models.HistoricalRecord, d features.Defaults) (*Table, int) {
	rows, skipped := Labeled(records, d)
	return NewTable(rows), skipped
}

func Labeled(records []models.HistoricalRecord, d features.Defaults) ([]models.LabeledApplication, int) {
	rows := make([]models.LabeledApplication, 0, len(records))
	skipped := 0
	for _, r := range records {
		if r.ProcessingTimeDays == nil {
			skipped++
			continue
		}
		rows = append(rows, models.LabeledApplication{
			ID:                 r.ApplicationID,
			Application:        features.Normalize(r.Application, d),
			ProcessingTimeDays: *r.ProcessingTimeDays,
			VisaStatus:         r.VisaStatus,
		})
	}
	return rows, skipped
}

func fieldValue(app models.Application, f encoding.Field) string {
	switch f {
	case encoding.FieldEducation:
		return app.EducationLevel
	case encoding.FieldVisaType:
		return app.VisaType
	case encoding.FieldNationality:
		return app.Nationality
	case encoding.FieldOccupation:
		return app.Occupation
	default:
		return ""
	}
}

// GroupAverage implements features.Reference. Only the processing-time target is
// tracked: other targets yield NaN, an unseen group yields the global mean.
func (t *Table) GroupAverage(groupField, groupValue, target string) float64 {
	if target != features.TargetProcessingTime {
		return math.NaN()
	}
	g, ok := t.groups[encoding.Field(groupField)]
	if !ok {
		return t.mean
	}
	acc, ok := g[groupValue]
	if !ok || acc.count == 0 {
		return t.mean
	}
	return acc.sum / float64(acc.count)
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) GlobalMean() float64 { return t.mean }

// Rows returns a copy of the underlying rows.
func (t *Table) Rows() []models.LabeledApplication {
	return append([]models.LabeledApplication(nil), t.rows...)
}

func (t *Table) MinMax() (float64, float64) { return t.min, t.max }

// ApprovalRate is the percentage of rows with an approved status.
func (t *Table) ApprovalRate() float64 {
	if len(t.rows) == 0 {
		return 0
	}
	approved := 0
	for _, r := range t.rows {
		if r.VisaStatus == StatusApproved {
			approved++
		}
	}
	return float64(approved) / float64(len(t.rows)) * 100
}

// GroupStats aggregates count, mean time and approval percentage per label of a field.
// Labels with no rows are absent.
func (t *Table) GroupStats(f encoding.Field) (map[string]models.GroupStats, error) {
	g, ok := t.groups[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", encoding.ErrUnknownField, f)
	}
	out := make(map[string]models.GroupStats, len(g))
	for label, acc := range g {
		rate := float64(acc.approved) / float64(acc.count) * 100
		out[label] = models.GroupStats{
			Count:        acc.count,
			AvgDays:      acc.sum / float64(acc.count),
			ApprovalRate: &rate,
		}
	}
	return out, nil
}

// LabelCounts feeds encoding.Build.
func (t *Table) LabelCounts() map[encoding.Field]map[string]int {
	out := make(map[encoding.Field]map[string]int, len(t.groups))
	for f, g := range t.groups {
		counts := make(map[string]int, len(g))
		for label, acc := range g {
			counts[label] = acc.count
		}
		out[f] = counts
	}
	return out
}

// SlowestGroups returns up to n labels of a field ordered by mean processing time, slowest first.
func (t *Table) SlowestGroups(f encoding.Field, n int) []string {
	g := t.groups[f]
	labels := make([]string, 0, len(g))
	for l := range g {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		ai := g[labels[i]].sum / float64(g[labels[i]].count)
		aj := g[labels[j]].sum / float64(g[labels[j]].count)
		if ai != aj {
			return ai > aj
		}
		return labels[i] < labels[j]
	})
	if n > 0 && len(labels) > n {
		labels = labels[:n]
	}
	return labels
}
