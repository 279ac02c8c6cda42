package dataset

import (
	"fmt"
	"math/rand"

	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/features"
	"github.com/visa_estimator/backend/internal/models"
)

var (
	visaWeights = []float64{0.35, 0.25, 0.12, 0.10, 0.06, 0.04, 0.04, 0.04}

	processingCenters = []string{"New Delhi", "Mumbai", "Chennai", "Kolkata", "Hyderabad", "Bengaluru", "Ahmedabad", "Pune"}

	visitPurposes = map[string][]string{
		"Tourist":    {"Sightseeing", "Heritage Tour", "Wildlife Safari", "Beach Holiday", "Hill Station"},
		"Business":   {"Client Meeting", "Conference", "Trade Fair", "Partnership Discussion", "Site Visit"},
		"Employment": {"IT Services", "Manufacturing", "Consulting", "Teaching", "Healthcare"},
		"Student":    {"Undergraduate", "Postgraduate", "PhD Research", "Exchange Program", "Short Course"},
		"Medical":    {"Surgery", "Treatment", "Consultation", "Follow-up", "Check-up"},
		"Conference": {"Tech Summit", "Business Conference", "Academic Conference", "Workshop", "Seminar"},
		"Research":   {"Scientific Study", "Academic Research", "Field Work", "Collaboration", "Data Collection"},
		"Entry":      {"Returning Resident", "PIO Visit", "OCI Holder", "Family Visit", "Emergency"},
	}

	durationChoices = map[string][]int{
		"Tourist":    {30, 60, 90, 180},
		"Business":   {30, 60, 90, 180, 365},
		"Employment": {365, 730, 1825},
		"Student":    {365, 730, 1095, 1460},
		"Medical":    {30, 60, 90, 180},
	}

	baseProcessingDays = map[string]int{
		"Tourist": 5, "Business": 7, "Employment": 15, "Student": 12,
		"Medical": 3, "Conference": 5, "Research": 20, "Entry": 4,
	}

	slowCountries = map[string]bool{"China": true, "Russia": true, "Bangladesh": true}
)

// MissingColumns can be blanked by InjectMissing.
var MissingColumns = []string{
	"applicant_age", "education_level", "occupation",
	"financial_proof_usd", "num_previous_visits", "documents_complete",
}

// Generator produces synthetic historical applications. Output depends only on the seed.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns n complete records. progress, when non-nil, is called after each record.
func (g *Generator) Generate(n int, progress func()) []models.HistoricalRecord {
	out := make([]models.HistoricalRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.record(i))
		if progress != nil {
			progress()
		}
	}
	return out
}

func (g *Generator) record(i int) models.HistoricalRecord {
	r := g.rng
	year := g.between(2020, 2024)
	visa := encoding.VisaTypes[g.weighted(visaWeights)]

	var age int
	switch visa {
	case "Student":
		age = g.between(17, 35)
	case "Employment":
		age = g.between(22, 55)
	case "Medical":
		age = g.between(25, 75)
	default:
		age = g.between(20, 70)
	}

	gender := "Male"
	if r.Intn(2) == 1 {
		gender = "Female"
	}

	var eduWeights []float64
	switch visa {
	case "Student":
		eduWeights = []float64{0.05, 0.30, 0.40, 0.20, 0.05}
	case "Employment", "Research":
		eduWeights = []float64{0.02, 0.08, 0.35, 0.40, 0.15}
	default:
		eduWeights = []float64{0.10, 0.20, 0.40, 0.25, 0.05}
	}
	education := encoding.EducationLevels[g.weighted(eduWeights)]
	country := g.pick(encoding.Nationalities)

	var occupation string
	switch visa {
	case "Student":
		occupation = "Student"
	case "Business":
		occupation = encoding.Occupations[g.weighted([]float64{0.30, 0.40, 0.05, 0.05, 0.02, 0.08, 0.08, 0.02})]
	default:
		occupation = g.pick(encoding.Occupations)
	}

	center := g.pick(processingCenters)
	purpose := g.pick(visitPurposes[visa])

	durations, ok := durationChoices[visa]
	if !ok {
		durations = []int{30, 60, 90}
	}
	duration := durations[r.Intn(len(durations))]
	month := g.between(1, 12)

	prevVisa := "No"
	if age > 35 {
		if r.Intn(3) < 2 {
			prevVisa = "Yes"
		}
	} else if r.Intn(3) == 0 {
		prevVisa = "Yes"
	}
	visits := 0
	if prevVisa == "Yes" {
		visits = g.between(1, 8)
	}

	var proof int
	switch visa {
	case "Employment":
		proof = g.between(5000, 50000)
	case "Student":
		proof = g.between(10000, 80000)
	case "Business":
		proof = g.between(3000, 100000)
	default:
		proof = g.between(1000, 30000)
	}

	var sponsor bool
	switch visa {
	case "Employment", "Business", "Conference":
		sponsor = r.Intn(4) < 3
	case "Student":
		sponsor = r.Intn(3) < 2
	default:
		sponsor = r.Intn(3) == 0
	}
	docs := r.Intn(5) < 4
	express := r.Intn(4) == 0

	days := baseProcessingDays[visa]
	if express {
		days = max(2, days-3)
	}
	if !docs {
		days += g.between(5, 15)
	}
	if prevVisa == "Yes" && visits > 2 {
		days--
	}
	if slowCountries[country] {
		days += g.between(2, 5)
	}
	if features.IsPeakSeason(month) == 1 && visa == "Tourist" {
		days += g.between(1, 4)
	}
	days += g.between(-2, 5)
	days = max(2, min(days, 45))

	approval := 0.82
	if !docs {
		approval -= 0.25
	}
	if prevVisa == "Yes" {
		approval += 0.05
	}
	if proof > 20000 {
		approval += 0.05
	}
	if sponsor {
		approval += 0.03
	}
	if education == "Post Graduate" || education == "Doctorate" {
		approval += 0.03
	}
	approval = min(0.95, max(0.50, approval))

	status := "Rejected"
	switch v := r.Float64(); {
	case v < approval:
		status = StatusApproved
	case v < approval+0.05:
		status = "Pending"
	}

	proofF := float64(proof)
	daysF := float64(days)
	return models.HistoricalRecord{
		ApplicationID: fmt.Sprintf("IND%d%07d", year, i+1),
		Application: models.RawApplication{
			ApplicantAge:          &age,
			Nationality:           &country,
			VisaType:              &visa,
			Occupation:            &occupation,
			EducationLevel:        &education,
			DurationRequestedDays: &duration,
			ApplicationMonth:      &month,
			NumPreviousVisits:     &visits,
			FinancialProofUSD:     &proofF,
			HasSponsor:            &sponsor,
			DocumentsComplete:     &docs,
			ExpressProcessing:     &express,
		},
		Gender:             gender,
		ProcessingCenter:   center,
		VisitPurpose:       purpose,
		ApplicationYear:    year,
		PreviousVisa:       prevVisa,
		ProcessingTimeDays: &daysF,
		VisaStatus:         status,
	}
}

// InjectMissing blanks a random share of each MissingColumns column, roughly
// rate*U(0.4,0.8) of rows, and 4% of the target. Records are modified in place.
func (g *Generator) InjectMissing(records []models.HistoricalRecord, rate float64) {
	n := len(records)
	for _, col := range MissingColumns {
		k := int(float64(n) * rate * (0.4 + 0.4*g.rng.Float64()))
		for _, i := range g.rng.Perm(n)[:k] {
			clearColumn(&records[i], col)
		}
	}
	k := int(float64(n) * 0.04)
	for _, i := range g.rng.Perm(n)[:k] {
		records[i].ProcessingTimeDays = nil
	}
}

func clearColumn(r *models.HistoricalRecord, col string) {
	a := &r.Application
	switch col {
	case "applicant_age":
		a.ApplicantAge = nil
	case "education_level":
		a.EducationLevel = nil
	case "occupation":
		a.Occupation = nil
	case "financial_proof_usd":
		a.FinancialProofUSD = nil
	case "num_previous_visits":
		a.NumPreviousVisits = nil
	case "documents_complete":
		a.DocumentsComplete = nil
	}
}

func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) pick(xs []string) string {
	return xs[g.rng.Intn(len(xs))]
}

func (g *Generator) weighted(weights []float64) int {
	v := g.rng.Float64()
	var acc float64
	for i, w := range weights {
		acc += w
		if v < acc {
			return i
		}
	}
	return len(weights) - 1
}
