package encoding

// Closed category sets. Education is listed in rank order, the rest in any order;
// lexicographic maps sort them.
var (
	EducationLevels = []string{"10th Pass", "12th Pass", "Graduate", "Post Graduate", "Doctorate"}

	VisaTypes = []string{"Tourist", "Business", "Employment", "Student", "Medical", "Conference", "Research", "Entry"}

	Nationalities = []string{
		"USA", "UK", "Germany", "France", "Canada", "Australia",
		"Japan", "South Korea", "China", "Russia", "Brazil",
		"Bangladesh", "Nepal", "Sri Lanka", "UAE", "Singapore",
		"Thailand", "Malaysia", "South Africa", "Italy",
	}

	Occupations = []string{
		"Professional", "Business Owner", "Student", "Retired",
		"Homemaker", "Government Employee", "Self Employed", "Academic",
	}
)

// Fallback default labels used when no population counts are available.
var catalogDefaults = map[Field]string{
	FieldEducation:   "Graduate",
	FieldVisaType:    "Tourist",
	FieldNationality: "USA",
	FieldOccupation:  "Professional",
}

func catalogLabels(f Field) []string {
	switch f {
	case FieldEducation:
		return EducationLevels
	case FieldVisaType:
		return VisaTypes
	case FieldNationality:
		return Nationalities
	case FieldOccupation:
		return Occupations
	default:
		return nil
	}
}
