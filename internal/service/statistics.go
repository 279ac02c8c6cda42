package service

import (
	"github.com/visa_estimator/backend/internal/encoding"
	"github.com/visa_estimator/backend/internal/models"
)

func (st *state) precompute() error {
	lo, hi := st.ref.MinMax()
	st.stats = models.Statistics{
		TotalApplications: st.ref.Len(),
		AvgProcessingTime: round1(st.ref.GlobalMean()),
		MinProcessingTime: int(lo),
		MaxProcessingTime: int(hi),
		ApprovalRate:      round1(st.ref.ApprovalRate()),
		VisaTypes:         st.enc.Labels(encoding.FieldVisaType),
		Nationalities:     st.enc.Labels(encoding.FieldNationality),
		Occupations:       st.enc.Labels(encoding.FieldOccupation),
		EducationLevels:   st.enc.Labels(encoding.FieldEducation),
		ModelName:         st.regressor.Name(),
		ModelAccuracy:     st.evaluated.Accuracy(),
		ModelMAE:          round1(st.evaluated.MAE),
		ModelVersion:      st.bundle.ID,
	}
	st.options = models.Options{
		Nationalities:   st.stats.Nationalities,
		VisaTypes:       st.stats.VisaTypes,
		Occupations:     st.stats.Occupations,
		EducationLevels: st.stats.EducationLevels,
	}

	var err error
	if st.visaStats, err = st.groupStats(encoding.FieldVisaType, true); err != nil {
		return err
	}
	if st.countries, err = st.groupStats(encoding.FieldNationality, false); err != nil {
		return err
	}
	return nil
}

// groupStats keeps only registered labels that have rows, rounded for display.
func (st *state) groupStats(f encoding.Field, withApproval bool) (map[string]models.GroupStats, error) {
	raw, err := st.ref.GroupStats(f)
	if err != nil {
		return nil, err
	}
	out := map[string]models.GroupStats{}
	for _, label := range st.enc.Labels(f) {
		g, ok := raw[label]
		if !ok {
			continue
		}
		gs := models.GroupStats{Count: g.Count, AvgDays: round1(g.AvgDays)}
		if withApproval && g.ApprovalRate != nil {
			rate := round1(*g.ApprovalRate)
			gs.ApprovalRate = &rate
		}
		out[label] = gs
	}
	return out, nil
}

// Statistics summarizes the reference dataset and the loaded model's stored evaluation.
func (s *PredictionService) Statistics() (models.Statistics, error) {
	st, err := s.current()
	if err != nil {
		return models.Statistics{}, err
	}
	return st.stats, nil
}

func (s *PredictionService) VisaTypeStats() (map[string]models.GroupStats, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	return st.visaStats, nil
}

func (s *PredictionService) CountryStats() (map[string]models.GroupStats, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	return st.countries, nil
}

func (s *PredictionService) Options() (models.Options, error) {
	st, err := s.current()
	if err != nil {
		return models.Options{}, err
	}
	return st.options, nil
}
