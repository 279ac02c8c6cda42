package encoding

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEducationIsOrdinal(t *testing.T) {
	s := Default()
	want := map[string]int{"10th Pass": 0, "12th Pass": 1, "Graduate": 2, "Post Graduate": 3, "Doctorate": 4}
	for label, code := range want {
		got, err := s.Encode(FieldEducation, label)
		require.NoError(t, err)
		assert.Equal(t, code, got, label)
	}
}

func TestLexicographicCodes(t *testing.T) {
	s := Default()

	visa := map[string]int{
		"Business": 0, "Conference": 1, "Employment": 2, "Entry": 3,
		"Medical": 4, "Research": 5, "Student": 6, "Tourist": 7,
	}
	for label, code := range visa {
		got, _ := s.Encode(FieldVisaType, label)
		assert.Equal(t, code, got, label)
	}

	nat, _ := s.Encode(FieldNationality, "USA")
	assert.Equal(t, 19, nat)
	nat, _ = s.Encode(FieldNationality, "Australia")
	assert.Equal(t, 0, nat)

	occ, _ := s.Encode(FieldOccupation, "Professional")
	assert.Equal(t, 4, occ)
}

func TestUnknownLabelFallsBackToDefault(t *testing.T) {
	s := Default()
	cases := map[Field]int{
		FieldEducation:   2,
		FieldVisaType:    7,
		FieldNationality: 19,
		FieldOccupation:  4,
	}
	for f, want := range cases {
		got, err := s.Encode(f, "Atlantis")
		require.NoError(t, err)
		assert.Equal(t, want, got, string(f))
	}
}

func TestUnknownFieldIsAnError(t *testing.T) {
	_, err := Default().Encode(Field("gender"), "Male")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestDecodeInvertsEncode(t *testing.T) {
	s := Default()
	for _, f := range Fields {
		for _, label := range s.Labels(f) {
			code, err := s.Encode(f, label)
			require.NoError(t, err)
			back, ok := s.Decode(f, code)
			require.True(t, ok)
			assert.Equal(t, label, back)
		}
	}
	_, ok := s.Decode(FieldVisaType, 99)
	assert.False(t, ok)
}

func TestBuildPicksMostFrequentDefault(t *testing.T) {
	s, err := Build(map[Field]map[string]int{
		FieldNationality: {"Nepal": 120, "China": 120, "USA": 80},
		FieldVisaType:    {"Business": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "China", s.Maps[FieldNationality].Default)
	assert.Equal(t, "Business", s.Maps[FieldVisaType].Default)
	assert.Equal(t, "Graduate", s.Maps[FieldEducation].Default)

	// Defaults change the content, so the version changes too.
	assert.NotEqual(t, Default().Version, s.Version)
}

func TestSaveLoadKeepsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encodings.json")
	s := Default()
	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.Version, loaded.Version)
	code, _ := loaded.Encode(FieldOccupation, "Student")
	assert.Equal(t, 7, code)
}

func TestVerifyDetectsTampering(t *testing.T) {
	b, err := json.Marshal(Default())
	require.NoError(t, err)

	var s Set
	require.NoError(t, json.Unmarshal(b, &s))
	s.Maps[FieldVisaType].Labels[0], s.Maps[FieldVisaType].Labels[1] = s.Maps[FieldVisaType].Labels[1], s.Maps[FieldVisaType].Labels[0]
	assert.ErrorIs(t, s.Verify(), ErrVersionMismatch)
}

func TestMapRejectsUnregisteredDefault(t *testing.T) {
	_, err := NewLexicographic([]string{"a", "b"}, "c")
	assert.Error(t, err)
}
