// Package encoding maps categorical application fields to stable integer codes.
//
// A Set is built once from the cleaned training data, saved next to the model and
// loaded by every consumer. Nothing recomputes codes from a different data slice.
package encoding

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/visa_estimator/backend/internal/utils"
)

type Field string

const (
	FieldEducation   Field = "education_level"
	FieldVisaType    Field = "visa_type"
	FieldNationality Field = "nationality"
	FieldOccupation  Field = "occupation"
)

// Fields lists the encoded fields in the order their codes appear in the feature vector.
var Fields = []Field{FieldEducation, FieldVisaType, FieldNationality, FieldOccupation}

var (
	ErrUnknownField    = errors.New("unknown categorical field")
	ErrVersionMismatch = errors.New("encoding version mismatch")
)

// Map is the label table for one field. Code i is Labels[i].
type Map struct {
	Labels  []string `json:"labels"`
	Default string   `json:"default"`
	Ordinal bool     `json:"ordinal"`

	index map[string]int
}

// NewOrdinal keeps labels in the given rank order.
func NewOrdinal(labels []string, def string) (*Map, error) {
	return newMap(append([]string(nil), labels...), def, true)
}

// NewLexicographic sorts and de-duplicates labels before assigning codes.
func NewLexicographic(labels []string, def string) (*Map, error) {
	seen := map[string]struct{}{}
	var uniq []string
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		uniq = append(uniq, l)
	}
	sort.Strings(uniq)
	return newMap(uniq, def, false)
}

func newMap(labels []string, def string, ordinal bool) (*Map, error) {
	m := &Map{Labels: labels, Default: def, Ordinal: ordinal}
	if err := m.reindex(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Map) reindex() error {
	if len(m.Labels) == 0 {
		return fmt.Errorf("encoding map has no labels")
	}
	m.index = make(map[string]int, len(m.Labels))
	for i, l := range m.Labels {
		if _, dup := m.index[l]; dup {
			return fmt.Errorf("duplicate label %q", l)
		}
		m.index[l] = i
	}
	if _, ok := m.index[m.Default]; !ok {
		return fmt.Errorf("default label %q is not registered", m.Default)
	}
	return nil
}

func (m *Map) UnmarshalJSON(b []byte) error {
	type plain Map
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = Map(p)
	return m.reindex()
}

// Lookup reports the code of a registered label.
func (m *Map) Lookup(label string) (int, bool) {
	code, ok := m.index[label]
	return code, ok
}

// Encode never fails: unregistered labels get the default label's code.
func (m *Map) Encode(label string) int {
	if code, ok := m.index[label]; ok {
		return code
	}
	return m.index[m.Default]
}

func (m *Map) Decode(code int) (string, bool) {
	if code < 0 || code >= len(m.Labels) {
		return "", false
	}
	return m.Labels[code], true
}

// Set holds one Map per categorical field plus a content-derived version.
type Set struct {
	Version string         `json:"version"`
	Maps    map[Field]*Map `json:"maps"`
}

// Build creates the encoding set from label population counts. Labels are the closed
// category sets; the default per field is its most frequent label (ties go to the
// lexicographically smaller label). Fields with no counts keep the catalog default.
func Build(counts map[Field]map[string]int) (*Set, error) {
	s := &Set{Maps: map[Field]*Map{}}
	for _, f := range Fields {
		def := mostFrequent(counts[f], catalogLabels(f))
		if def == "" {
			def = catalogDefaults[f]
		}
		var (
			m   *Map
			err error
		)
		if f == FieldEducation {
			m, err = NewOrdinal(catalogLabels(f), def)
		} else {
			m, err = NewLexicographic(catalogLabels(f), def)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		s.Maps[f] = m
	}
	v, err := s.computeVersion()
	if err != nil {
		return nil, err
	}
	s.Version = v
	return s, nil
}

// Default builds the set without population counts.
func Default() *Set {
	s, err := Build(nil)
	if err != nil {
		panic(err)
	}
	return s
}

func mostFrequent(counts map[string]int, allowed []string) string {
	best, bestN := "", 0
	for _, l := range allowed {
		n := counts[l]
		if n == 0 {
			continue
		}
		if n > bestN || (n == bestN && l < best) {
			best, bestN = l, n
		}
	}
	return best
}

func (s *Set) Encode(field Field, raw string) (int, error) {
	m, ok := s.Maps[field]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return m.Encode(raw), nil
}

func (s *Set) Decode(field Field, code int) (string, bool) {
	m, ok := s.Maps[field]
	if !ok {
		return "", false
	}
	return m.Decode(code)
}

func (s *Set) Labels(field Field) []string {
	m, ok := s.Maps[field]
	if !ok {
		return nil
	}
	return append([]string(nil), m.Labels...)
}

func (s *Set) computeVersion() (string, error) {
	b, err := json.Marshal(s.Maps)
	if err != nil {
		return "", err
	}
	return utils.HashHex(b), nil
}

// Verify checks every field is present and the stored version matches the content.
func (s *Set) Verify() error {
	for _, f := range Fields {
		if _, ok := s.Maps[f]; !ok {
			return fmt.Errorf("%w: missing %s", ErrUnknownField, f)
		}
	}
	v, err := s.computeVersion()
	if err != nil {
		return err
	}
	if v != s.Version {
		return fmt.Errorf("%w: stored %s, computed %s", ErrVersionMismatch, s.Version, v)
	}
	return nil
}

func Save(path string, s *Set) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func Load(path string) (*Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Set
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode encodings: %w", err)
	}
	if err := s.Verify(); err != nil {
		return nil, err
	}
	return &s, nil
}
