// Package rubric loads the embedded interview rubrics and checks evaluations against them.
package rubric

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rbright/parley/internal/interview"
)

//go:embed rubrics.yaml
var embedded []byte

const (
	TypeProductSense       = "product-sense"
	TypeCriticalAnalytical = "critical-analytical"
)

// Criterion is one scored rubric dimension. Levels[i] describes score i+1.
type Criterion struct {
	Name   string   `yaml:"name"`
	Emoji  string   `yaml:"emoji"`
	Levels []string `yaml:"levels"`
}

// Rubric is the ordered criteria list for one interview type.
type Rubric struct {
	Type     string      `yaml:"-"`
	Title    string      `yaml:"title"`
	Criteria []Criterion `yaml:"criteria"`
}

// Set maps interview type to rubric.
type Set map[string]Rubric

// CriteriaCount is the number of scores an evaluation must carry.
func (r Rubric) CriteriaCount() int {
	return len(r.Criteria)
}

// MaxLevel is the highest valid score.
func (r Rubric) MaxLevel() int {
	if len(r.Criteria) == 0 {
		return 0
	}
	return len(r.Criteria[0].Levels)
}

// Describe returns the level description for a criterion score, or "" when out of range.
func (c Criterion) Describe(score int) string {
	if score < 1 || score > len(c.Levels) {
		return ""
	}
	return c.Levels[score-1]
}

// Parse decodes a rubric document and validates its shape.
func Parse(data []byte) (Set, error) {
	var raw map[string]Rubric
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode rubrics: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode rubrics: no interview types defined")
	}

	set := make(Set, len(raw))
	for name, r := range raw {
		r.Type = name
		if err := r.validate(); err != nil {
			return nil, err
		}
		set[name] = r
	}
	return set, nil
}

func (r Rubric) validate() error {
	if len(r.Criteria) == 0 {
		return fmt.Errorf("rubric %q: no criteria", r.Type)
	}
	levels := len(r.Criteria[0].Levels)
	if levels == 0 {
		return fmt.Errorf("rubric %q: criterion %q has no levels", r.Type, r.Criteria[0].Name)
	}
	for _, c := range r.Criteria {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("rubric %q: criterion name is empty", r.Type)
		}
		if len(c.Levels) != levels {
			return fmt.Errorf("rubric %q: criterion %q has %d levels, want %d", r.Type, c.Name, len(c.Levels), levels)
		}
	}
	return nil
}

// Lookup returns the rubric for an interview type.
func (s Set) Lookup(interviewType string) (Rubric, error) {
	r, ok := s[interviewType]
	if !ok {
		return Rubric{}, fmt.Errorf("%w %q", interview.ErrUnknownInterviewType, interviewType)
	}
	return r, nil
}

// Types lists the registered interview types in sorted order.
func (s Set) Types() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var (
	builtinOnce sync.Once
	builtinSet  Set
	builtinErr  error
)

// Builtin returns the embedded rubric set.
func Builtin() (Set, error) {
	builtinOnce.Do(func() {
		builtinSet, builtinErr = Parse(embedded)
	})
	return builtinSet, builtinErr
}

// Lookup resolves an interview type against the embedded rubrics.
func Lookup(interviewType string) (Rubric, error) {
	set, err := Builtin()
	if err != nil {
		return Rubric{}, err
	}
	return set.Lookup(interviewType)
}

// ValidateEvaluation enforces the length invariant and the score range.
func ValidateEvaluation(r Rubric, evaluation interview.Evaluation) error {
	if err := interview.CheckLengths(r.CriteriaCount(), len(evaluation.Scores), len(evaluation.Justifications)); err != nil {
		return err
	}
	top := r.MaxLevel()
	for i, score := range evaluation.Scores {
		if score < 1 || score > top {
			return fmt.Errorf("%w: score %d for %q outside 1..%d",
				interview.ErrIntegrity, score, r.Criteria[i].Name, top)
		}
	}
	return nil
}
