package rubric

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/interview"
)

func TestBuiltinRubrics(t *testing.T) {
	set, err := Builtin()
	require.NoError(t, err)
	require.Equal(t, []string{TypeCriticalAnalytical, TypeProductSense}, set.Types())

	for _, name := range set.Types() {
		r, err := set.Lookup(name)
		require.NoError(t, err)
		require.Equal(t, name, r.Type)
		require.Equal(t, 4, r.CriteriaCount())
		require.Equal(t, 4, r.MaxLevel())
	}

	ps, err := Lookup(TypeProductSense)
	require.NoError(t, err)
	require.Equal(t, "Clarify the Prompt", ps.Criteria[0].Name)
	require.Equal(t, "🚀", ps.Criteria[3].Emoji)
	require.Contains(t, ps.Criteria[1].Describe(3), "multiple user segments")
	require.Empty(t, ps.Criteria[1].Describe(5))
}

func TestLookupUnknownType(t *testing.T) {
	_, err := Lookup("system-design")
	require.ErrorIs(t, err, interview.ErrUnknownInterviewType)
}

func TestParseRejectsRaggedLevels(t *testing.T) {
	_, err := Parse([]byte(`
x:
  criteria:
    - name: a
      levels: ["1", "2"]
    - name: b
      levels: ["1"]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), `criterion "b" has 1 levels`)

	_, err = Parse([]byte("x:\n  criteria: []\n"))
	require.ErrorContains(t, err, "no criteria")

	_, err = Parse([]byte("{}"))
	require.ErrorContains(t, err, "no interview types")
}

func TestValidateEvaluation(t *testing.T) {
	r, err := Lookup(TypeProductSense)
	require.NoError(t, err)

	ok := interview.Evaluation{Scores: []int{1, 2, 3, 4}, Justifications: []string{"a", "b", "c", "d"}}
	require.NoError(t, ValidateEvaluation(r, ok))

	short := interview.Evaluation{Scores: []int{1, 2, 3}, Justifications: []string{"a", "b", "c", "d"}}
	require.ErrorIs(t, ValidateEvaluation(r, short), interview.ErrIntegrity)

	outOfRange := interview.Evaluation{Scores: []int{1, 2, 3, 5}, Justifications: []string{"a", "b", "c", "d"}}
	err = ValidateEvaluation(r, outOfRange)
	require.ErrorIs(t, err, interview.ErrIntegrity)
	require.Contains(t, err.Error(), "Execute on an MVP")
}

func TestResolveAgent(t *testing.T) {
	agents := DefaultAgents()

	got, err := ResolveAgent(agents, "Ykg1OlN7H58nquphXgmt")
	require.NoError(t, err)
	require.Equal(t, TypeProductSense, got)

	got, err = ResolveAgent(agents, " 0vdorfV4DR2C8SZXJsLQ ")
	require.NoError(t, err)
	require.Equal(t, TypeCriticalAnalytical, got)

	_, err = ResolveAgent(agents, "nope")
	require.ErrorIs(t, err, ErrUnknownAgent)

	_, err = ResolveAgent(agents, "")
	require.ErrorIs(t, err, ErrUnknownAgent)
}
