package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/rubric"
)

func TestCleanJSON(t *testing.T) {
	require.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, cleanJSON("```\n{\"a\":1}```"))
	require.Equal(t, `{"a":1}`, cleanJSON("  {\"a\":1}  "))
}

func TestDecodeEvaluation(t *testing.T) {
	evaluation, err := decodeEvaluation(`{"scores":[1,4],"justifications":["x","y"],"overall_feedback":"ok"}`)
	require.NoError(t, err)
	require.Equal(t, []int{1, 4}, evaluation.Scores)
	require.Equal(t, []string{"x", "y"}, evaluation.Justifications)
	require.Equal(t, "ok", evaluation.OverallFeedback)

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "empty", reply: "  ", want: "no response"},
		{name: "prose", reply: "Great job", want: "not valid JSON"},
		{name: "no scores", reply: `{"justifications":[]}`, want: "missing scores"},
		{name: "no justifications", reply: `{"scores":[]}`, want: "missing justifications"},
		{name: "fractional score", reply: `{"scores":[2.5],"justifications":["x"]}`, want: "not an integer"},
		{name: "string score", reply: `{"scores":["3"],"justifications":["x"]}`, want: "not an integer"},
		{name: "numeric justification", reply: `{"scores":[3],"justifications":[3]}`, want: "not a string"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeEvaluation(tc.reply)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestEvaluationPromptNamesRubric(t *testing.T) {
	r, err := rubric.Lookup(rubric.TypeProductSense)
	require.NoError(t, err)

	prompt := EvaluationPrompt(r, "the transcript")
	require.Contains(t, prompt, "1. Clarify the Prompt (1-4):")
	require.Contains(t, prompt, "4. Execute on an MVP (1-4):")
	require.Contains(t, prompt, "   - Score 4: Delivered an elegant, delightful MVP.")
	require.Contains(t, prompt, "the transcript")
	require.Contains(t, prompt, `"scores": [number, number, number, number]`)
}

func TestAnswerPromptDefaultsHistory(t *testing.T) {
	prompt := AnswerPrompt(Question{Question: "why?", Transcript: "t", Prompt: "p"})
	require.Contains(t, prompt, "Previous Conversation: []")
	require.Contains(t, prompt, "Interview Prompt: p")
}
