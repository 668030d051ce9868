package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rbright/parley/internal/rubric"
)

const (
	evaluateTemperature = 0.1
	answerTemperature   = 0.7
)

// Exchange is one prior turn of the follow-up Q&A.
type Exchange struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Question is a follow-up question about a finished interview.
type Question struct {
	Question   string     `json:"question"`
	Transcript string     `json:"transcript"`
	Prompt     string     `json:"interviewPrompt"`
	History    []Exchange `json:"conversationHistory"`
}

// EvaluationPrompt builds the grading instructions for one transcript.
func EvaluationPrompt(r rubric.Rubric, transcript string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert PM interviewer evaluating a %s interview. ", r.Type)
	b.WriteString("Your task is to evaluate the candidate's performance based ONLY on the provided transcript. ")
	b.WriteString("Do not make assumptions or add information not present in the transcript.\n\n")
	b.WriteString("Here is the rubric:\n\n")

	top := r.MaxLevel()
	for i, c := range r.Criteria {
		fmt.Fprintf(&b, "%d. %s (1-%d):\n", i+1, c.Name, top)
		for level, description := range c.Levels {
			fmt.Fprintf(&b, "   - Score %d: %s\n", level+1, description)
		}
		b.WriteByte('\n')
	}

	b.WriteString(`CRITICAL INSTRUCTIONS:
1. Base your evaluation SOLELY on the provided transcript. Do not make assumptions or add information not present in the transcript.
2. For each score and justification, quote specific parts of the transcript to support your evaluation.
3. If a particular aspect is not addressed in the transcript, note that in the justification rather than making assumptions.
4. The overall feedback should summarize the specific strengths and areas for improvement based on the actual interview content.
5. Do not reference companies, products, or features not mentioned in the transcript.

Here is the candidate's interview transcript:
`)
	b.WriteString(transcript)
	b.WriteString("\n\n")

	n := r.CriteriaCount()
	fmt.Fprintf(&b, "For each rubric criterion, assign a score (1-%d) and provide a specific justification based on the candidate's actual responses in this interview. ", top)
	b.WriteString("Reference their specific answers and approach to the interview question. Respond in JSON format:\n")
	fmt.Fprintf(&b, "{\n  \"scores\": [%s],\n  \"justifications\": [%s],\n  \"overall_feedback\": string\n}\n",
		repeat("number", n), repeat("string", n))
	return b.String()
}

// AnswerPrompt builds the follow-up Q&A instructions.
func AnswerPrompt(q Question) string {
	history, err := json.Marshal(q.History)
	if err != nil || q.History == nil {
		history = []byte("[]")
	}

	return fmt.Sprintf(`You are helping debug a product sense interview. Here is the context:

Interview Prompt: %s

Interview Transcript: %s

Previous Conversation: %s

Question: %s

Please provide a helpful answer that:
1. References specific parts of the interview transcript when relevant
2. Explains any inconsistencies or issues you notice
3. Provides suggestions for improvement
4. Keeps the context of the specific interview in mind

Answer:`, q.Prompt, q.Transcript, history, q.Question)
}

func repeat(word string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, ", ")
}
