// Package transcript accumulates ordered interview turns and derives the interview prompt.
package transcript

import "strings"

// Separator joins turn texts in Snapshot output. Scoring consumes this exact format.
const Separator = "\n"

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerAI        Speaker = "AI"
	SpeakerCandidate Speaker = "CANDIDATE"
)

// Turn is one utterance in arrival order.
type Turn struct {
	Text    string
	Speaker Speaker
}

// Accumulator owns one session's ordered turns.
//
// It is not safe for concurrent use; callers serialize Append.
type Accumulator struct {
	turns  []Turn
	prompt string
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Append records a turn after all existing turns.
// The first AI turn with text becomes the prompt and is never replaced.
func (a *Accumulator) Append(turn Turn) {
	a.turns = append(a.turns, turn)
	if a.prompt == "" && turn.Speaker == SpeakerAI && strings.TrimSpace(turn.Text) != "" {
		a.prompt = turn.Text
	}
}

// Prompt returns the text of the first AI turn, or "" when none has arrived.
func (a *Accumulator) Prompt() string {
	return a.prompt
}

// Len returns the number of appended turns.
func (a *Accumulator) Len() int {
	return len(a.turns)
}

// Snapshot joins every turn text with Separator, without speaker labels.
func (a *Accumulator) Snapshot() string {
	return Join(a.turns)
}

// Join renders turns in the Snapshot format.
func Join(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	texts := make([]string, 0, len(turns))
	for _, turn := range turns {
		texts = append(texts, turn.Text)
	}
	return strings.Join(texts, Separator)
}

// Lines splits a joined transcript back into display lines.
func Lines(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, Separator)
}
