package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rbright/parley/internal/interview"
)

var errEmptyReply = errors.New("no response from model")

// cleanJSON strips markdown code fences from a model reply.
func cleanJSON(reply string) string {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```JSON")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	return strings.TrimSpace(reply)
}

// decodeEvaluation parses the model's JSON evaluation. Lengths are checked by the pipeline.
func decodeEvaluation(reply string) (interview.Evaluation, error) {
	text := cleanJSON(reply)
	if text == "" {
		return interview.Evaluation{}, errEmptyReply
	}
	if !gjson.Valid(text) {
		return interview.Evaluation{}, fmt.Errorf("model reply is not valid JSON")
	}

	doc := gjson.Parse(text)
	scores := doc.Get("scores")
	justifications := doc.Get("justifications")
	if !scores.IsArray() {
		return interview.Evaluation{}, fmt.Errorf("model reply missing scores array")
	}
	if !justifications.IsArray() {
		return interview.Evaluation{}, fmt.Errorf("model reply missing justifications array")
	}

	var evaluation interview.Evaluation
	for i, item := range scores.Array() {
		if item.Type != gjson.Number || item.Num != math.Trunc(item.Num) {
			return interview.Evaluation{}, fmt.Errorf("score %d is not an integer: %s", i, item.Raw)
		}
		evaluation.Scores = append(evaluation.Scores, int(item.Int()))
	}
	for i, item := range justifications.Array() {
		if item.Type != gjson.String {
			return interview.Evaluation{}, fmt.Errorf("justification %d is not a string: %s", i, item.Raw)
		}
		evaluation.Justifications = append(evaluation.Justifications, item.String())
	}
	evaluation.OverallFeedback = doc.Get("overall_feedback").String()
	return evaluation, nil
}
