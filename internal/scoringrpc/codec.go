package scoringrpc

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rbright/parley/internal/interview"
)

const (
	fieldTranscript     = "transcript"
	fieldInterviewType  = "interviewType"
	fieldScores         = "scores"
	fieldJustifications = "justifications"
	fieldFeedback       = "overall_feedback"
)

func encodeRequest(transcript, interviewType string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldTranscript:    transcript,
		fieldInterviewType: interviewType,
	})
}

func decodeRequest(in *structpb.Struct) (string, string, error) {
	if in == nil {
		return "", "", errors.New("request is empty")
	}
	fields := in.GetFields()
	transcript := fields[fieldTranscript].GetStringValue()
	if transcript == "" {
		return "", "", errors.New("transcript is required")
	}
	return transcript, fields[fieldInterviewType].GetStringValue(), nil
}

func encodeEvaluation(evaluation interview.Evaluation) (*structpb.Struct, error) {
	scores := make([]any, len(evaluation.Scores))
	for i, score := range evaluation.Scores {
		scores[i] = float64(score)
	}
	justifications := make([]any, len(evaluation.Justifications))
	for i, text := range evaluation.Justifications {
		justifications[i] = text
	}
	return structpb.NewStruct(map[string]any{
		fieldScores:         scores,
		fieldJustifications: justifications,
		fieldFeedback:       evaluation.OverallFeedback,
	})
}

func decodeEvaluation(out *structpb.Struct) (interview.Evaluation, error) {
	fields := out.GetFields()
	var evaluation interview.Evaluation

	for i, value := range fields[fieldScores].GetListValue().GetValues() {
		number, ok := value.GetKind().(*structpb.Value_NumberValue)
		if !ok || number.NumberValue != math.Trunc(number.NumberValue) {
			return interview.Evaluation{}, fmt.Errorf("scores[%d] is not an integer", i)
		}
		evaluation.Scores = append(evaluation.Scores, int(number.NumberValue))
	}
	for i, value := range fields[fieldJustifications].GetListValue().GetValues() {
		text, ok := value.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return interview.Evaluation{}, fmt.Errorf("justifications[%d] is not a string", i)
		}
		evaluation.Justifications = append(evaluation.Justifications, text.StringValue)
	}
	evaluation.OverallFeedback = fields[fieldFeedback].GetStringValue()
	return evaluation, nil
}
