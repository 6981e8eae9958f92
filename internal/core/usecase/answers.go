package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

const syntheticWordsPerSecond = 2.5

// SyntheticAnswers fabricates plausible answers for automated demo runs from
// the question's model answer and expected keywords.
type SyntheticAnswers struct{}

func (SyntheticAnswers) Answer(_ context.Context, session *domain.InterviewSession, index int) (domain.RawResponse, *domain.NonVerbalInput, error) {
	if index < 0 || index >= len(session.Questions) {
		return domain.RawResponse{}, nil, domain.WrapError(domain.ErrValidation, "synthesize answer", fmt.Errorf("index %d out of range", index))
	}
	q := session.Questions[index]

	text := strings.TrimSpace(q.ModelAnswer)
	if text == "" && len(q.ExpectedKeywords) > 0 {
		text = "In my recent work I focused on " + strings.Join(q.ExpectedKeywords, ", ") + "."
	}
	if text == "" {
		text = "I would clarify the goal, agree on constraints with the team, deliver in small steps and review the outcome."
	}

	duration := float64(len(strings.Fields(text))) / syntheticWordsPerSecond
	confidence := 7.5
	return domain.RawResponse{
			Text:            text,
			DurationSeconds: &duration,
			Confidence:      &confidence,
		}, &domain.NonVerbalInput{
			EyeContact:        7,
			Posture:           7,
			Gestures:          6,
			FacialExpressions: 7,
			SpeakingPace:      7,
			Notes:             "synthetic delivery profile",
		}, nil
}
