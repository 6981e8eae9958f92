package llm

import (
	"context"
	"fmt"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

// Unavailable is the gateway used when no model provider is configured.
type Unavailable struct{}

var errNoProvider = fmt.Errorf("no ai provider configured")

func (Unavailable) Tailor(context.Context, domain.TailorRequest) (domain.TailoredContent, error) {
	return domain.TailoredContent{}, domain.WrapError(domain.ErrGatewayUnavailable, "tailor", errNoProvider)
}

func (Unavailable) GenerateQuestions(context.Context, domain.QuestionRequest) ([]domain.Question, error) {
	return nil, domain.WrapError(domain.ErrGatewayUnavailable, "generate_questions", errNoProvider)
}

func (Unavailable) EvaluateResponse(context.Context, domain.EvaluationRequest) (domain.Evaluation, error) {
	return domain.Evaluation{}, domain.WrapError(domain.ErrGatewayUnavailable, "evaluate_response", errNoProvider)
}

func (Unavailable) AnalyzeNonVerbal(context.Context, domain.NonVerbalInput) (domain.NonVerbalEvaluation, error) {
	return domain.NonVerbalEvaluation{}, domain.WrapError(domain.ErrGatewayUnavailable, "analyze_non_verbal", errNoProvider)
}
