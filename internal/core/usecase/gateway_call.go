package usecase

import (
	"context"
	"time"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

// Clock supplies wall time to the timing-agnostic domain model.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}

const defaultGatewayTimeout = 60 * time.Second

// gatewayCaller bounds every gateway call with a deadline and reports any
// failure, timeouts included, as ErrGatewayUnavailable.
type gatewayCaller struct {
	gateway ports.AIGateway
	timeout time.Duration
}

func newGatewayCaller(gateway ports.AIGateway, timeout time.Duration) gatewayCaller {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return gatewayCaller{gateway: gateway, timeout: timeout}
}

func (c gatewayCaller) tailor(ctx context.Context, req domain.TailorRequest) (domain.TailoredContent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := c.gateway.Tailor(ctx, req)
	if err != nil {
		return domain.TailoredContent{}, gatewayFailure("tailor", err)
	}
	return out, nil
}

func (c gatewayCaller) generateQuestions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := c.gateway.GenerateQuestions(ctx, req)
	if err != nil {
		return nil, gatewayFailure("generate questions", err)
	}
	return out, nil
}

func (c gatewayCaller) evaluateResponse(ctx context.Context, req domain.EvaluationRequest) (domain.Evaluation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := c.gateway.EvaluateResponse(ctx, req)
	if err != nil {
		return domain.Evaluation{}, gatewayFailure("evaluate response", err)
	}
	return out, nil
}

func (c gatewayCaller) analyzeNonVerbal(ctx context.Context, input domain.NonVerbalInput) (domain.NonVerbalEvaluation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := c.gateway.AnalyzeNonVerbal(ctx, input)
	if err != nil {
		return domain.NonVerbalEvaluation{}, gatewayFailure("analyze non-verbal", err)
	}
	return out, nil
}

// evaluateAnswer runs the gateway evaluations for one answer. Non-verbal
// analysis only happens when delivery data was supplied.
func (c gatewayCaller) evaluateAnswer(
	ctx context.Context,
	session *domain.InterviewSession,
	index int,
	raw domain.RawResponse,
	nonVerbal *domain.NonVerbalInput,
) (domain.Evaluation, *domain.NonVerbalEvaluation, error) {
	q := session.Questions[index]
	eval, err := c.evaluateResponse(ctx, domain.EvaluationRequest{
		InterviewType:    session.Type,
		Question:         q.Text,
		Answer:           raw.Text,
		ExpectedKeywords: q.ExpectedKeywords,
		ModelAnswer:      q.ModelAnswer,
	})
	if err != nil {
		return domain.Evaluation{}, nil, err
	}
	if nonVerbal == nil {
		return eval, nil, nil
	}
	nv, err := c.analyzeNonVerbal(ctx, *nonVerbal)
	if err != nil {
		return domain.Evaluation{}, nil, err
	}
	return eval, &nv, nil
}

func gatewayFailure(op string, err error) error {
	if domain.IsKind(err, domain.ErrGatewayUnavailable) {
		return err
	}
	return domain.WrapError(domain.ErrGatewayUnavailable, op, err)
}
