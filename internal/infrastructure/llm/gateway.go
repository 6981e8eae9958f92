// Package llm turns a JSON-producing language model into the AI gateway used
// by tailoring and interviews. Provider clients live in subpackages.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

// JSONGenerator sends a prompt and returns the model's raw JSON text.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type Gateway struct {
	gen     JSONGenerator
	schemas schemas
	logger  *zap.Logger
}

func NewGateway(gen JSONGenerator, logger *zap.Logger) (*Gateway, error) {
	if gen == nil {
		return nil, fmt.Errorf("llm gateway requires a generator")
	}
	s, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{gen: gen, schemas: s, logger: logger}, nil
}

type questionsEnvelope struct {
	Questions []struct {
		Question         string   `json:"question"`
		Category         string   `json:"category"`
		Difficulty       string   `json:"difficulty"`
		ExpectedKeywords []string `json:"expected_keywords"`
		ModelAnswer      string   `json:"model_answer"`
	} `json:"questions"`
}

func (g *Gateway) Tailor(ctx context.Context, req domain.TailorRequest) (domain.TailoredContent, error) {
	var out domain.TailoredContent
	if err := g.call(ctx, "tailor", buildTailorPrompt(req), g.schemas.tailor, &out); err != nil {
		return domain.TailoredContent{}, err
	}
	out.Experience = nonNil(out.Experience)
	out.Skills = nonNil(out.Skills)
	out.Keywords = nonNil(out.Keywords)
	out.Suggestions = nonNil(out.Suggestions)
	return out, nil
}

func (g *Gateway) GenerateQuestions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	var env questionsEnvelope
	if err := g.call(ctx, "generate_questions", buildQuestionsPrompt(req), g.schemas.questions, &env); err != nil {
		return nil, err
	}
	items := env.Questions
	if req.Count > 0 && len(items) > req.Count {
		items = items[:req.Count]
	}
	out := make([]domain.Question, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Question)
		if text == "" {
			continue
		}
		category := strings.TrimSpace(item.Category)
		if category == "" {
			category = string(req.InterviewType)
		}
		out = append(out, domain.Question{
			Text:             text,
			Category:         category,
			Difficulty:       domain.NormalizeDifficulty(item.Difficulty),
			ExpectedKeywords: nonNil(item.ExpectedKeywords),
			ModelAnswer:      strings.TrimSpace(item.ModelAnswer),
		})
	}
	if len(out) == 0 {
		return nil, domain.WrapError(domain.ErrGatewayUnavailable, "generate_questions", fmt.Errorf("model returned no usable questions"))
	}
	if req.Count > 0 && len(out) < req.Count {
		g.logger.Warn("gateway_short_question_set",
			zap.String("interview_type", string(req.InterviewType)),
			zap.Int("requested", req.Count),
			zap.Int("returned", len(out)),
		)
	}
	return out, nil
}

func (g *Gateway) EvaluateResponse(ctx context.Context, req domain.EvaluationRequest) (domain.Evaluation, error) {
	var out domain.Evaluation
	if err := g.call(ctx, "evaluate_response", buildEvaluationPrompt(req), g.schemas.evaluation, &out); err != nil {
		return domain.Evaluation{}, err
	}
	out.Suggestions = nonNil(out.Suggestions)
	return out, nil
}

func (g *Gateway) AnalyzeNonVerbal(ctx context.Context, input domain.NonVerbalInput) (domain.NonVerbalEvaluation, error) {
	var out domain.NonVerbalEvaluation
	if err := g.call(ctx, "analyze_non_verbal", buildNonVerbalPrompt(input), g.schemas.nonVerbal, &out); err != nil {
		return domain.NonVerbalEvaluation{}, err
	}
	return out, nil
}

// call runs one prompt and decodes the validated JSON into out. Every failure
// is reported as ErrGatewayUnavailable; callers never see a partial result.
func (g *Gateway) call(ctx context.Context, operation, prompt string, schema *gojsonschema.Schema, out any) error {
	raw, err := g.gen.GenerateJSON(ctx, prompt)
	if err != nil {
		return domain.WrapError(domain.ErrGatewayUnavailable, operation, err)
	}
	body := []byte(extractJSONObject(raw))
	if err := validate(schema, operation, body); err != nil {
		g.logger.Warn("gateway_invalid_response", zap.String("operation", operation), zap.Error(err))
		return domain.WrapError(domain.ErrGatewayUnavailable, operation, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.WrapError(domain.ErrGatewayUnavailable, operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// extractJSONObject strips markdown fences and surrounding prose.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
