package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

// CachedGateway memoizes tailoring and question generation, which are pure
// functions of their request. Evaluations always go to the model.
type CachedGateway struct {
	next  ports.AIGateway
	cache *cache.Cache
}

func NewCachedGateway(next ports.AIGateway, ttl time.Duration) *CachedGateway {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedGateway{
		next:  next,
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (c *CachedGateway) Tailor(ctx context.Context, req domain.TailorRequest) (domain.TailoredContent, error) {
	key := cacheKey("tailor", req)
	if v, ok := c.cache.Get(key); ok {
		return v.(domain.TailoredContent), nil
	}
	out, err := c.next.Tailor(ctx, req)
	if err != nil {
		return domain.TailoredContent{}, err
	}
	c.cache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}

func (c *CachedGateway) GenerateQuestions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	key := cacheKey("questions", req)
	if v, ok := c.cache.Get(key); ok {
		return copyQuestions(v.([]domain.Question)), nil
	}
	out, err := c.next.GenerateQuestions(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, copyQuestions(out), cache.DefaultExpiration)
	return out, nil
}

func (c *CachedGateway) EvaluateResponse(ctx context.Context, req domain.EvaluationRequest) (domain.Evaluation, error) {
	return c.next.EvaluateResponse(ctx, req)
}

func (c *CachedGateway) AnalyzeNonVerbal(ctx context.Context, input domain.NonVerbalInput) (domain.NonVerbalEvaluation, error) {
	return c.next.AnalyzeNonVerbal(ctx, input)
}

func cacheKey(kind string, req any) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return kind + ":" + hex.EncodeToString(sum[:])
}

func copyQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		q.ExpectedKeywords = append([]string(nil), q.ExpectedKeywords...)
		out[i] = q
	}
	return out
}
