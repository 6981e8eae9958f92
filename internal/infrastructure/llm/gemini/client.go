package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Phani130825/ask-a-coach/internal/infrastructure/resilience"
)

const defaultModel = "gemini-2.5-flash"

// Generator calls the Gemini API with a JSON response MIME type.
type Generator struct {
	client    *genai.Client
	modelName string
	executor  *resilience.Executor
}

func NewGenerator(ctx context.Context, apiKey, model string, executor *resilience.Executor) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Generator{client: client, modelName: model, executor: executor}, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// GenerateJSON implements llm.JSONGenerator.
func (g *Generator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("gemini generator is not initialized")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	temperature := float32(0.2)
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	}

	var output string
	call := func(ctx context.Context) error {
		resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		output = strings.TrimSpace(resp.Text())
		if output == "" {
			return errEmptyResponse
		}
		return nil
	}

	var err error
	if g.executor != nil {
		err = g.executor.Execute(ctx, "gemini.generate", call, classifyGeminiError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", resilience.Settle("gemini generate", err, classifyGeminiError)
	}
	return output, nil
}

var errEmptyResponse = errors.New("gemini api returned empty response")

// classifyGeminiError retries rate limits, server-side failures and empty
// candidates, matched on the status text the API puts in its errors.
func classifyGeminiError(err error) resilience.Verdict {
	return resilience.Classify(err, func(err error) bool {
		if errors.Is(err, errEmptyResponse) {
			return true
		}
		msg := strings.ToLower(err.Error())
		for _, marker := range []string{"429", "resource_exhausted", "500", "502", "503", "504", "unavailable", "internal"} {
			if strings.Contains(msg, marker) {
				return true
			}
		}
		return false
	})
}
