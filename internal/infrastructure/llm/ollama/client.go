package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Phani130825/ask-a-coach/internal/infrastructure/resilience"
)

const generatePath = "/api/generate"

// Client talks to an Ollama server's /api/generate endpoint in JSON mode.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Model() string {
	return c.model
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// GenerateJSON implements llm.JSONGenerator.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Format:  "json",
		Options: generateOptions{Temperature: 0.2},
	}

	var out generateResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, generatePath, req, &out, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", resilience.Settle("ollama generate", err, classifyOllamaError)
	}
	return strings.TrimSpace(out.Response), nil
}

// classifyOllamaError treats 4xx answers other than 408/429 as caller faults:
// the model or prompt is wrong and the server itself is healthy.
func classifyOllamaError(err error) resilience.Verdict {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return resilience.Transient
		}
		if statusErr.StatusCode >= 500 {
			return resilience.Transient
		}
		return resilience.CallerFault
	}
	return resilience.Classify(err, nil)
}
