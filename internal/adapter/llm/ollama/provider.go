package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chiefai/reviewer/internal/adapter/llm"
	"github.com/chiefai/reviewer/internal/usecase/review"
)

const (
	providerName = "ollama"

	// Local models can be slow.
	defaultTimeout = 120 * time.Second

	numPredict  = 4096
	temperature = 0.2
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

// Provider reviews diffs through a local Ollama server's chat API.
type Provider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewProvider constructs a Provider against the supplied Ollama base URL.
func NewProvider(baseURL, model string) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// SetTimeout bounds a single review call.
func (p *Provider) SetTimeout(timeout time.Duration) {
	p.client.Timeout = timeout
}

// ReviewCode sends one file's diff for review and returns the raw response
// text. Callers parse it against the JSON contract.
func (p *Provider) ReviewCode(ctx context.Context, diff string, pc review.ProviderContext) (string, error) {
	prompt := llm.BuildReviewPrompt(llm.PromptInput{
		Repo:     pc.Repo,
		Title:    pc.Title,
		Filename: pc.Filename,
		Diff:     diff,
	})

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: llm.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: false,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": numPredict,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return "", fmt.Errorf("ollama server not reachable at %s, is it running?: %w", p.baseURL, err)
		}
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("ollama: %s, pull it with: ollama pull %s", msg, p.model)
		}
		return "", fmt.Errorf("ollama API error: %s", msg)
	}

	if parsed.Message.Content == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return parsed.Message.Content, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Model() string { return p.model }
