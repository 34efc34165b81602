// Package groq reviews diffs through Groq's hosted models. The API is
// wire-compatible with OpenAI chat completions, only the host and model
// roster differ.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chiefai/reviewer/internal/adapter/llm"
	"github.com/chiefai/reviewer/internal/usecase/review"
)

const (
	providerName   = "groq"
	defaultBaseURL = "https://api.groq.com/openai"
	defaultTimeout = 60 * time.Second
	maxTokens      = 4096
	temperature    = 0.2
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Provider implements the review Provider port against Groq.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewProvider constructs a Provider for the supplied model.
func NewProvider(apiKey, model string) *Provider {
	return &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// SetBaseURL points the provider at a different endpoint, for tests.
func (p *Provider) SetBaseURL(url string) {
	p.baseURL = url
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
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq chat completion: %w", err)
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
		if parsed.Error != nil {
			return "", fmt.Errorf("groq API error (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("groq API error (%d)", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in groq response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Model() string { return p.model }
