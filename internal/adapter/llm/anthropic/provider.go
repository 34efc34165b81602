package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chiefai/reviewer/internal/adapter/llm"
	"github.com/chiefai/reviewer/internal/usecase/review"
)

const (
	providerName = "anthropic"
	maxTokens    = 4096
	temperature  = 0.2
)

// messagesAPI abstracts the slice of the Anthropic SDK we call.
type messagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Provider reviews diffs through the Anthropic Messages API.
type Provider struct {
	messages messagesAPI
	model    string
}

// NewProvider constructs a Provider for the supplied model.
func NewProvider(apiKey, model string) *Provider {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Provider{
		messages: &client.Messages,
		model:    model,
	}
}

// SetMessagesAPI replaces the SDK client, for tests.
func (p *Provider) SetMessagesAPI(m messagesAPI) {
	p.messages = m
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

	msg, err := p.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: llm.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message create: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in anthropic response")
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Model() string { return p.model }
