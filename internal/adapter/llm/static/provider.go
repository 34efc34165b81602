// Package static provides a canned review provider. It needs no credentials
// and no network, which makes it useful for wiring checks and local runs.
package static

import (
	"context"
	"strings"

	"github.com/chiefai/reviewer/internal/usecase/review"
)

const providerName = "static"

const cannedResponse = `{
  "summary": "Static review used for wiring checks. No analysis was performed.",
  "file_type": "GENERAL",
  "files": [
    {
      "filename": "%FILE%",
      "issues": []
    }
  ],
  "verdict": "APPROVE",
  "score": 100
}`

// Provider always returns the same clean review.
type Provider struct {
	model string
}

// NewProvider constructs a static Provider.
func NewProvider(model string) *Provider {
	return &Provider{model: model}
}

// ReviewCode returns the canned response regardless of input.
func (p *Provider) ReviewCode(ctx context.Context, diff string, pc review.ProviderContext) (string, error) {
	return strings.ReplaceAll(cannedResponse, "%FILE%", pc.Filename), nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Model() string { return p.model }
