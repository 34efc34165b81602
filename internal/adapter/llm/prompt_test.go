package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReviewPromptContainsInputs(t *testing.T) {
	prompt := BuildReviewPrompt(PromptInput{
		Repo:     "acme/widgets",
		Title:    "Add payment retries",
		Filename: "internal/pay/retry.go",
		Diff:     "+func Retry() {}",
	})

	assert.Contains(t, prompt, "acme/widgets")
	assert.Contains(t, prompt, "Add payment retries")
	assert.Contains(t, prompt, "`internal/pay/retry.go`")
	assert.Contains(t, prompt, "+func Retry() {}")
}

func TestBuildReviewPromptStatesTheContract(t *testing.T) {
	prompt := BuildReviewPrompt(PromptInput{Filename: "a.go"})

	// The verdict, severity, and score vocabulary must be spelled out so
	// the response parser has something to hold the model to.
	for _, token := range []string{
		"REQUEST_CHANGES", "APPROVE", "COMMENT",
		"CRITICAL", "SUGGESTION",
		`"score"`, `"verdict"`, `"issues"`,
	} {
		assert.Contains(t, prompt, token)
	}

	// The output template names the file under review.
	assert.Contains(t, prompt, `"filename": "a.go"`)
}
