package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiefai/reviewer/internal/usecase/review"
)

func TestReviewCodeSendsChatCompletion(t *testing.T) {
	var captured chatRequest
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content": "{\"verdict\": \"APPROVE\"}"}}]}`))
	}))
	defer server.Close()

	p := NewProvider("sk-test", "gpt-4o")
	p.SetBaseURL(server.URL)

	raw, err := p.ReviewCode(context.Background(), "+x := 1", review.ProviderContext{
		Repo:     "acme/widgets",
		Title:    "tidy",
		Filename: "a.go",
	})
	require.NoError(t, err)
	assert.Contains(t, raw, "APPROVE")

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o", captured.Model)
	assert.Equal(t, maxTokens, captured.MaxTokens)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "+x := 1")
	assert.Contains(t, captured.Messages[1].Content, "a.go")
}

func TestReviewCodeSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	p := NewProvider("sk-bad", "gpt-4o")
	p.SetBaseURL(server.URL)

	_, err := p.ReviewCode(context.Background(), "+x", review.ProviderContext{Filename: "a.go"})
	assert.ErrorContains(t, err, "Incorrect API key")
	assert.ErrorContains(t, err, "401")
}

func TestReviewCodeRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	p := NewProvider("sk-test", "gpt-4o")
	p.SetBaseURL(server.URL)

	_, err := p.ReviewCode(context.Background(), "+x", review.ProviderContext{Filename: "a.go"})
	assert.ErrorContains(t, err, "no choices")
}

func TestProviderIdentity(t *testing.T) {
	p := NewProvider("k", "gpt-4o")
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4o", p.Model())
}
