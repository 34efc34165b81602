package githubapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chiefai/reviewer/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second

	// maxAttempts is the total number of tries for a rate-limited call.
	maxAttempts = 3

	// defaultRetryAfter is used when a 429 arrives without a Retry-After
	// header.
	defaultRetryAfter = 5 * time.Second

	// statusDescriptionLimit is the host-enforced cap on commit status
	// descriptions.
	statusDescriptionLimit = 140

	filesPerPage = 100
)

var clientLogger = log.WithField("package", "githubapp")

// TokenSource supplies per-repository installation tokens.
type TokenSource interface {
	InstallationToken(ctx context.Context, owner, repo string) (string, error)
}

// Client calls the GitHub REST API with installation-token injection and
// rate-limit-aware retry. 429 responses are retried after the advertised
// Retry-After delay up to three total attempts; every other failure surfaces
// immediately.
type Client struct {
	auth       TokenSource
	baseURL    string
	httpClient *http.Client
	sleep      func(time.Duration)
}

// NewClient creates a GitHub API client backed by the given token source.
func NewClient(auth TokenSource, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Client{
		auth:       auth,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		sleep:      time.Sleep,
	}
}

// SetHTTPClient replaces the HTTP client (for testing).
func (c *Client) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// SetSleepFunc replaces the retry sleeper (for testing).
func (c *Client) SetSleepFunc(sleep func(time.Duration)) { c.sleep = sleep }

// Response is the outcome of a successful API call.
type Response struct {
	StatusCode int
	Body       []byte
}

// Request performs one authenticated API call. The owner/repo pair selects
// the installation token; body, when non-nil, is sent as JSON.
func (c *Client) Request(ctx context.Context, method, url, owner, repo string, body any) (*Response, error) {
	token, err := c.auth.InstallationToken(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("fetch installation token: %w", err)
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("github api call %s %s: %w", method, url, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryAfter(resp.Header)
			clientLogger.WithFields(log.Fields{
				"attempt": attempt,
				"delay":   delay,
			}).Warn("github api rate limit exceeded, backing off")
			if attempt < maxAttempts {
				c.sleep(delay)
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
	}

	return nil, &RateLimitError{Attempts: maxAttempts}
}

func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

// ListPullRequestFiles fetches the changed files for a pull request, following
// pages of up to 100 entries until the listing is exhausted.
func (c *Client) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]domain.PRFile, error) {
	var all []domain.PRFile
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			c.baseURL, owner, repo, number, filesPerPage, page)

		resp, err := c.Request(ctx, http.MethodGet, url, owner, repo, nil)
		if err != nil {
			return nil, err
		}

		var batch []domain.PRFile
		if err := json.Unmarshal(resp.Body, &batch); err != nil {
			return nil, fmt.Errorf("decode pull request files: %w", err)
		}
		all = append(all, batch...)

		if len(batch) < filesPerPage {
			return all, nil
		}
	}
}

// CreatePullRequestReview posts a review with an explicit disposition
// (APPROVE, COMMENT or REQUEST_CHANGES).
func (c *Client) CreatePullRequestReview(ctx context.Context, owner, repo string, number int, body string, verdict domain.Verdict) error {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", c.baseURL, owner, repo, number)
	payload := map[string]string{
		"body":  body,
		"event": string(verdict),
	}

	if _, err := c.Request(ctx, http.MethodPost, url, owner, repo, payload); err != nil {
		return err
	}
	clientLogger.WithFields(log.Fields{
		"repo":    owner + "/" + repo,
		"pr":      number,
		"verdict": verdict,
	}).Info("posted pull request review")
	return nil
}

// CreateCommitStatus sets the commit status shown on the PR. The description
// is truncated to the host limit. A 403 means the App lacks status-write
// permission; that must not abort the review pipeline, so it is logged and
// swallowed.
func (c *Client) CreateCommitStatus(ctx context.Context, owner, repo, sha, state, description, statusContext string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/statuses/%s", c.baseURL, owner, repo, sha)
	payload := map[string]string{
		"state":       state,
		"description": truncate(description, statusDescriptionLimit),
		"context":     statusContext,
	}

	_, err := c.Request(ctx, http.MethodPost, url, owner, repo, payload)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
			clientLogger.WithField("sha", sha).Warn(
				"skipping commit status: app lacks commit status write permission")
			return nil
		}
		return err
	}

	clientLogger.WithFields(log.Fields{
		"sha":   sha,
		"state": state,
	}).Info("set commit status")
	return nil
}

// truncate shortens s to limit characters. The cut is rune-based so a
// multi-byte character on the boundary never produces invalid UTF-8.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
