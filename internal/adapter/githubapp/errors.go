package githubapp

import "fmt"

// RetryClassifier is implemented by errors that know whether a queued review
// run should be retried after they occur. The task queue consults this
// instead of guessing from error text.
type RetryClassifier interface {
	Retryable() bool
}

// AuthConfigError means the App id or private key is missing or unusable.
// Fatal on first use: no amount of retrying will fix configuration.
type AuthConfigError struct {
	Reason string
}

func (e *AuthConfigError) Error() string {
	return fmt.Sprintf("github app auth is not configured: %s", e.Reason)
}

// Retryable implements RetryClassifier.
func (e *AuthConfigError) Retryable() bool { return false }

// AppNotInstalledError means the host reported no App installation for the
// repository (HTTP 404 on the installation lookup).
type AppNotInstalledError struct {
	Owner string
	Repo  string
}

func (e *AppNotInstalledError) Error() string {
	return fmt.Sprintf("github app is not installed on %s/%s", e.Owner, e.Repo)
}

// Retryable implements RetryClassifier. Installing the App is a human action;
// redelivering the webhook will not help.
func (e *AppNotInstalledError) Retryable() bool { return false }

// RateLimitError means every attempt against the host API came back 429.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github api rate limit still exceeded after %d attempts", e.Attempts)
}

// Retryable implements RetryClassifier.
func (e *RateLimitError) Retryable() bool { return true }

// APIError is a non-2xx, non-429 response from the host API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error: HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable implements RetryClassifier. Upstream failures surface immediately
// from the client; the queue decides whether to run the review again.
func (e *APIError) Retryable() bool { return true }
