package githubapp

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	// assertionClockSkew backdates the issued-at claim to tolerate clock
	// drift between us and the host API.
	assertionClockSkew = 60 * time.Second

	// assertionLifetime is the hard cap GitHub enforces on App JWTs.
	assertionLifetime = 10 * time.Minute

	// tokenValidityMargin is how much remaining life a cached installation
	// token must have to be served without a refresh.
	tokenValidityMargin = 5 * time.Minute

	// tokenLifetime is the assumed validity of a freshly minted installation
	// token, slightly under the one hour GitHub grants.
	tokenLifetime = 3500 * time.Second
)

var authLogger = log.WithField("package", "githubapp")

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// AppAuth authenticates as an installed GitHub App. It mints short-lived
// signed assertions for the App itself and exchanges them for per-repository
// installation tokens, caching the tokens until close to expiry.
type AppAuth struct {
	appID      string
	privateKey *rsa.PrivateKey
	keyErr     error
	baseURL    string
	httpClient *http.Client
	now        func() time.Time

	// mu guards the token cache map only. It is never held across a network
	// call, so two goroutines missing the cache for the same repository can
	// both refresh. Each refresh is independently valid, so the duplicate
	// work is accepted.
	mu     sync.Mutex
	tokens map[string]cachedToken
}

// NewAppAuth builds an AppAuth from the App id and PEM private key. Literal
// \n sequences in the key (the dotenv convention) are converted to newlines.
// Missing or malformed credentials are reported on first use, not here.
func NewAppAuth(appID, privateKeyPEM, baseURL string) *AppAuth {
	a := &AppAuth{
		appID:      appID,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
		tokens:     make(map[string]cachedToken),
	}
	if a.baseURL == "" {
		a.baseURL = "https://api.github.com"
	}

	if privateKeyPEM != "" {
		pem := strings.ReplaceAll(privateKeyPEM, `\n`, "\n")
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
		if err != nil {
			a.keyErr = err
		} else {
			a.privateKey = key
		}
	}
	return a
}

// SetHTTPClient replaces the HTTP client (for testing).
func (a *AppAuth) SetHTTPClient(c *http.Client) { a.httpClient = c }

// SetNowFunc replaces the clock (for testing).
func (a *AppAuth) SetNowFunc(now func() time.Time) { a.now = now }

// MintAssertion signs a fresh App-level JWT. Assertions are never cached;
// every caller gets a new one with issued-at backdated by the skew tolerance
// and expiry at the host-enforced ten minute cap.
func (a *AppAuth) MintAssertion() (string, error) {
	if a.appID == "" || (a.privateKey == nil && a.keyErr == nil) {
		return "", &AuthConfigError{Reason: "app id and private key must both be set"}
	}
	if a.keyErr != nil {
		return "", &AuthConfigError{Reason: fmt.Sprintf("parse private key: %v", a.keyErr)}
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-assertionClockSkew)),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		Issuer:    a.appID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign app assertion: %w", err)
	}
	return signed, nil
}

// InstallationToken returns a live installation token for owner/repo,
// serving from cache while the entry has more than five minutes of validity
// left and refreshing through the host API otherwise.
func (a *AppAuth) InstallationToken(ctx context.Context, owner, repo string) (string, error) {
	cacheKey := owner + "/" + repo

	a.mu.Lock()
	entry, ok := a.tokens[cacheKey]
	a.mu.Unlock()
	if ok && a.now().Add(tokenValidityMargin).Before(entry.expiresAt) {
		return entry.token, nil
	}

	installationID, err := a.lookupInstallationID(ctx, owner, repo)
	if err != nil {
		return "", err
	}

	token, err := a.exchangeInstallationToken(ctx, installationID)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.tokens[cacheKey] = cachedToken{token: token, expiresAt: a.now().Add(tokenLifetime)}
	a.mu.Unlock()

	authLogger.WithField("repo", cacheKey).Info("minted new installation token")
	return token, nil
}

// lookupInstallationID resolves the App installation for a repository.
func (a *AppAuth) lookupInstallationID(ctx context.Context, owner, repo string) (int64, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/installation", a.baseURL, owner, repo)

	body, status, err := a.appRequest(ctx, http.MethodGet, url)
	if err != nil {
		return 0, err
	}
	if status == http.StatusNotFound {
		return 0, &AppNotInstalledError{Owner: owner, Repo: repo}
	}
	if status < 200 || status >= 300 {
		return 0, &APIError{StatusCode: status, Body: string(body)}
	}

	var payload struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode installation lookup: %w", err)
	}
	return payload.ID, nil
}

// exchangeInstallationToken trades the installation id for an access token.
func (a *AppAuth) exchangeInstallationToken(ctx context.Context, installationID int64) (string, error) {
	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, installationID)

	body, status, err := a.appRequest(ctx, http.MethodPost, url)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &APIError{StatusCode: status, Body: string(body)}
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode access token response: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("access token response contained no token")
	}
	return payload.Token, nil
}

// appRequest performs one call authenticated with a fresh App assertion.
func (a *AppAuth) appRequest(ctx context.Context, method, url string) ([]byte, int, error) {
	assertion, err := a.MintAssertion()
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+assertion)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("github app auth call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read auth response: %w", err)
	}
	return body, resp.StatusCode, nil
}
