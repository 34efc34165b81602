package githubapp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrivateKeyPEM(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	return string(pem.EncodeToMemory(block)), key
}

func TestMintAssertionClaims(t *testing.T) {
	pemKey, key := testPrivateKeyPEM(t)

	auth := NewAppAuth("12345", pemKey, "")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	auth.SetNowFunc(func() time.Time { return now })

	assertion, err := auth.MintAssertion()
	require.NoError(t, err)

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(assertion, &claims, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)

	assert.Equal(t, "12345", claims.Issuer)
	assert.Equal(t, now.Add(-60*time.Second).Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(10*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestMintAssertionIsNeverCached(t *testing.T) {
	pemKey, _ := testPrivateKeyPEM(t)
	auth := NewAppAuth("12345", pemKey, "")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	auth.SetNowFunc(func() time.Time { return now })
	first, err := auth.MintAssertion()
	require.NoError(t, err)

	now = now.Add(time.Second)
	second, err := auth.MintAssertion()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestMintAssertionRequiresConfiguration(t *testing.T) {
	tests := []struct {
		name string
		auth *AppAuth
	}{
		{"missing app id", func() *AppAuth { pem, _ := testPrivateKeyPEM(t); return NewAppAuth("", pem, "") }()},
		{"missing key", NewAppAuth("12345", "", "")},
		{"garbage key", NewAppAuth("12345", "not a pem", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.auth.MintAssertion()
			var cfgErr *AuthConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.False(t, cfgErr.Retryable())
		})
	}
}

// authTestServer fakes the two App-auth endpoints and counts hits.
func authTestServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/installation", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"id": 42}`))
	})
	mux.HandleFunc("POST /app/installations/42/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"token": "ghs_testtoken"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestInstallationTokenCacheLifecycle(t *testing.T) {
	pemKey, _ := testPrivateKeyPEM(t)
	srv, calls := authTestServer(t)

	auth := NewAppAuth("12345", pemKey, srv.URL)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	auth.SetNowFunc(func() time.Time { return now })

	// First use: installation lookup plus token exchange.
	token, err := auth.InstallationToken(t.Context(), "acme", "widgets")
	require.NoError(t, err)
	assert.Equal(t, "ghs_testtoken", token)
	assert.EqualValues(t, 2, calls.Load())

	// The cached entry expires at start+3500s, so any call before
	// start+3200s stays within the five minute validity margin.
	for _, offset := range []time.Duration{0, time.Hour / 2, 3199 * time.Second} {
		now = start.Add(offset)
		token, err = auth.InstallationToken(t.Context(), "acme", "widgets")
		require.NoError(t, err)
		assert.Equal(t, "ghs_testtoken", token)
		assert.EqualValues(t, 2, calls.Load(), "cached token should be served with zero network calls")
	}

	// At start+3200s the margin is gone: exactly one refresh happens.
	now = start.Add(3200 * time.Second)
	_, err = auth.InstallationToken(t.Context(), "acme", "widgets")
	require.NoError(t, err)
	assert.EqualValues(t, 4, calls.Load())
}

func TestInstallationTokenAppNotInstalled(t *testing.T) {
	pemKey, _ := testPrivateKeyPEM(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	auth := NewAppAuth("12345", pemKey, srv.URL)

	_, err := auth.InstallationToken(t.Context(), "acme", "ghost")
	var notInstalled *AppNotInstalledError
	require.ErrorAs(t, err, &notInstalled)
	assert.Equal(t, "acme", notInstalled.Owner)
	assert.Equal(t, "ghost", notInstalled.Repo)
	assert.False(t, notInstalled.Retryable())
}

func TestInstallationTokenUpstreamFailure(t *testing.T) {
	pemKey, _ := testPrivateKeyPEM(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	auth := NewAppAuth("12345", pemKey, srv.URL)

	_, err := auth.InstallationToken(t.Context(), "acme", "widgets")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.True(t, apiErr.Retryable())
}
