package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/octokit/internal/auth"
	"github.com/fivetwenty-io/octokit/internal/constants"
	ghhttp "github.com/fivetwenty-io/octokit/internal/http"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	return key, pemBytes
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://api.github.com/user", nil)
	require.NoError(t, err)

	return req
}

type memoryPersister struct {
	appID     string
	token     string
	expiresAt time.Time
}

func (p *memoryPersister) UpdateInstallationToken(appID, token string, expiresAt time.Time) error {
	p.appID = appID
	p.token = token
	p.expiresAt = expiresAt

	return nil
}

var errDiskFull = errors.New("disk full")

type failingPersister struct{}

func (failingPersister) UpdateInstallationToken(appID, token string, expiresAt time.Time) error {
	return errDiskFull
}

func installationServer(t *testing.T, exchanges *atomic.Int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		assert.Equal(t, constants.MediaTypeMachineManPreview, r.Header.Get("Accept"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/app/installations":
			_, _ = w.Write([]byte(`[{"id":1,"app_id":42},{"id":7,"app_id":42},{"id":9,"app_id":5}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/app/installations/7/access_tokens":
			exchanges.Add(1)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"v1.installation","expires_at":"2099-01-01T00:00:00Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	}))
}

func TestSetup_Basic(t *testing.T) {
	t.Parallel()

	strategy, err := auth.Setup(context.Background(), octokit.AuthBasic,
		octokit.Credentials{Username: "octocat", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, octokit.AuthBasic, strategy.Scheme())
	assert.Nil(t, strategy.Headers())

	req := newRequest(t)
	require.NoError(t, strategy.Authenticate(context.Background(), req))

	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("octocat:hunter2"))
	assert.Equal(t, expected, req.Header.Get("Authorization"))
}

func TestSetup_Token(t *testing.T) {
	t.Parallel()

	strategy, err := auth.Setup(context.Background(), octokit.AuthToken, octokit.Credentials{Token: "abc123"})
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, strategy.Authenticate(context.Background(), req))
	assert.Equal(t, "token abc123", req.Header.Get("Authorization"))

	token, err := strategy.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token.AccessToken)
}

func TestSetup_None(t *testing.T) {
	t.Parallel()

	strategy, err := auth.Setup(context.Background(), octokit.AuthNone, octokit.Credentials{})
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, strategy.Authenticate(context.Background(), req))
	assert.Empty(t, req.Header.Get("Authorization"))

	token, err := strategy.Token()
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestSetup_MissingCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scheme octokit.AuthScheme
		creds  octokit.Credentials
		field  string
	}{
		{name: "basic without password", scheme: octokit.AuthBasic, creds: octokit.Credentials{Username: "u"}, field: "password"},
		{name: "basic without username", scheme: octokit.AuthBasic, creds: octokit.Credentials{Password: "p"}, field: "username"},
		{name: "token", scheme: octokit.AuthToken, field: "token"},
		{name: "app without key", scheme: octokit.AuthApp, creds: octokit.Credentials{AppID: "1"}, field: "private_key"},
		{name: "installation without app id", scheme: octokit.AuthInstallation, creds: octokit.Credentials{PrivateKey: []byte("k")}, field: "app_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			strategy, err := auth.Setup(context.Background(), tt.scheme, tt.creds)
			require.ErrorIs(t, err, octokit.ErrMissingCredential)
			assert.Nil(t, strategy)
			assert.Contains(t, err.Error(), tt.field)

			var authErr *octokit.AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, string(tt.scheme), authErr.Scheme)
		})
	}
}

func TestSetup_InvalidAppID(t *testing.T) {
	t.Parallel()

	_, err := auth.Setup(context.Background(), octokit.AuthApp,
		octokit.Credentials{AppID: "my-app", PrivateKey: []byte("key")})
	require.ErrorIs(t, err, octokit.ErrInvalidCredential)
	assert.Contains(t, err.Error(), "app_id must be numeric")
}

func TestSetup_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	_, err := auth.Setup(context.Background(), octokit.AuthScheme("oauth-device"), octokit.Credentials{})
	require.ErrorIs(t, err, octokit.ErrUnsupportedAuthScheme)
}

func TestSetup_App(t *testing.T) {
	t.Parallel()

	key, pemBytes := generateKey(t)
	now := time.Now().Truncate(time.Second)

	strategy, err := auth.Setup(context.Background(), octokit.AuthApp,
		octokit.Credentials{AppID: "42", PrivateKey: pemBytes},
		auth.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"accept": constants.MediaTypeMachineManPreview}, strategy.Headers())

	req := newRequest(t)
	require.NoError(t, strategy.Authenticate(context.Background(), req))

	header := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(header, "Bearer "))

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
		func(*jwt.Token) (interface{}, error) { return &key.PublicKey, nil })
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "RS256", parsed.Method.Alg())
	assert.Equal(t, "42", claims.Issuer)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(9*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestSetup_AppRenewsExpiredAssertion(t *testing.T) {
	t.Parallel()

	_, pemBytes := generateKey(t)

	var clock atomic.Int64

	clock.Store(time.Now().Add(-time.Hour).Unix())

	strategy, err := auth.Setup(context.Background(), octokit.AuthApp,
		octokit.Credentials{AppID: "42", PrivateKey: pemBytes},
		auth.WithClock(func() time.Time { return time.Unix(clock.Load(), 0) }))
	require.NoError(t, err)

	clock.Store(time.Now().Unix())

	renewed, err := strategy.Token()
	require.NoError(t, err)
	assert.True(t, renewed.Valid())

	again, err := strategy.Token()
	require.NoError(t, err)
	assert.Equal(t, renewed.AccessToken, again.AccessToken)
}

func TestSetup_AppInvalidKey(t *testing.T) {
	t.Parallel()

	_, err := auth.Setup(context.Background(), octokit.AuthApp,
		octokit.Credentials{AppID: "42", PrivateKey: []byte("not a key")})
	require.ErrorIs(t, err, constants.ErrPrivateKeyUnreadable)
}

func TestSetup_Installation(t *testing.T) {
	t.Parallel()

	_, pemBytes := generateKey(t)

	var exchanges atomic.Int32

	server := installationServer(t, &exchanges)
	defer server.Close()

	persister := &memoryPersister{}
	tokens := auth.NewConfigTokenManager(persister, "42", "", time.Time{})

	strategy, err := auth.Setup(context.Background(), octokit.AuthInstallation,
		octokit.Credentials{AppID: "42", PrivateKey: pemBytes},
		auth.WithTransport(ghhttp.NewClient(server.URL, nil)),
		auth.WithConfigTokenManager(tokens))
	require.NoError(t, err)

	assert.Equal(t, int64(7), strategy.InstallationID())
	assert.Equal(t, int32(1), exchanges.Load())
	assert.Equal(t, map[string]string{"accept": constants.MediaTypeMachineManPreview}, strategy.Headers())

	req := newRequest(t)
	require.NoError(t, strategy.Authenticate(context.Background(), req))
	assert.Equal(t, "token v1.installation", req.Header.Get("Authorization"))

	token, err := strategy.Token()
	require.NoError(t, err)
	assert.Equal(t, 2099, token.ExpiresAt.Year())

	assert.Equal(t, "42", persister.appID)
	assert.Equal(t, "v1.installation", persister.token)
}

func TestSetup_InstallationReusesPersistedToken(t *testing.T) {
	t.Parallel()

	_, pemBytes := generateKey(t)

	var exchanges atomic.Int32

	server := installationServer(t, &exchanges)
	defer server.Close()

	tokens := auth.NewConfigTokenManager(&memoryPersister{}, "42", "v1.saved", time.Now().Add(time.Hour))

	strategy, err := auth.Setup(context.Background(), octokit.AuthInstallation,
		octokit.Credentials{AppID: "42", PrivateKey: pemBytes},
		auth.WithTransport(ghhttp.NewClient(server.URL, nil)),
		auth.WithConfigTokenManager(tokens))
	require.NoError(t, err)
	assert.Equal(t, int32(0), exchanges.Load())

	req := newRequest(t)
	require.NoError(t, strategy.Authenticate(context.Background(), req))
	assert.Equal(t, "token v1.saved", req.Header.Get("Authorization"))
}

func TestSetup_InstallationNotFound(t *testing.T) {
	t.Parallel()

	_, pemBytes := generateKey(t)

	var exchanges atomic.Int32

	server := installationServer(t, &exchanges)
	defer server.Close()

	_, err := auth.Setup(context.Background(), octokit.AuthInstallation,
		octokit.Credentials{AppID: "99", PrivateKey: pemBytes},
		auth.WithTransport(ghhttp.NewClient(server.URL, nil)))
	require.ErrorIs(t, err, octokit.ErrNoMatchingInstallation)
	assert.Equal(t, int32(0), exchanges.Load())
}

func TestNewJWT(t *testing.T) {
	t.Parallel()

	key, pemBytes := generateKey(t)
	now := time.Unix(1_700_000_000, 0)

	signed, err := auth.NewJWT("12345", pemBytes, now)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(signed, claims,
		func(*jwt.Token) (interface{}, error) { return &key.PublicKey, nil },
		jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	assert.Equal(t, "12345", claims.Issuer)
	assert.Equal(t, int64(1_700_000_000), claims.IssuedAt.Unix())
	assert.Equal(t, int64(1_700_000_540), claims.ExpiresAt.Unix())
}

func TestConfigTokenManager(t *testing.T) {
	t.Parallel()

	var nilManager *auth.ConfigTokenManager
	assert.Nil(t, nilManager.Cached())

	expired := auth.NewConfigTokenManager(nil, "1", "old", time.Now().Add(-time.Minute))
	assert.Nil(t, expired.Cached())

	persister := &memoryPersister{}
	manager := auth.NewConfigTokenManager(persister, "1", "", time.Time{})
	assert.Nil(t, manager.Cached())

	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, manager.Save(&auth.Token{AccessToken: "fresh", ExpiresAt: expiresAt}))
	assert.Equal(t, "fresh", persister.token)
	assert.Equal(t, "fresh", manager.Cached().AccessToken)

	memoryOnly := auth.NewConfigTokenManager(nil, "1", "", time.Time{})
	require.NoError(t, memoryOnly.Save(&auth.Token{AccessToken: "kept", ExpiresAt: expiresAt}))
	assert.Equal(t, "kept", memoryOnly.Cached().AccessToken)

	failing := auth.NewConfigTokenManager(failingPersister{}, "1", "", time.Time{})
	require.ErrorIs(t, failing.Save(&auth.Token{AccessToken: "lost", ExpiresAt: expiresAt}), errDiskFull)
	assert.Nil(t, failing.Cached())
}

func TestSetup_InstallationPersistFailureIsLogged(t *testing.T) {
	t.Parallel()

	_, pemBytes := generateKey(t)

	var exchanges atomic.Int32

	server := installationServer(t, &exchanges)
	defer server.Close()

	logger, hook := logtest.NewNullLogger()

	strategy, err := auth.Setup(context.Background(), octokit.AuthInstallation,
		octokit.Credentials{AppID: "42", PrivateKey: pemBytes},
		auth.WithTransport(ghhttp.NewClient(server.URL, nil)),
		auth.WithConfigTokenManager(auth.NewConfigTokenManager(failingPersister{}, "42", "", time.Time{})),
		auth.WithLogger(octokit.NewLogrusLogger(logger)))
	require.NoError(t, err)
	assert.Equal(t, int32(1), exchanges.Load())

	req := newRequest(t)
	require.NoError(t, strategy.Authenticate(context.Background(), req))
	assert.Equal(t, "token v1.installation", req.Header.Get("Authorization"))

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "Failed to persist installation token", hook.LastEntry().Message)
	assert.Equal(t, "42", hook.LastEntry().Data["app_id"])
	assert.Contains(t, hook.LastEntry().Data["error"], "disk full")
}

func TestSetup_InstallationWithoutPersisterIsQuiet(t *testing.T) {
	t.Parallel()

	_, pemBytes := generateKey(t)

	var exchanges atomic.Int32

	server := installationServer(t, &exchanges)
	defer server.Close()

	logger, hook := logtest.NewNullLogger()

	_, err := auth.Setup(context.Background(), octokit.AuthInstallation,
		octokit.Credentials{AppID: "42", PrivateKey: pemBytes},
		auth.WithTransport(ghhttp.NewClient(server.URL, nil)),
		auth.WithConfigTokenManager(auth.NewConfigTokenManager(nil, "42", "", time.Time{})),
		auth.WithLogger(octokit.NewLogrusLogger(logger)))
	require.NoError(t, err)
	assert.Empty(t, hook.AllEntries())
}
