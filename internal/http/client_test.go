package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ghhttp "github.com/fivetwenty-io/octokit/internal/http"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoCredentials = errors.New("no credentials")

// MockAuthenticator for testing.
type MockAuthenticator struct {
	token string
	err   error
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, req *http.Request) error {
	if m.err != nil {
		return m.err
	}

	req.Header.Set("Authorization", "token "+m.token)

	return nil
}

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.record("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.record("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg, fields) }

func (l *MockLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := make([]string, 0, len(l.logs))
	for _, entry := range l.logs {
		msgs = append(msgs, entry["msg"].(string))
	}

	return msgs
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/repos/octocat/hello-world", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "token test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/vnd.github.v3+json", request.Header.Get("Accept"))
			assert.Equal(t, "octokit-go", request.Header.Get("User-Agent"))

			response := map[string]string{"full_name": "octocat/hello-world", "name": "hello-world"}
			_ = json.NewEncoder(writer).Encode(response)
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, &MockAuthenticator{token: "test-token"})

		resp, err := client.Do(context.Background(), &ghhttp.Request{
			Method: "GET",
			Path:   "/repos/octocat/hello-world",
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.False(t, resp.FromCache)

		var result map[string]string

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		assert.Equal(t, "octocat/hello-world", result["full_name"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/user/repos", request.URL.Path)
			assert.Equal(t, "page=2", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &ghhttp.Request{
			Method: "GET",
			Path:   "/user/repos",
			Query:  url.Values{"page": []string{"2"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "Found a bug", body["title"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &ghhttp.Request{
			Method: "POST",
			Path:   "/repos/o/r/issues",
			Body:   map[string]string{"title": "Found a bug"},
		})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("raw body is sent unchanged", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			var body map[string]interface{}

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, map[string]interface{}{"a": float64(1), "b": "x"}, body)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, nil)

		_, err := client.Do(context.Background(), &ghhttp.Request{
			Method: "PATCH",
			Path:   "/x",
			Body:   []byte(`{"a":1,"b":"x"}`),
		})
		require.NoError(t, err)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`))
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &ghhttp.Request{
			Method: "GET",
			Path:   "/repos/o/missing",
		})
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.True(t, octokit.IsNotFound(err))

		errResp := &octokit.ResponseError{}
		ok := errors.As(err, &errResp)
		require.True(t, ok)
		assert.Equal(t, "Not Found", errResp.Message)
		assert.Equal(t, "https://docs.github.com/rest", errResp.DocumentationURL)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			assert.Equal(t, "application/vnd.github.machine-man-preview+json", request.Header.Get("Accept"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, nil, ghhttp.WithUserAgent("my-app"))

		resp, err := client.Do(context.Background(), &ghhttp.Request{
			Method: "GET",
			Path:   "/app",
			Headers: http.Header{
				"X-Custom-Header": []string{"custom-value"},
				"Accept":          []string{"application/vnd.github.machine-man-preview+json"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("absolute path bypasses base url", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/next", request.URL.Path)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := ghhttp.NewClient("https://api.invalid", nil)

		resp, err := client.Get(context.Background(), server.URL+"/next", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("authentication failure", func(t *testing.T) {
		t.Parallel()

		client := ghhttp.NewClient("https://api.invalid", &MockAuthenticator{err: errNoCredentials})

		_, err := client.Get(context.Background(), "/user", nil)
		require.ErrorIs(t, err, errNoCredentials)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := ghhttp.NewClient(server.URL, nil, ghhttp.WithLogger(logger), ghhttp.WithDebug(true))

		_, err := client.Do(context.Background(), &ghhttp.Request{
			Method: "GET",
			Path:   "/meta",
		})
		require.NoError(t, err)

		msgs := logger.messages()
		assert.Contains(t, msgs, "HTTP Request")
		assert.Contains(t, msgs, "HTTP Response")
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*ghhttp.Client, context.Context) (*ghhttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *ghhttp.Client, ctx context.Context) (*ghhttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: "POST",
			fn: func(c *ghhttp.Client, ctx context.Context) (*ghhttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *ghhttp.Client, ctx context.Context) (*ghhttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: "PATCH",
			fn: func(c *ghhttp.Client, ctx context.Context) (*ghhttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: "DELETE",
			fn: func(c *ghhttp.Client, ctx context.Context) (*ghhttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := ghhttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, nil, ghhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, nil, ghhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, nil, ghhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("returns last response when retries are exhausted", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := ghhttp.NewClient(server.URL, nil, ghhttp.WithRetryConfig(1, time.Millisecond, 5*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

func TestClient_ETagCache(t *testing.T) {
	t.Parallel()

	var (
		hits        atomic.Int32
		conditional atomic.Int32
	)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		hits.Add(1)

		if request.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			writer.WriteHeader(http.StatusNotModified)

			return
		}

		writer.Header().Set("ETag", `"v1"`)
		_, _ = writer.Write([]byte(`{"login":"octocat"}`))
	}))
	defer server.Close()

	cache := octokit.NewMemoryCache(10)
	client := ghhttp.NewClient(server.URL, nil, ghhttp.WithCache(cache, nil))

	first, err := client.Get(context.Background(), "/user", nil)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, cache.Len())

	second, err := client.Get(context.Background(), "/user", nil)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, `{"login":"octocat"}`, string(second.Body))
	assert.Equal(t, "1", second.Headers.Get("X-From-Cache"))

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), conditional.Load())

	_, err = client.Post(context.Background(), "/user", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), conditional.Load())
}
