package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/markoblogo/abvx-shortener/internal/ratelimit"
	"github.com/markoblogo/abvx-shortener/internal/repository"
	"github.com/markoblogo/abvx-shortener/internal/repository/memory"
	"github.com/markoblogo/abvx-shortener/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "s3cret"

// countingStore counts writes that reach the backing store
type countingStore struct {
	repository.Store
	puts atomic.Int64
}

func (s *countingStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	s.puts.Add(1)
	return s.Store.Put(ctx, key, value, ttl)
}

type routerFixture struct {
	router http.Handler
	store  *countingStore
}

func setupRouter(t *testing.T, maxRequests int) *routerFixture {
	t.Helper()

	store := &countingStore{Store: memory.NewStore(time.Minute)}
	t.Cleanup(func() { _ = store.Close() })

	svc := service.NewLinkService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := NewHandler(svc, testLogger(), "https://abvx.xyz")
	limiter := ratelimit.NewFixedWindowLimiter(store, maxRequests, time.Hour)

	router := NewRouter(handler, limiter, RouterConfig{
		APIKey:         testAPIKey,
		ClientIPHeader: "CF-Connecting-IP",
	})

	return &routerFixture{router: router, store: store}
}

func shortenRequest(body, apiKey, clientIP string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	if clientIP != "" {
		req.Header.Set("CF-Connecting-IP", clientIP)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_ShortenThenRedirect(t *testing.T) {
	// Arrange
	fx := setupRouter(t, 10)

	// Act
	w := serve(fx.router, shortenRequest(`{"url":"HTTPS://Example.COM:443/path?q=1#frag"}`, testAPIKey, "203.0.113.7"))

	// Assert
	require.Equal(t, http.StatusOK, w.Code)

	var resp ShortenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Slug, 6)
	assert.Equal(t, "https://abvx.xyz/"+resp.Slug, resp.ShortURL)

	redirect := serve(fx.router, httptest.NewRequest(http.MethodGet, "/"+resp.Slug, nil))
	assert.Equal(t, http.StatusFound, redirect.Code)
	assert.Equal(t, "https://example.com/path?q=1", redirect.Header().Get("Location"))
}

func TestRouter_RedirectLocationMatchesStoredURL(t *testing.T) {
	inputs := []string{
		"https://example.com/search?q=café",
		"https://example.com/café/menü?x=ü&a=1",
		"https://example.com/search?q=caf%C3%A9",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			// Arrange
			fx := setupRouter(t, 10)
			body, err := json.Marshal(map[string]string{"url": in})
			require.NoError(t, err)

			// Act
			w := serve(fx.router, shortenRequest(string(body), testAPIKey, "a"))
			require.Equal(t, http.StatusOK, w.Code)

			var resp ShortenResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

			stored, found, err := fx.store.Get(context.Background(), resp.Slug)
			require.NoError(t, err)
			require.True(t, found)

			redirect := serve(fx.router, httptest.NewRequest(http.MethodGet, "/"+resp.Slug, nil))

			// Assert
			assert.Equal(t, http.StatusFound, redirect.Code)
			assert.Equal(t, stored, redirect.Header().Get("Location"))
		})
	}
}

func TestRouter_ShortenIsIdempotent(t *testing.T) {
	fx := setupRouter(t, 10)

	first := serve(fx.router, shortenRequest(`{"url":"https://example.com"}`, testAPIKey, "a"))
	second := serve(fx.router, shortenRequest(`{"url":"  https://EXAMPLE.com/  "}`, testAPIKey, "a"))

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestRouter_HeadRedirect(t *testing.T) {
	fx := setupRouter(t, 10)
	require.NoError(t, fx.store.Put(context.Background(), "abc234", "https://example.com/", 0))

	w := serve(fx.router, httptest.NewRequest(http.MethodHead, "/abc234", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/", w.Header().Get("Location"))
}

func TestRouter_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
	}{
		{"Missing key", ""},
		{"Wrong key", "nope"},
		{"Key with suffix", testAPIKey + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := setupRouter(t, 10)

			w := serve(fx.router, shortenRequest(`{"url":"https://example.com"}`, tt.apiKey, "a"))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "unauthorized", decodeError(t, w.Body))
			assert.Zero(t, fx.store.puts.Load(), "rejected requests must not touch the store")
		})
	}
}

func TestRouter_EmptyConfiguredKeyRejectsAll(t *testing.T) {
	store := memory.NewStore(time.Minute)
	svc := service.NewLinkService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := NewHandler(svc, testLogger(), "https://abvx.xyz")
	router := NewRouter(handler, ratelimit.NewFixedWindowLimiter(store, 10, time.Hour), RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(`{"url":"https://example.com"}`))
	req.Header.Set("X-API-Key", "")

	w := serve(router, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	// Arrange
	fx := setupRouter(t, 2)

	// Act
	first := serve(fx.router, shortenRequest(`{"url":"https://example.com/1"}`, testAPIKey, "198.51.100.1"))
	second := serve(fx.router, shortenRequest(`{"url":"https://example.com/2"}`, testAPIKey, "198.51.100.1"))
	third := serve(fx.router, shortenRequest(`{"url":"https://example.com/3"}`, testAPIKey, "198.51.100.1"))
	other := serve(fx.router, shortenRequest(`{"url":"https://example.com/4"}`, testAPIKey, "198.51.100.2"))

	// Assert
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "rate_limited", decodeError(t, third.Body))
	assert.NotEmpty(t, third.Header().Get("Retry-After"))
	assert.Equal(t, "2", third.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, http.StatusOK, other.Code, "limits are per client")
}

func TestRouter_RateLimitCountsBadBodies(t *testing.T) {
	fx := setupRouter(t, 1)

	bad := serve(fx.router, shortenRequest(`not json`, testAPIKey, "a"))
	next := serve(fx.router, shortenRequest(`{"url":"https://example.com"}`, testAPIKey, "a"))

	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, http.StatusTooManyRequests, next.Code)
}

func TestRouter_UnknownClientSharesBucket(t *testing.T) {
	fx := setupRouter(t, 1)

	first := serve(fx.router, shortenRequest(`{"url":"https://example.com/1"}`, testAPIKey, ""))
	second := serve(fx.router, shortenRequest(`{"url":"https://example.com/2"}`, testAPIKey, ""))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRouter_InvalidURL(t *testing.T) {
	fx := setupRouter(t, 10)

	w := serve(fx.router, shortenRequest(`{"url":"javascript:alert(1)"}`, testAPIKey, "a"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w.Body), "invalid URL")
}

func TestRouter_MethodNotAllowedOnShorten(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			fx := setupRouter(t, 10)

			w := serve(fx.router, httptest.NewRequest(method, "/api/shorten", nil))

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
		})
	}
}

func TestRouter_Table(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"Landing page", http.MethodGet, "/", http.StatusOK},
		{"Landing page HEAD", http.MethodHead, "/", http.StatusOK},
		{"Health", http.MethodGet, "/health", http.StatusOK},
		{"Health HEAD", http.MethodHead, "/health", http.StatusOK},
		{"POST health", http.MethodPost, "/health", http.StatusNotFound},
		{"POST root", http.MethodPost, "/", http.StatusNotFound},
		{"DELETE slug", http.MethodDelete, "/abc234", http.StatusNotFound},
		{"Unknown slug", http.MethodGet, "/zzzzzz", http.StatusNotFound},
		{"Shorten with trailing slash", http.MethodPost, "/api/shorten/", http.StatusNotFound},
		{"GET shorten with trailing slash", http.MethodGet, "/api/shorten/", http.StatusNotFound},
		{"Nested path", http.MethodGet, "/a/b", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := setupRouter(t, 10)

			w := serve(fx.router, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRouter_ReservedPathsNeverResolve(t *testing.T) {
	fx := setupRouter(t, 10)
	ctx := context.Background()

	for _, key := range []string{"api", "api/shorten/", "apixyz", "health/", "healthy"} {
		require.NoError(t, fx.store.Put(ctx, key, "https://evil.example/", 0))
	}

	for _, path := range []string{"/api", "/api/shorten/", "/apixyz", "/health/", "/healthy"} {
		t.Run(path, func(t *testing.T) {
			w := serve(fx.router, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Empty(t, w.Header().Get("Location"))
		})
	}
}

func TestRouter_FullChain(t *testing.T) {
	fx := setupRouter(t, 10)
	log := testLogger()

	app := Chain(
		RecoveryMiddleware(log),
		LoggingMiddleware(log),
		RequestIDMiddleware,
		MetricsMiddleware,
		CORSMiddleware,
	)(fx.router)

	t.Run("Preflight", func(t *testing.T) {
		w := serve(app, httptest.NewRequest(http.MethodOptions, "/api/shorten", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("Health", func(t *testing.T) {
		w := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	})
}
