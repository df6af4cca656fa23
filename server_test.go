package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, server ServerConfig, opts ...GeneratorOption) (http.Handler, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	cfg := defaultConfig()
	clock := WithClock(func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) })
	gen := NewGenerator(cfg, append([]GeneratorOption{clock, WithLogger(log)}, opts...)...)
	return newRouter(gen, server, log), hook
}

func testServerConfig() ServerConfig {
	return defaultConfig().Server
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodePDF(t *testing.T, rec *httptest.ResponseRecorder) []byte {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp letterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "wisehomes_brief.pdf", resp.FileName)
	assert.Equal(t, "application/pdf", resp.MimeType)

	data, err := base64.StdEncoding.DecodeString(resp.Data)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "%PDF"))
	return data
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestUsage(t *testing.T) {
	h, _ := testRouter(t, testServerConfig())

	for _, path := range []string{"/", "/api/letter"} {
		rec := do(h, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assertCORS(t, rec)

		var resp usageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Contains(t, resp.Usage, "POST /api/letter")
	}
}

func TestPreflight(t *testing.T) {
	h, _ := testRouter(t, testServerConfig())
	rec := do(h, http.MethodOptions, "/api/letter", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assertCORS(t, rec)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := testRouter(t, testServerConfig())
	rec := do(h, http.MethodPut, "/api/letter", "{}")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"Use POST with JSON body"}`, rec.Body.String())
	assertCORS(t, rec)
}

func TestPostLetter(t *testing.T) {
	h, hook := testRouter(t, testServerConfig())
	rec := do(h, http.MethodPost, "/api/letter", `{"adresse":"Bahnstraße 17","plzOrt":"2404 Petronell"}`)

	decodePDF(t, rec)
	assertCORS(t, rec)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var generated bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Letter generated" {
			generated = true
			assert.Equal(t, true, e.Data["fits"])
		}
	}
	assert.True(t, generated)
}

func TestPostLetterOnRoot(t *testing.T) {
	h, _ := testRouter(t, testServerConfig())
	decodePDF(t, do(h, http.MethodPost, "/", `{"text":"Eins. Zwei. Drei."}`))
}

func TestPostLetterMalformedBody(t *testing.T) {
	h, _ := testRouter(t, testServerConfig())

	for _, body := range []string{`{not json`, `"still not json"`, ``, `[1,2]`} {
		rec := do(h, http.MethodPost, "/api/letter", body)
		decodePDF(t, rec)
	}
}

func TestPostLetterIsIdempotent(t *testing.T) {
	h, _ := testRouter(t, testServerConfig())
	body := `{"adresse":"Ring 2","plzOrt":"1010 Wien","text":"Kurzer Brief."}`

	a := decodePDF(t, do(h, http.MethodPost, "/api/letter", body))
	b := decodePDF(t, do(h, http.MethodPost, "/api/letter", body))
	assert.Equal(t, a, b)
}

func TestRequestIDIsKept(t *testing.T) {
	h, _ := testRouter(t, testServerConfig())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

type panickingLogo struct{}

func (panickingLogo) Logo(context.Context) (*Logo, error) {
	panic("logo store exploded")
}

func TestPostLetterPanic(t *testing.T) {
	h, hook := testRouter(t, testServerConfig(), WithLogoProvider(panickingLogo{}))
	rec := do(h, http.MethodPost, "/api/letter", `{}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal error","details":"logo store exploded"}`, rec.Body.String())
	assertCORS(t, rec)

	var recovered bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Panic recovered" {
			recovered = true
		}
	}
	assert.True(t, recovered)
}

func TestRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	h, _ := testRouter(t, cfg)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/", "").Code)

	rec := do(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())
}

func TestRateLimitIsOptIn(t *testing.T) {
	h, _ := testRouter(t, defaultConfig().Server)

	for i := 0; i < 30; i++ {
		require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/", "").Code, "request %d", i)
	}
}

func TestOversizedBodyIsTreatedAsEmpty(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxBodyBytes = 16
	h, _ := testRouter(t, cfg)

	decodePDF(t, do(h, http.MethodPost, "/api/letter", `{"adresse":"`+strings.Repeat("x", 64)+`"}`))
}
