package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logoServer(t *testing.T, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testLogoConfig(url string) LogoConfig {
	return LogoConfig{URL: url, Timeout: time.Second, CacheTTL: time.Minute, Top: 12, Width: 40}
}

func TestLogoProviderWithoutURL(t *testing.T) {
	p := newLogoProvider(LogoConfig{}, nil)
	logo, err := p.Logo(context.Background())
	assert.Nil(t, logo)
	assert.ErrorIs(t, err, errNoLogo)
}

func TestRemoteLogo(t *testing.T) {
	data := testPNG(t)
	srv, hits := logoServer(t, http.StatusOK, data)
	p := newLogoProvider(testLogoConfig(srv.URL), srv.Client())

	logo, err := p.Logo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PNG", logo.Type)
	assert.Equal(t, data, logo.Data)
	assert.Equal(t, 40.0, logo.Width)
	assert.Equal(t, 12.0, logo.Top)

	again, err := p.Logo(context.Background())
	require.NoError(t, err)
	assert.Same(t, logo, again)
	assert.Equal(t, int32(1), hits.Load(), "second lookup is served from the cache")
}

func TestRemoteLogoFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{"not found", http.StatusNotFound, nil},
		{"server error", http.StatusInternalServerError, []byte("boom")},
		{"not an image", http.StatusOK, []byte("<html></html>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := logoServer(t, tt.status, tt.body)
			p := newLogoProvider(testLogoConfig(srv.URL), srv.Client())

			logo, err := p.Logo(context.Background())
			assert.Nil(t, logo)
			assert.ErrorIs(t, err, errNoLogo)

			// The failure is remembered for a while.
			_, err = p.Logo(context.Background())
			assert.ErrorIs(t, err, errNoLogo)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestRemoteLogoTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testLogoConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	p := newLogoProvider(cfg, srv.Client())

	start := time.Now()
	_, err := p.Logo(context.Background())
	assert.ErrorIs(t, err, errNoLogo)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRemoteLogoCancelledCallerIsNotCached(t *testing.T) {
	srv, hits := logoServer(t, http.StatusOK, testPNG(t))
	p := newLogoProvider(testLogoConfig(srv.URL), srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Logo(ctx)
	require.Error(t, err)

	logo, err := p.Logo(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, logo)
	assert.LessOrEqual(t, hits.Load(), int32(1))
}

func TestRemoteLogoConcurrentMisses(t *testing.T) {
	srv, hits := logoServer(t, http.StatusOK, testPNG(t))
	p := newLogoProvider(testLogoConfig(srv.URL), srv.Client())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Logo(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Logo() error = %v", err)
	}
	assert.GreaterOrEqual(t, hits.Load(), int32(1))
}

func TestImageType(t *testing.T) {
	typ, err := imageType(testPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "PNG", typ)

	_, err = imageType([]byte("GIF87 but not really"))
	assert.True(t, errors.Is(err, errNoLogo))
}
