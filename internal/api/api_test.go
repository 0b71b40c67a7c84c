package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramkansal/sitescout/internal/discovery"
)

type fakeDiscoverer struct {
	mu      sync.Mutex
	got     []discovery.Request
	res     discovery.Result
	block   chan struct{}
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeDiscoverer) Discover(ctx context.Context, req discovery.Request) discovery.Result {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return f.res
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(f *fakeDiscoverer, maxConcurrent int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(quietLogger(), NewHandler(f, maxConcurrent, quietLogger()))
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeDiscoverer{}, 1)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestDiscover(t *testing.T) {
	f := &fakeDiscoverer{res: discovery.Result{BaseURL: "https://example.com", TotalCount: 4, DebugLogs: []string{"x"}}}
	r := newTestRouter(f, 2)

	body := `{"root_url":"https://example.com","max_pages":50,"max_time_seconds":30}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/discover", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "https://example.com", got["base_url"])
	assert.EqualValues(t, 4, got["total_count"])
	assert.Nil(t, got["error"])

	require.Len(t, f.got, 1)
	assert.Equal(t, discovery.Request{RootURL: "https://example.com", MaxPages: 50, MaxTimeSeconds: 30}, f.got[0])
}

func TestDiscoverFailureIsStill200(t *testing.T) {
	msg := "invalid url: empty address"
	f := &fakeDiscoverer{res: discovery.Result{DebugLogs: []string{}, Error: &msg}}
	r := newTestRouter(f, 1)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/discover", strings.NewReader(`{"root_url":""}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, msg, got["error"])
	assert.EqualValues(t, 0, got["total_count"])
}

func TestDiscoverMalformedBody(t *testing.T) {
	f := &fakeDiscoverer{}
	r := newTestRouter(f, 1)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/discover", strings.NewReader(`{"root_url":`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid payload")
	assert.Empty(t, f.got)
}

func TestDiscoverConcurrencyBound(t *testing.T) {
	f := &fakeDiscoverer{block: make(chan struct{})}
	r := newTestRouter(f, 2)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/discover", strings.NewReader(`{"root_url":"https://example.com"}`)))
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}

	require.Eventually(t, func() bool { return f.running.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 2, f.running.Load())

	close(f.block)
	wg.Wait()
	assert.EqualValues(t, 2, f.peak.Load())
	assert.Len(t, f.got, 5)
}

func TestDiscoverCancelledWhileQueued(t *testing.T) {
	f := &fakeDiscoverer{block: make(chan struct{})}
	defer close(f.block)
	h := NewHandler(f, 1, quietLogger())
	require.True(t, h.sem.TryAcquire(1))
	defer h.sem.Release(1)

	gin.SetMode(gin.TestMode)
	r := NewRouter(quietLogger(), h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/discover", strings.NewReader(`{"root_url":"https://example.com"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cancelled while queued")
	assert.Empty(t, f.got)
}
