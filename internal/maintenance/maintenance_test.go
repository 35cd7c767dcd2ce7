package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/memori-sub000/internal/metrics"
)

type fakeCleaner struct {
	mu    sync.Mutex
	calls []string
	n     int64
	err   error
}

func (f *fakeCleaner) CleanupExpired(_ context.Context, ns string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ns)
	return f.n, f.err
}

func (f *fakeCleaner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Schedule(t *testing.T) {
	for _, schedule := range []string{"", "@hourly", "@every 5m", "*/15 * * * *"} {
		_, err := New(&fakeCleaner{}, Options{Schedule: schedule})
		assert.NoError(t, err, schedule)
	}
	_, err := New(&fakeCleaner{}, Options{Schedule: "every tuesday"})
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	c := &fakeCleaner{n: 3}
	s, err := New(c, Options{Namespace: "team", Logger: quietLogger()})
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []string{"team"}, c.calls)

	last, removed := s.Status()
	assert.False(t, last.IsZero())
	assert.Equal(t, int64(3), removed)
}

func TestRunOnce_Error(t *testing.T) {
	c := &fakeCleaner{err: errors.New("disk full")}
	s, err := New(c, Options{Logger: quietLogger()})
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.Error(t, err)
	last, _ := s.Status()
	assert.True(t, last.IsZero())
}

func TestStartStop(t *testing.T) {
	c := &fakeCleaner{}
	s, err := New(c, Options{Schedule: "@every 1s", Logger: quietLogger()})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()), "double start")

	assert.Eventually(t, func() bool { return c.count() > 0 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()

	after := c.count()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, c.count(), "no runs after stop")
}

func TestMetricsHandler(t *testing.T) {
	mc := metrics.NewCollector()
	mc.RecordOperation(context.Background(), "search", metrics.StatusSuccess, 3)

	srv := httptest.NewServer(MetricsHandler(mc.Registry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `memori_operations_total{operation="search",status="success"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, MetricsHandler(metrics.NewCollector().Registry()), quietLogger()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
