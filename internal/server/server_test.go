package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	return cfg
}

func waitForAddr(t *testing.T, srv Service) string {
	t.Helper()
	var addr string
	require.Eventually(t, func() bool {
		addr = srv.Addr()
		return addr != ""
	}, time.Second, 5*time.Millisecond)
	return addr
}

func TestServer_StartServeStop(t *testing.T) {
	srv := New(testConfig(), testLogger())
	srv.Handle("GET /ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start(ctx) }()

	addr := waitForAddr(t, srv)
	resp, err := http.Get("http://" + addr + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	require.NoError(t, srv.Stop(context.Background()))
	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop in time")
	}
}

func TestServer_Start_AlreadyStarted(t *testing.T) {
	srv := New(testConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = srv.Start(ctx) }()
	waitForAddr(t, srv)

	err := srv.Start(ctx)
	assert.EqualError(t, err, "server already started")
	require.NoError(t, srv.Stop(context.Background()))
}

func TestServer_Start_PortConflict(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	srv := New(cfg, testLogger())

	err = srv.Start(context.Background())
	assert.ErrorContains(t, err, "http listen")
	require.NoError(t, srv.Stop(context.Background()))
}

func TestServer_HTTPMux(t *testing.T) {
	srv := New(testConfig(), nil)
	assert.NotNil(t, srv.HTTPMux())
	assert.Empty(t, srv.Addr())
}

func TestServer_AuthRateLimit_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false
	srv := New(cfg, testLogger())

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	h := srv.AuthRateLimit(next)
	assert.NotNil(t, h)
	require.NoError(t, srv.Stop(context.Background()))
}
