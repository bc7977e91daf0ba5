package components

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/akriventsev/potter-lifecycle/framework/container"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

func waitReady(t *testing.T, server Server) {
	t.Helper()
	select {
	case <-server.Ready():
	case <-time.After(5 * time.Second):
		t.Fatalf("%s server did not start", server.Name())
	}
}

func TestHTTPServer_Lifecycle(t *testing.T) {
	server, err := NewHTTPServer(HTTPConfig{Addr: "127.0.0.1:0", Mode: gin.TestMode, ShutdownTimeout: 5 * time.Second})
	require.NoError(t, err)
	server.Engine().GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	var mu sync.Mutex
	var failures []error

	c := container.NewContainer(nil)
	require.NoError(t, Register(c, "api", server))

	manager, err := lifecycle.NewManager(lifecycle.Config{
		Registry:     c,
		AsyncInit:    true,
		AsyncDispose: true,
		OnNonBlockingError: func(name string, err error) {
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, manager.ExecuteInit(ctx))
	waitReady(t, server)

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", server.Addr()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	require.NoError(t, manager.ExecuteDispose(ctx))

	_, err = http.Get(fmt.Sprintf("http://%s/ping", server.Addr()))
	assert.Error(t, err, "server must stop accepting connections after dispose")

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, failures)
}

func TestHTTPServer_ListenError(t *testing.T) {
	server, err := NewHTTPServer(HTTPConfig{Addr: "256.0.0.1:99999", Mode: gin.TestMode})
	require.NoError(t, err)

	err = server.AsyncInit(context.Background(), nil)
	assert.ErrorContains(t, err, "failed to listen")
}

func TestGRPCServer_Lifecycle(t *testing.T) {
	server, err := NewGRPCServer(GRPCConfig{Addr: "127.0.0.1:0", ShutdownTimeout: 5 * time.Second})
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, server.HealthCheck(ctx), "not serving before init")

	initErr := make(chan error, 1)
	go func() { initErr <- server.AsyncInit(ctx, nil) }()
	waitReady(t, server)
	require.NoError(t, server.HealthCheck(ctx))

	conn, err := grpc.NewClient(server.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(callCtx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	require.NoError(t, server.AsyncDispose(ctx))
	select {
	case err := <-initErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("AsyncInit did not return after dispose")
	}
}

func TestWebSocketHub_Broadcast(t *testing.T) {
	hub, err := NewWebSocketHub(DefaultWebSocketConfig(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, hub.Broadcast(ctx, "early"), "broadcast requires a running hub")
	require.NoError(t, hub.AsyncInit(ctx, nil))
	require.NoError(t, hub.HealthCheck(ctx))

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(ctx, map[string]string{"event": "initialized"}))

	var msg map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "initialized", msg["event"])

	require.NoError(t, hub.AsyncDispose(ctx))
	assert.Equal(t, 0, hub.Clients())
	assert.Error(t, hub.HealthCheck(ctx))

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error %v", err)
}

func TestWebSocketHub_RejectsWhenStopped(t *testing.T) {
	hub, err := NewWebSocketHub(WebSocketConfig{AllowedOrigins: []string{"https://example.com"}}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, hub.checkOrigin(req))
	req.Header.Set("Origin", "https://example.com")
	assert.True(t, hub.checkOrigin(req))
}
