package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/potter-lifecycle/framework/container"
	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

func TestNewTracingManager_Validation(t *testing.T) {
	_, err := NewTracingManager(TracingConfig{Enabled: true})
	assert.ErrorIs(t, err, core.ErrInvalidConfig, "service name is required when enabled")

	_, err = NewTracingManager(TracingConfig{Enabled: true, ServiceName: "svc", Exporter: "jaeger"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = NewTracingManager(TracingConfig{Enabled: true, ServiceName: "svc", Exporter: "otlp"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig, "otlp requires an endpoint")

	_, err = NewTracingManager(TracingConfig{SamplingRate: 2})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestTracingManager_Disabled(t *testing.T) {
	tm, err := NewTracingManager(TracingConfig{})
	require.NoError(t, err)

	_, span := tm.Tracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tm.AsyncInit(context.Background(), nil))
	assert.True(t, tm.IsRunning())
	require.NoError(t, tm.AsyncDispose(context.Background()))
	assert.False(t, tm.IsRunning())
}

func TestTracingManager_LifecycleSpans(t *testing.T) {
	var out bytes.Buffer
	tm, err := NewTracingManager(TracingConfig{
		Enabled:      true,
		ServiceName:  "lifecycle-test",
		Exporter:     "stdout",
		SamplingRate: 1,
		Writer:       &out,
	})
	require.NoError(t, err)

	c, err := container.NewContainerBuilder(nil).
		WithValue("tracing", tm,
			container.WithAsyncInit(lifecycle.InitDefault()),
			container.WithAsyncInitPriority(int(core.PriorityCritical)),
			container.WithAsyncDispose(lifecycle.DisposeDefault()),
			container.WithAsyncDisposePriority(int(core.PriorityLow))).
		WithValue("worker", &probe{},
			container.WithAsyncInit(lifecycle.InitDefault())).
		Build()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, lifecycle.AsyncInit(ctx, c, lifecycle.InitOptions{Tracer: tm.Tracer()}))
	assert.True(t, tm.IsRunning())

	require.NoError(t, lifecycle.AsyncDispose(ctx, c, lifecycle.DisposeOptions{}))
	assert.False(t, tm.IsRunning())

	assert.Contains(t, out.String(), "lifecycle.asyncInit")
	assert.Contains(t, out.String(), "asyncInit worker")
}

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CorrelationIDMiddleware())

	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = ExtractCorrelationID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(correlationIDKey, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(correlationIDKey))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(correlationIDKey))
	assert.Equal(t, seen, rec.Header().Get(correlationIDKey))
}

func TestPropagateCorrelationID(t *testing.T) {
	ctx := InjectCorrelationID(context.Background(), "corr-1")
	headers := http.Header{}

	PropagateCorrelationID(ctx, headers)
	assert.Equal(t, "corr-1", headers.Get(correlationIDKey))
}
