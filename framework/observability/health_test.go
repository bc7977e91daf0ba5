package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/potter-lifecycle/framework/container"
	"github.com/akriventsev/potter-lifecycle/framework/core"
	ptesting "github.com/akriventsev/potter-lifecycle/framework/testing"
)

// probe компонент с настраиваемой проверкой здоровья
type probe struct {
	err error
}

func (p *probe) AsyncInit(ctx context.Context, _ core.Cradle) error {
	return nil
}

func (p *probe) HealthCheck(ctx context.Context) error {
	return p.err
}

func buildHealthContainer(t *testing.T, failing error) *container.Container {
	t.Helper()

	c, err := container.NewContainerBuilder(nil).
		WithValue("db", &probe{}).
		WithValue("queue", &probe{err: failing}).
		WithValue("config", "plain value").
		WithValue("disabled", &probe{err: errors.New("never checked")}, container.WithEnabled(false)).
		Build()
	require.NoError(t, err)
	return c
}

func TestHealthChecker_Check(t *testing.T) {
	c := buildHealthContainer(t, nil)
	checker := NewHealthChecker(c, time.Second)

	result, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Healthy())
	assert.Len(t, result.Checks, 2)
	assert.Equal(t, core.PhaseIdle.String(), result.Phase)

	c = buildHealthContainer(t, errors.New("broker unreachable"))
	result, err = NewHealthChecker(c, 0).Check(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Healthy())
	assert.Equal(t, StatusUnhealthy, result.Checks["queue"].Status)
	assert.Equal(t, "broker unreachable", result.Checks["queue"].Message)
	assert.Equal(t, StatusHealthy, result.Checks["db"].Status)
}

func TestHealthChecker_Handlers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := buildHealthContainer(t, errors.New("down"))
	checker := NewHealthChecker(c, time.Second)
	router := gin.New()
	checker.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthCheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	manager, _ := ptesting.NewTestManager(t, c, nil)
	require.NoError(t, manager.ExecuteInit(context.Background()))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
