// Copyright 2024 Potter Framework Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

// DefaultHealthTimeout таймаут одного прохода проверок
const DefaultHealthTimeout = 5 * time.Second

// HealthChecker опрашивает компоненты реестра, реализующие core.HealthCheckable.
// Опрос разрешает все включенные регистрации, поэтому его следует вызывать
// после ExecuteInit.
type HealthChecker struct {
	registry lifecycle.Registry
	timeout  time.Duration
}

// NewHealthChecker создает HealthChecker поверх реестра
func NewHealthChecker(registry lifecycle.Registry, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	return &HealthChecker{registry: registry, timeout: timeout}
}

// HealthCheckResult результат health check
type HealthCheckResult struct {
	Status    string                 `json:"status"`
	Phase     string                 `json:"phase,omitempty"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
}

// Healthy true, если все проверки прошли
func (r HealthCheckResult) Healthy() bool {
	return r.Status == StatusHealthy
}

// CheckResult результат отдельной проверки
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Check выполняет проверки всех компонентов в порядке имен
func (h *HealthChecker) Check(ctx context.Context) (HealthCheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	checkable, err := lifecycle.GetByType[core.HealthCheckable](h.registry)
	if err != nil {
		return HealthCheckResult{}, err
	}

	names := make([]string, 0, len(checkable))
	for name := range checkable {
		names = append(names, name)
	}
	sort.Strings(names)

	result := HealthCheckResult{
		Status:    StatusHealthy,
		Phase:     h.phase(),
		Checks:    make(map[string]CheckResult, len(names)),
		Timestamp: time.Now(),
	}

	for _, name := range names {
		start := time.Now()
		checkErr := checkable[name].HealthCheck(ctx)

		check := CheckResult{Status: StatusHealthy, Duration: time.Since(start)}
		if checkErr != nil {
			check.Status = StatusUnhealthy
			check.Message = checkErr.Error()
			result.Status = StatusUnhealthy
		}
		result.Checks[name] = check
	}

	return result, nil
}

// Ready true, если реестр прошел ExecuteInit. Реестр без PhaseStore считается готовым.
func (h *HealthChecker) Ready() bool {
	store, ok := h.registry.(lifecycle.PhaseStore)
	return !ok || store.Phase() == core.PhaseInitialized
}

func (h *HealthChecker) phase() string {
	if store, ok := h.registry.(lifecycle.PhaseStore); ok {
		return store.Phase().String()
	}
	return ""
}

// HealthCheckHandler возвращает Gin handler для health check
func (h *HealthChecker) HealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.Check(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": StatusUnhealthy, "error": err.Error()})
			return
		}

		if !result.Healthy() {
			c.JSON(http.StatusServiceUnavailable, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ReadinessCheckHandler возвращает Gin handler для readiness check
func (h *HealthChecker) ReadinessCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "phase": h.phase()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// RegisterRoutes регистрирует /health и /ready
func (h *HealthChecker) RegisterRoutes(routes gin.IRoutes) {
	routes.GET("/health", h.HealthCheckHandler())
	routes.GET("/ready", h.ReadinessCheckHandler())
}
