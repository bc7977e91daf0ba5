package components

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/observability"
)

// HTTPConfig конфигурация HTTP сервера
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	Mode              string        `mapstructure:"mode" yaml:"mode" validate:"omitempty,oneof=debug release test"`
	ServiceName       string        `mapstructure:"service_name" yaml:"service_name"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultHTTPConfig возвращает конфигурацию HTTP по умолчанию
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Addr:              ":8080",
		Mode:              gin.ReleaseMode,
		ServiceName:       "potter-lifecycle",
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c HTTPConfig) Validate() error {
	return validateConfig("http", c)
}

// HTTPServer HTTP сервер на gin.
// AsyncInit обслуживает запросы до AsyncDispose, поэтому регистрируется
// с неблокирующей инициализацией.
type HTTPServer struct {
	config HTTPConfig
	engine *gin.Engine
	server *http.Server
	ready  chan struct{}
	once   sync.Once
	addr   net.Addr
	mu     sync.RWMutex
}

// NewHTTPServer создает сервер с recovery, tracing и correlation ID middleware
func NewHTTPServer(config HTTPConfig) (*HTTPServer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.ServiceName == "" {
		config.ServiceName = "potter-lifecycle"
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		observability.HTTPTracingMiddleware(config.ServiceName),
		observability.CorrelationIDMiddleware(),
	)

	return &HTTPServer{
		config: config,
		engine: engine,
		server: &http.Server{
			Handler:           engine,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
		ready: make(chan struct{}),
	}, nil
}

func (s *HTTPServer) Name() string {
	return "http"
}

func (s *HTTPServer) Type() core.ComponentType {
	return core.ComponentTypeTransport
}

// Engine возвращает gin engine для регистрации маршрутов
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Ready закрывается после открытия listener
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr возвращает фактический адрес listener (nil до Ready)
func (s *HTTPServer) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// AsyncInit открывает listener и обслуживает запросы до остановки сервера
func (s *HTTPServer) AsyncInit(ctx context.Context, _ core.Cradle) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// AsyncDispose выполняет graceful shutdown в пределах ShutdownTimeout
func (s *HTTPServer) AsyncDispose(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.server.Shutdown(ctx)
}
