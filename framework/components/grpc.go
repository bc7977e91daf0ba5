package components

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/observability"
)

// GRPCConfig конфигурация gRPC сервера
type GRPCConfig struct {
	Addr                  string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ServiceName           string        `mapstructure:"service_name" yaml:"service_name"`
	MaxConcurrentStreams  uint32        `mapstructure:"max_concurrent_streams" yaml:"max_concurrent_streams"`
	MaxReceiveMessageSize int           `mapstructure:"max_receive_message_size" yaml:"max_receive_message_size" validate:"gte=0"`
	ShutdownTimeout       time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultGRPCConfig возвращает конфигурацию gRPC по умолчанию
func DefaultGRPCConfig() GRPCConfig {
	return GRPCConfig{
		Addr:                  ":50051",
		ServiceName:           "potter-lifecycle",
		MaxConcurrentStreams:  100,
		MaxReceiveMessageSize: 4 * 1024 * 1024,
		ShutdownTimeout:       30 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c GRPCConfig) Validate() error {
	return validateConfig("grpc", c)
}

// GRPCServer gRPC сервер со встроенным health сервисом.
// Статус health сервиса переключается в SERVING после открытия listener
// и в NOT_SERVING в начале остановки.
type GRPCServer struct {
	config GRPCConfig
	server *grpc.Server
	health *health.Server
	ready  chan struct{}
	once   sync.Once
	addr   net.Addr
	mu     sync.RWMutex
}

// NewGRPCServer создает сервер с tracing interceptor
func NewGRPCServer(config GRPCConfig, opts ...grpc.ServerOption) (*GRPCServer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ServiceName == "" {
		config.ServiceName = "potter-lifecycle"
	}

	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(observability.GRPCTracingInterceptor(config.ServiceName)),
	}
	if config.MaxConcurrentStreams > 0 {
		serverOpts = append(serverOpts, grpc.MaxConcurrentStreams(config.MaxConcurrentStreams))
	}
	if config.MaxReceiveMessageSize > 0 {
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(config.MaxReceiveMessageSize))
	}
	serverOpts = append(serverOpts, opts...)

	server := grpc.NewServer(serverOpts...)
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return &GRPCServer{
		config: config,
		server: server,
		health: healthServer,
		ready:  make(chan struct{}),
	}, nil
}

func (s *GRPCServer) Name() string {
	return "grpc"
}

func (s *GRPCServer) Type() core.ComponentType {
	return core.ComponentTypeTransport
}

// Server возвращает grpc.Server для регистрации сервисов до AsyncInit
func (s *GRPCServer) Server() *grpc.Server {
	return s.server
}

// Ready закрывается после открытия listener
func (s *GRPCServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr возвращает фактический адрес listener (nil до Ready)
func (s *GRPCServer) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// AsyncInit открывает listener и обслуживает запросы до остановки
func (s *GRPCServer) AsyncInit(ctx context.Context, _ core.Cradle) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.once.Do(func() { close(s.ready) })

	if err := s.server.Serve(listener); err != nil {
		return fmt.Errorf("grpc server failed: %w", err)
	}
	return nil
}

// AsyncDispose выполняет GracefulStop; по истечении ShutdownTimeout или отмене ctx
// соединения закрываются принудительно.
func (s *GRPCServer) AsyncDispose(ctx context.Context) error {
	s.health.Shutdown()

	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}

// HealthCheck возвращает ошибку, если сервер не в статусе SERVING
func (s *GRPCServer) HealthCheck(ctx context.Context) error {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("grpc server status: %s", resp.GetStatus())
	}
	return nil
}
