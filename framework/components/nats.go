package components

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/akriventsev/potter-lifecycle/framework/core"
)

// NATSConfig конфигурация соединения с NATS
type NATSConfig struct {
	URL               string        `mapstructure:"url" yaml:"url" validate:"required,startswith=nats://|startswith=tls://"`
	ClientName        string        `mapstructure:"client_name" yaml:"client_name"`
	MaxReconnects     int           `mapstructure:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait     time.Duration `mapstructure:"reconnect_wait" yaml:"reconnect_wait"`
	DrainTimeout      time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout"`
	Token             string        `mapstructure:"token" yaml:"token"`
	Username          string        `mapstructure:"username" yaml:"username" validate:"required_with=Password"`
	Password          string        `mapstructure:"password" yaml:"password"`
}

// DefaultNATSConfig возвращает конфигурацию NATS по умолчанию
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:               nats.DefaultURL,
		MaxReconnects:     10,
		ReconnectWait:     2 * time.Second,
		DrainTimeout:      30 * time.Second,
		ConnectionTimeout: 5 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c NATSConfig) Validate() error {
	return validateConfig("nats", c)
}

// options строит опции nats.Connect. closed закрывается, когда соединение закрыто.
func (c NATSConfig) options(closed chan struct{}) []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.MaxReconnects),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
	}
	if c.ClientName != "" {
		opts = append(opts, nats.Name(c.ClientName))
	}
	if c.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(c.ReconnectWait))
	}
	if c.DrainTimeout > 0 {
		opts = append(opts, nats.DrainTimeout(c.DrainTimeout))
	}
	if c.ConnectionTimeout > 0 {
		opts = append(opts, nats.Timeout(c.ConnectionTimeout))
	}
	if c.Token != "" {
		opts = append(opts, nats.Token(c.Token))
	}
	if c.Username != "" {
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	}
	return opts
}

// NATSConnection соединение с NATS.
// AsyncDispose выполняет Drain: подписки дочитывают сообщения, публикации сбрасываются.
type NATSConnection struct {
	config NATSConfig
	conn   *nats.Conn
	closed chan struct{}
	mu     sync.RWMutex
}

// NewNATSConnection создает компонент без подключения
func NewNATSConnection(config NATSConfig) (*NATSConnection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &NATSConnection{config: config}, nil
}

func (n *NATSConnection) Name() string {
	return "nats"
}

func (n *NATSConnection) Type() core.ComponentType {
	return core.ComponentTypeMessaging
}

// AsyncInit подключается к серверу
func (n *NATSConnection) AsyncInit(ctx context.Context, _ core.Cradle) error {
	closed := make(chan struct{})
	conn, err := nats.Connect(n.config.URL, n.config.options(closed)...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n.mu.Lock()
	n.conn = conn
	n.closed = closed
	n.mu.Unlock()
	return nil
}

// AsyncDispose выполняет Drain и ждет закрытия соединения или отмены ctx
func (n *NATSConnection) AsyncDispose(ctx context.Context) error {
	n.mu.Lock()
	conn, closed := n.conn, n.closed
	n.conn = nil
	n.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}

	select {
	case <-closed:
		return nil
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}

// HealthCheck проверяет состояние соединения
func (n *NATSConnection) HealthCheck(ctx context.Context) error {
	conn := n.Conn()
	if conn == nil {
		return fmt.Errorf("nats connection is not initialized")
	}
	if !conn.IsConnected() {
		return fmt.Errorf("nats connection status: %s", conn.Status())
	}
	return nil
}

// Conn возвращает соединение или nil до инициализации
func (n *NATSConnection) Conn() *nats.Conn {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.conn
}
