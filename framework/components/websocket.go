package components

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/akriventsev/potter-lifecycle/framework/core"
)

// WebSocketConfig конфигурация WebSocket hub
type WebSocketConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size" yaml:"read_buffer_size" validate:"gte=0"`
	WriteBufferSize int           `mapstructure:"write_buffer_size" yaml:"write_buffer_size" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	PongWait        time.Duration `mapstructure:"pong_wait" yaml:"pong_wait"`
	MaxMessageSize  int64         `mapstructure:"max_message_size" yaml:"max_message_size" validate:"gte=0"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer" yaml:"broadcast_buffer" validate:"gte=0"`
	// AllowedOrigins пустой список разрешает любой Origin
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// DefaultWebSocketConfig возвращает конфигурацию WebSocket по умолчанию
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		WriteTimeout:    10 * time.Second,
		PongWait:        60 * time.Second,
		MaxMessageSize:  512,
		BroadcastBuffer: 64,
	}
}

// Validate проверяет корректность конфигурации
func (c WebSocketConfig) Validate() error {
	return validateConfig("websocket", c)
}

// WebSocketHub рассылает сообщения подключенным WebSocket клиентам.
// Цикл рассылки запускается в AsyncInit; AsyncDispose останавливает его
// и закрывает все соединения.
type WebSocketHub struct {
	config    WebSocketConfig
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]struct{}
	broadcast chan []byte
	done      chan struct{}
	stopped   chan struct{}
	running   bool
	logger    *slog.Logger
	mu        sync.RWMutex
}

// NewWebSocketHub создает hub
func NewWebSocketHub(config WebSocketConfig, logger *slog.Logger) (*WebSocketHub, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	hub := &WebSocketHub{
		config:  config,
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger.With("component", "websocket"),
	}
	hub.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     hub.checkOrigin,
	}
	return hub, nil
}

func (h *WebSocketHub) Name() string {
	return "websocket"
}

func (h *WebSocketHub) Type() core.ComponentType {
	return core.ComponentTypeTransport
}

func (h *WebSocketHub) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// AsyncInit запускает цикл рассылки
func (h *WebSocketHub) AsyncInit(ctx context.Context, _ core.Cradle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}
	h.broadcast = make(chan []byte, h.config.BroadcastBuffer)
	h.done = make(chan struct{})
	h.stopped = make(chan struct{})
	h.running = true

	go h.run(h.broadcast, h.done, h.stopped)
	return nil
}

func (h *WebSocketHub) run(broadcast <-chan []byte, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		select {
		case msg := <-broadcast:
			h.deliver(msg)
		case <-done:
			return
		}
	}
}

func (h *WebSocketHub) deliver(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if h.config.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("dropping websocket client", "remote", conn.RemoteAddr().String(), "error", err)
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

// AsyncDispose останавливает рассылку и закрывает соединения
func (h *WebSocketHub) AsyncDispose(ctx context.Context) error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	close(h.done)
	stopped := h.stopped
	h.mu.Unlock()

	select {
	case <-stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"), deadline)
		_ = conn.Close()
		delete(h.clients, conn)
	}
	return nil
}

// Broadcast сериализует сообщение в JSON и ставит в очередь рассылки
func (h *WebSocketHub) Broadcast(ctx context.Context, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal websocket message: %w", err)
	}

	h.mu.RLock()
	running, broadcast, done := h.running, h.broadcast, h.done
	h.mu.RUnlock()
	if !running {
		return fmt.Errorf("websocket hub is not running")
	}

	select {
	case broadcast <- data:
		return nil
	case <-done:
		return fmt.Errorf("websocket hub is stopping")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients возвращает количество подключенных клиентов
func (h *WebSocketHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HealthCheck проверяет, что цикл рассылки запущен
func (h *WebSocketHub) HealthCheck(ctx context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		return fmt.Errorf("websocket hub is not running")
	}
	return nil
}

// Handler возвращает gin handler, выполняющий upgrade соединения
func (h *WebSocketHub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// ServeHTTP выполняет upgrade и читает соединение до его закрытия
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		http.Error(w, "websocket hub is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	if h.config.MaxMessageSize > 0 {
		conn.SetReadLimit(h.config.MaxMessageSize)
	}
	if h.config.PongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
		})
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
