package components

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akriventsev/potter-lifecycle/framework/core"
)

// RedisConfig конфигурация клиента Redis
type RedisConfig struct {
	Addr        string        `mapstructure:"addr" yaml:"addr" validate:"required,hostname_port"`
	Password    string        `mapstructure:"password" yaml:"password"`
	DB          int           `mapstructure:"db" yaml:"db" validate:"gte=0,lte=15"`
	PoolSize    int           `mapstructure:"pool_size" yaml:"pool_size" validate:"gte=0"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// DefaultRedisConfig возвращает конфигурацию Redis по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		PoolSize:    10,
		MaxRetries:  3,
		DialTimeout: 5 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c RedisConfig) Validate() error {
	return validateConfig("redis", c)
}

// RedisClient клиент Redis с жизненным циклом
type RedisClient struct {
	config RedisConfig
	client *redis.Client
	mu     sync.RWMutex
}

// NewRedisClient создает компонент. Клиент создается сразу, соединения открываются лениво.
func NewRedisClient(config RedisConfig) (*RedisClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		PoolSize:    config.PoolSize,
		MaxRetries:  config.MaxRetries,
		DialTimeout: config.DialTimeout,
	})
	return &RedisClient{config: config, client: client}, nil
}

func (r *RedisClient) Name() string {
	return "redis"
}

func (r *RedisClient) Type() core.ComponentType {
	return core.ComponentTypeStorage
}

// AsyncInit проверяет подключение
func (r *RedisClient) AsyncInit(ctx context.Context, _ core.Cradle) error {
	client := r.Client()
	if client == nil {
		return fmt.Errorf("redis client is closed")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// AsyncDispose закрывает клиента
func (r *RedisClient) AsyncDispose(ctx context.Context) error {
	r.mu.Lock()
	client := r.client
	r.client = nil
	r.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// HealthCheck выполняет PING
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	client := r.Client()
	if client == nil {
		return fmt.Errorf("redis client is closed")
	}
	return client.Ping(ctx).Err()
}

// Client возвращает клиента или nil после AsyncDispose
func (r *RedisClient) Client() *redis.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}
