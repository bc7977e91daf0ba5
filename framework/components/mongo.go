package components

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akriventsev/potter-lifecycle/framework/core"
)

// MongoConfig конфигурация клиента MongoDB
type MongoConfig struct {
	URI         string        `mapstructure:"uri" yaml:"uri" validate:"required,startswith=mongodb"`
	Database    string        `mapstructure:"database" yaml:"database" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxPoolSize uint64        `mapstructure:"max_pool_size" yaml:"max_pool_size"`
	MinPoolSize uint64        `mapstructure:"min_pool_size" yaml:"min_pool_size"`
}

// DefaultMongoConfig возвращает конфигурацию MongoDB по умолчанию
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		Database:    "potter",
		Timeout:     10 * time.Second,
		MaxPoolSize: 100,
		MinPoolSize: 10,
	}
}

// Validate проверяет корректность конфигурации
func (c MongoConfig) Validate() error {
	return validateConfig("mongodb", c)
}

// MongoClient клиент MongoDB с жизненным циклом
type MongoClient struct {
	config MongoConfig
	client *mongo.Client
	mu     sync.RWMutex
}

// NewMongoClient создает компонент без подключения
func NewMongoClient(config MongoConfig) (*MongoClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &MongoClient{config: config}, nil
}

func (m *MongoClient) Name() string {
	return "mongodb"
}

func (m *MongoClient) Type() core.ComponentType {
	return core.ComponentTypeStorage
}

// AsyncInit подключается и проверяет соединение
func (m *MongoClient) AsyncInit(ctx context.Context, _ core.Cradle) error {
	opts := options.Client().ApplyURI(m.config.URI)
	if m.config.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(m.config.MaxPoolSize)
	}
	if m.config.MinPoolSize > 0 {
		opts.SetMinPoolSize(m.config.MinPoolSize)
	}
	if m.config.Timeout > 0 {
		opts.SetTimeout(m.config.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
	return nil
}

// AsyncDispose отключает клиента
func (m *MongoClient) AsyncDispose(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

// HealthCheck проверяет соединение
func (m *MongoClient) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("mongodb client is not initialized")
	}
	return client.Ping(ctx, nil)
}

// Database возвращает базу из конфигурации или nil до инициализации
func (m *MongoClient) Database() *mongo.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil
	}
	return m.client.Database(m.config.Database)
}
