package components

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/potter-lifecycle/framework/core"
)

// PostgresConfig конфигурация пула PostgreSQL
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn" yaml:"dsn" validate:"required"`
	MaxConns        int32         `mapstructure:"max_conns" yaml:"max_conns" validate:"gte=0"`
	MinConns        int32         `mapstructure:"min_conns" yaml:"min_conns" validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// DefaultPostgresConfig возвращает конфигурацию PostgreSQL по умолчанию
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c PostgresConfig) Validate() error {
	return validateConfig("postgres", c)
}

// PostgresPool пул соединений PostgreSQL.
// Пул создается и проверяется в AsyncInit, закрывается в AsyncDispose.
type PostgresPool struct {
	config PostgresConfig
	pool   *pgxpool.Pool
	mu     sync.RWMutex
}

// NewPostgresPool создает компонент без подключения к базе
func NewPostgresPool(config PostgresConfig) (*PostgresPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PostgresPool{config: config}, nil
}

func (p *PostgresPool) Name() string {
	return "postgres"
}

func (p *PostgresPool) Type() core.ComponentType {
	return core.ComponentTypeStorage
}

// AsyncInit создает пул и проверяет соединение
func (p *PostgresPool) AsyncInit(ctx context.Context, _ core.Cradle) error {
	poolConfig, err := pgxpool.ParseConfig(p.config.DSN)
	if err != nil {
		return fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	if p.config.MaxConns > 0 {
		poolConfig.MaxConns = p.config.MaxConns
	}
	poolConfig.MinConns = p.config.MinConns
	if p.config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = p.config.MaxConnLifetime
	}
	if p.config.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = p.config.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	p.mu.Lock()
	p.pool = pool
	p.mu.Unlock()
	return nil
}

// AsyncDispose закрывает пул. Повторный вызов ничего не делает.
func (p *PostgresPool) AsyncDispose(ctx context.Context) error {
	p.mu.Lock()
	pool := p.pool
	p.pool = nil
	p.mu.Unlock()

	if pool != nil {
		pool.Close()
	}
	return nil
}

// HealthCheck проверяет соединение с базой
func (p *PostgresPool) HealthCheck(ctx context.Context) error {
	pool := p.Pool()
	if pool == nil {
		return fmt.Errorf("postgres pool is not initialized")
	}
	return pool.Ping(ctx)
}

// Pool возвращает пул или nil до инициализации
func (p *PostgresPool) Pool() *pgxpool.Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pool
}
