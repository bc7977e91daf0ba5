package components

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/akriventsev/potter-lifecycle/framework/core"
)

// KafkaConfig конфигурация producer Kafka
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers" yaml:"brokers" validate:"required,min=1,dive,hostname_port"`
	Topic        string        `mapstructure:"topic" yaml:"topic"`
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size" validate:"gte=0"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks" yaml:"required_acks" validate:"oneof=-1 0 1"`
	Compression  string        `mapstructure:"compression" yaml:"compression" validate:"omitempty,oneof=none gzip snappy lz4 zstd"`
	// VerifyConnection проверяет доступность брокера в AsyncInit
	VerifyConnection bool `mapstructure:"verify_connection" yaml:"verify_connection"`
}

// DefaultKafkaConfig возвращает конфигурацию Kafka по умолчанию
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:          []string{"localhost:9092"},
		BatchSize:        100,
		BatchTimeout:     10 * time.Millisecond,
		RequiredAcks:     -1,
		Compression:      "snappy",
		VerifyConnection: true,
	}
}

// Validate проверяет корректность конфигурации
func (c KafkaConfig) Validate() error {
	return validateConfig("kafka", c)
}

func compression(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}

// KafkaWriter producer Kafka с жизненным циклом.
// AsyncDispose сбрасывает буферизованные сообщения и закрывает writer.
type KafkaWriter struct {
	config KafkaConfig
	writer *kafka.Writer
	mu     sync.RWMutex
}

// NewKafkaWriter создает компонент без подключения
func NewKafkaWriter(config KafkaConfig) (*KafkaWriter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &KafkaWriter{config: config}, nil
}

func (k *KafkaWriter) Name() string {
	return "kafka"
}

func (k *KafkaWriter) Type() core.ComponentType {
	return core.ComponentTypeMessaging
}

// AsyncInit проверяет брокер (если VerifyConnection) и создает writer
func (k *KafkaWriter) AsyncInit(ctx context.Context, _ core.Cradle) error {
	if k.config.VerifyConnection {
		if err := k.ping(ctx); err != nil {
			return err
		}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(k.config.Brokers...),
		Topic:        k.config.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequiredAcks(k.config.RequiredAcks),
		BatchSize:    k.config.BatchSize,
		BatchTimeout: k.config.BatchTimeout,
		Compression:  compression(k.config.Compression),
	}

	k.mu.Lock()
	k.writer = writer
	k.mu.Unlock()
	return nil
}

// ping открывает соединение с первым доступным брокером
func (k *KafkaWriter) ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range k.config.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to reach kafka brokers %v: %w", k.config.Brokers, lastErr)
}

// AsyncDispose закрывает writer
func (k *KafkaWriter) AsyncDispose(ctx context.Context) error {
	k.mu.Lock()
	writer := k.writer
	k.writer = nil
	k.mu.Unlock()

	if writer == nil {
		return nil
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

// HealthCheck проверяет доступность брокеров
func (k *KafkaWriter) HealthCheck(ctx context.Context) error {
	if k.Writer() == nil {
		return fmt.Errorf("kafka writer is not initialized")
	}
	return k.ping(ctx)
}

// Writer возвращает writer или nil до инициализации
func (k *KafkaWriter) Writer() *kafka.Writer {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.writer
}
