package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"truowners/internal/config"
	"truowners/internal/contracts"
	"truowners/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Validator проверяет конверт события перед отправкой.
type Validator interface {
	Validate(key string, body []byte) error
}

// RabbitPublisher публикует события в topic-обменник, ключ маршрутизации = тип события.
type RabbitPublisher struct {
	url       string
	exchange  string
	validator Validator

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// New возвращает RabbitMQ-публикатор либо no-op, если брокер не настроен или недоступен.
func New(cfg *config.Config, validator Validator) Publisher {
	if cfg.RabbitMQURL == "" {
		logger.Log.Warn("RabbitMQ не настроен, события не публикуются")
		return NoopPublisher{}
	}
	p := &RabbitPublisher{url: cfg.RabbitMQURL, exchange: cfg.EventsExchange, validator: validator}
	if err := p.connect(); err != nil {
		logger.Log.Warn("RabbitMQ недоступен, события не публикуются", zap.Error(err))
		return NoopPublisher{}
	}
	logger.Log.Info("Подключение к RabbitMQ установлено", zap.String("exchange", cfg.EventsExchange))
	return p
}

// connect вызывается под mu или до начала использования.
func (p *RabbitPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %q: %w", p.exchange, err)
	}
	p.conn = conn
	p.channel = ch
	return nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := newEnvelope(ctx, eventType, payload, time.Now())
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if p.validator != nil {
		if err := p.validator.Validate(contracts.EventEnvelope, body); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.channel == nil || p.channel.IsClosed() {
		logger.Log.Warn("RabbitMQ: соединение закрыто, переподключение")
		if err := p.connect(); err != nil {
			return err
		}
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		eventType,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         eventType,
			Headers: amqp.Table{
				"event-type":    eventType,
				"event-version": envelopeVersion,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	logger.WithCtx(ctx).Debug("Событие опубликовано", zap.String("type", eventType))
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
		p.channel = nil
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NoopPublisher используется, когда брокер не настроен.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, eventType string, _ interface{}) error {
	logger.WithCtx(ctx).Debug("Событие пропущено (брокер не настроен)", zap.String("type", eventType))
	return nil
}

func (NoopPublisher) Close() error { return nil }
