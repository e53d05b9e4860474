package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/pkg/logger"
)

const (
	defaultHandlerRetries = 3
	defaultRetryBackoff   = 100 * time.Millisecond
)

// Handler processes one event.
type Handler func(ctx context.Context, event *Event) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the consumer dead-letters the
// message on the first failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers      []string
	GroupID      string
	Topic        string
	MinBytes     int
	MaxBytes     int
	Retries      int
	RetryBackoff time.Duration
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group and commits each message after
// its handler succeeded, was retried to exhaustion, or failed permanently.
type Consumer struct {
	reader    MessageReader
	topic     string
	group     string
	retries   int
	backoff   time.Duration
	handler   Handler
	dlq       *DLQProducer
	metrics   *Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	closeOnce sync.Once
}

// ConsumerOption customises a Consumer.
type ConsumerOption func(*Consumer)

// WithDLQ routes messages that exhausted their retries to dlq.
func WithDLQ(dlq *DLQProducer) ConsumerOption {
	return func(c *Consumer) { c.dlq = dlq }
}

// WithConsumerMetrics records consumer metrics on m.
func WithConsumerMetrics(m *Metrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

// NewConsumer creates a consumer backed by a kafka-go reader.
func NewConsumer(cfg ConsumerConfig, handler Handler, log *slog.Logger, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, cfg, handler, log, opts...)
}

// NewConsumerWithReader creates a consumer on top of an existing reader.
func NewConsumerWithReader(r MessageReader, cfg ConsumerConfig, handler Handler, log *slog.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:  r,
		topic:   cfg.Topic,
		group:   cfg.GroupID,
		retries: cfg.Retries,
		backoff: cfg.RetryBackoff,
		handler: handler,
		logger:  log,
		tracer:  otel.Tracer("github.com/utafrali/storefront/pkg/kafka"),
	}
	if c.retries <= 0 {
		c.retries = defaultHandlerRetries
	}
	if c.backoff <= 0 {
		c.backoff = defaultRetryBackoff
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started",
		slog.String("topic", c.topic),
		slog.String("group", c.group),
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("topic", c.topic))
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
			continue
		}
		if c.metrics != nil {
			c.metrics.MessagesReceived.WithLabelValues(c.topic, c.group).Inc()
		}

		if stop := c.process(ctx, msg); stop {
			return c.Close()
		}
	}
}

// process handles a single message and reports whether ctx ended mid-retry.
// A message is left uncommitted in that case so it is redelivered.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.String("error", err.Error()),
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
		)
		c.deadLetter(ctx, msg, err)
		c.commit(ctx, msg)
		return false
	}

	msgCtx := ExtractTraceContext(ctx, &msg)
	if event.CorrelationID != "" {
		msgCtx = logger.WithCorrelationID(msgCtx, event.CorrelationID)
	}
	msgCtx, span := c.tracer.Start(msgCtx, "kafka.consume "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", c.topic),
			attribute.String("messaging.consumer.group.name", c.group),
			attribute.String("messaging.message.id", event.EventID),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		lastErr = c.handler(msgCtx, event)
		if lastErr == nil || IsPermanent(lastErr) {
			break
		}
		c.logger.WarnContext(msgCtx, "handler failed, will retry",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", c.retries),
		)
		if attempt < c.retries {
			select {
			case <-ctx.Done():
				span.SetStatus(codes.Error, "cancelled during retry")
				return true
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
	}
	if c.metrics != nil {
		c.metrics.ProcessingDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())
	}

	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
		if c.metrics != nil {
			c.metrics.MessagesFailed.WithLabelValues(c.topic, c.group).Inc()
		}
		c.logger.ErrorContext(msgCtx, "handler failed, skipping message",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
			slog.Int64("offset", msg.Offset),
			slog.Bool("permanent", IsPermanent(lastErr)),
		)
		c.deadLetter(msgCtx, msg, lastErr)
	} else if c.metrics != nil {
		c.metrics.MessagesProcessed.WithLabelValues(c.topic, c.group).Inc()
	}

	c.commit(ctx, msg)
	return false
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.group); err != nil {
		return
	}
	if c.metrics != nil {
		c.metrics.DLQPublished.WithLabelValues(c.topic, c.group).Inc()
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			slog.String("error", err.Error()),
			slog.Int64("offset", msg.Offset),
		)
	}
}

// Close closes the consumer. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
