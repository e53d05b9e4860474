package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Publisher sends an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// RelayConfig tunes the outbox relay.
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// ClaimTTL bounds how long a claimed batch is hidden from other relays.
	ClaimTTL time.Duration
}

// OutboxRelay moves committed outbox rows to Kafka.
type OutboxRelay struct {
	uow       repository.UnitOfWork
	publisher Publisher
	cfg       RelayConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewOutboxRelay creates a relay. Zero config values fall back to one
// second, 100 rows and a 30 second claim.
func NewOutboxRelay(uow repository.UnitOfWork, publisher Publisher, cfg RelayConfig, logger *slog.Logger) *OutboxRelay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 30 * time.Second
	}
	return &OutboxRelay{
		uow:       uow,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run relays on every tick until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "outbox relay started",
		slog.Duration("poll_interval", r.cfg.PollInterval),
		slog.Int("batch_size", r.cfg.BatchSize),
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "outbox relay tick failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many events were sent.
// Rows are claimed and settled in short units of work; publishing happens
// outside them. The batch stops at the first publish failure so events of
// one order keep their order; the failed row and the rest of the batch go
// back to pending.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	var pending []domain.OutboxEvent
	err := r.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		pending, err = repos.Outbox.ClaimPending(ctx, r.cfg.BatchSize, r.now(), r.cfg.ClaimTTL)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("relay outbox: %w", err)
	}

	sent := 0
	for i, row := range pending {
		ev, err := pkgkafka.UnmarshalEvent(row.Payload)
		if err != nil {
			// A row that cannot be decoded will never publish; park it.
			r.logger.ErrorContext(ctx, "undecodable outbox event",
				slog.String("event_id", row.ID),
				slog.String("error", err.Error()),
			)
			if err := r.settle(ctx, func(ctx context.Context, outbox repository.OutboxRepository) error {
				return outbox.MarkSent(ctx, row.ID, r.now())
			}); err != nil {
				return sent, err
			}
			continue
		}

		if err := r.publisher.Publish(ctx, row.Topic, ev); err != nil {
			r.logger.WarnContext(ctx, "outbox publish failed, will retry",
				slog.String("event_id", row.ID),
				slog.String("topic", row.Topic),
				slog.Int("attempts", row.Attempts+1),
				slog.String("error", err.Error()),
			)
			rest := make([]string, 0, len(pending)-i-1)
			for _, e := range pending[i+1:] {
				rest = append(rest, e.ID)
			}
			reason := err.Error()
			return sent, r.settle(ctx, func(ctx context.Context, outbox repository.OutboxRepository) error {
				if err := outbox.MarkFailed(ctx, row.ID, reason); err != nil {
					return err
				}
				return outbox.Release(ctx, rest)
			})
		}

		if err := r.settle(ctx, func(ctx context.Context, outbox repository.OutboxRepository) error {
			return outbox.MarkSent(ctx, row.ID, r.now())
		}); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// settle records the outcome of a publish in its own unit of work. A row
// left claimed by a failed settle is picked up again once its claim expires.
func (r *OutboxRelay) settle(ctx context.Context, fn func(ctx context.Context, outbox repository.OutboxRepository) error) error {
	err := r.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return fn(ctx, repos.Outbox)
	})
	if err != nil {
		return fmt.Errorf("settle outbox event: %w", err)
	}
	return nil
}
