package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OutboxRepository implements repository.OutboxRepository in memory.
type OutboxRepository struct {
	a *access
}

// Add appends an event to the outbox.
func (r *OutboxRepository) Add(_ context.Context, e *domain.OutboxEvent) error {
	return r.a.do(func(d *dataset) error {
		d.outbox = append(d.outbox, *e)
		return nil
	})
}

// ClaimPending claims up to limit unsent events, oldest first, whose claim
// is absent or expired at now.
func (r *OutboxRepository) ClaimPending(_ context.Context, limit int, now time.Time, lease time.Duration) ([]domain.OutboxEvent, error) {
	out := make([]domain.OutboxEvent, 0)
	err := r.a.do(func(d *dataset) error {
		idx := make([]int, 0)
		for i, e := range d.outbox {
			if e.SentAt == nil && (e.ClaimedUntil == nil || !e.ClaimedUntil.After(now)) {
				idx = append(idx, i)
			}
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			ea, eb := d.outbox[a], d.outbox[b]
			if c := ea.CreatedAt.Compare(eb.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(ea.ID, eb.ID)
		})
		if len(idx) > limit {
			idx = idx[:limit]
		}

		until := now.Add(lease)
		for _, i := range idx {
			d.outbox[i].ClaimedUntil = &until
			out = append(out, d.outbox[i])
		}
		return nil
	})
	return out, err
}

// MarkSent records a publish at at.
func (r *OutboxRepository) MarkSent(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(e *domain.OutboxEvent) {
		sent := at
		e.SentAt = &sent
		e.Attempts++
		e.LastError = ""
		e.ClaimedUntil = nil
	})
}

// MarkFailed records a failed publish and leaves the event pending.
func (r *OutboxRepository) MarkFailed(_ context.Context, id, reason string) error {
	return r.update(id, func(e *domain.OutboxEvent) {
		e.Attempts++
		e.LastError = reason
		e.ClaimedUntil = nil
	})
}

// Release drops the claims on ids. Unknown ids are ignored.
func (r *OutboxRepository) Release(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.a.do(func(d *dataset) error {
		for i := range d.outbox {
			if slices.Contains(ids, d.outbox[i].ID) {
				d.outbox[i].ClaimedUntil = nil
			}
		}
		return nil
	})
}

func (r *OutboxRepository) update(id string, fn func(e *domain.OutboxEvent)) error {
	return r.a.do(func(d *dataset) error {
		for i := range d.outbox {
			if d.outbox[i].ID == id {
				fn(&d.outbox[i])
				return nil
			}
		}
		return apperrors.ErrNotFound
	})
}
