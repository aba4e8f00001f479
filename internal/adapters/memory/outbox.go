package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
	"github.com/Axees-0/axeesBE-sub017/internal/ports"
)

// OutboxRepository mirrors the Postgres outbox semantics: claim-token guarded
// batch claims, retry counters, dead-letter markers.
type OutboxRepository struct {
	mu    sync.Mutex
	rows  map[string]ports.OutboxRecord
	order []string
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{rows: map[string]ports.OutboxRecord{}, order: []string{}}
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[record.RecordID]; ok {
		return domain.ErrConflict
	}
	r.rows[record.RecordID] = record
	r.order = append(r.order, record.RecordID)
	return nil
}

func (r *OutboxRepository) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	now := time.Now().UTC()
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		row, ok := r.rows[id]
		if !ok || row.PublishedAt != nil || row.DeadLetteredAt != nil {
			continue
		}
		if row.ClaimUntil != nil && row.ClaimUntil.After(now) {
			continue
		}
		row.ClaimToken = claimToken
		until := claimUntil
		row.ClaimUntil = &until
		r.rows[id] = row
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, recordID, claimToken string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[recordID]
	if !ok || row.ClaimToken != claimToken {
		return domain.ErrNotFound
	}
	row.PublishedAt = &at
	row.ClaimToken = ""
	row.ClaimUntil = nil
	r.rows[recordID] = row
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, recordID, claimToken, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[recordID]
	if !ok || row.ClaimToken != claimToken {
		return domain.ErrNotFound
	}
	row.RetryCount++
	row.LastError = errMsg
	row.LastErrorAt = &at
	row.ClaimToken = ""
	row.ClaimUntil = nil
	r.rows[recordID] = row
	return nil
}

func (r *OutboxRepository) MarkDeadLettered(_ context.Context, recordID, claimToken, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[recordID]
	if !ok || row.ClaimToken != claimToken {
		return domain.ErrNotFound
	}
	row.RetryCount++
	row.LastError = errMsg
	row.LastErrorAt = &at
	row.DeadLetteredAt = &at
	row.ClaimToken = ""
	row.ClaimUntil = nil
	r.rows[recordID] = row
	return nil
}

// Pending returns unpublished, non-dead-lettered records in enqueue order.
func (r *OutboxRepository) Pending() []ports.OutboxRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.OutboxRecord, 0)
	for _, id := range r.order {
		row, ok := r.rows[id]
		if !ok || row.PublishedAt != nil || row.DeadLetteredAt != nil {
			continue
		}
		out = append(out, row)
	}
	return out
}

// All returns every record in enqueue order, published or not.
func (r *OutboxRepository) All() []ports.OutboxRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, len(r.order))
	for _, id := range r.order {
		if row, ok := r.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out
}
