package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// RunHistoryStore keeps run summaries in memory for tests and local runs.
type RunHistoryStore struct {
	mu        sync.Mutex
	summaries []domain.RunSummary
}

func NewRunHistoryStore() *RunHistoryStore {
	return &RunHistoryStore{}
}

func (s *RunHistoryStore) SaveSummary(_ context.Context, summary domain.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	return nil
}

func (s *RunHistoryStore) LatestSummary(_ context.Context) (domain.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.summaries) == 0 {
		return domain.RunSummary{}, domain.ErrNotFound
	}
	return s.summaries[len(s.summaries)-1], nil
}

// ApprovalNoticeStore is the in-memory dedup marker set.
type ApprovalNoticeStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewApprovalNoticeStore() *ApprovalNoticeStore {
	return &ApprovalNoticeStore{entries: map[string]time.Time{}}
}

func (s *ApprovalNoticeStore) AlreadyNotified(_ context.Context, earningID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.entries[earningID]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(expires) {
		delete(s.entries, earningID)
		return false, nil
	}
	return true, nil
}

func (s *ApprovalNoticeStore) MarkNotified(_ context.Context, earningID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[earningID] = time.Now().UTC().Add(ttl)
	return nil
}
