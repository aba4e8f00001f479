package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// Store is the shared mutex-guarded state behind the in-memory repositories.
// Claim and Finalize keep the same conditional-update semantics as the
// Postgres adapter so concurrency tests exercise the real contract.
type Store struct {
	mu           sync.Mutex
	deals        map[string]domain.Deal
	earnings     map[string]domain.Earning
	transactions map[string][]domain.PaymentTransaction
}

// Repositories bundles the port implementations over one shared Store.
type Repositories struct {
	Store      *Store
	Deals      *DealRepository
	Earnings   *EarningRepository
	Milestones *MilestoneRepository
	Candidates *CandidateRepository
	Outbox     *OutboxRepository
}

func NewRepositories() *Repositories {
	store := &Store{
		deals:        map[string]domain.Deal{},
		earnings:     map[string]domain.Earning{},
		transactions: map[string][]domain.PaymentTransaction{},
	}
	return &Repositories{
		Store:      store,
		Deals:      &DealRepository{store: store},
		Earnings:   &EarningRepository{store: store},
		Milestones: &MilestoneRepository{store: store},
		Candidates: &CandidateRepository{store: store},
		Outbox:     NewOutboxRepository(),
	}
}

// PutDeal seeds or replaces a deal aggregate.
func (s *Store) PutDeal(deal domain.Deal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals[deal.DealID] = deal
}

// PutEarning seeds or replaces a ledger row.
func (s *Store) PutEarning(earning domain.Earning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.earnings[earning.EarningID] = earning
}

// Transactions returns the mirrored payment records for a deal.
func (s *Store) Transactions(dealID string) []domain.PaymentTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PaymentTransaction(nil), s.transactions[dealID]...)
}

func copyDeal(d domain.Deal) domain.Deal {
	out := d
	out.Milestones = append([]domain.Milestone(nil), d.Milestones...)
	return out
}

type DealRepository struct {
	store *Store
}

func (r *DealRepository) GetByID(_ context.Context, dealID string) (domain.Deal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	deal, ok := r.store.deals[dealID]
	if !ok {
		return domain.Deal{}, domain.ErrNotFound
	}
	return copyDeal(deal), nil
}

func (r *DealRepository) Finalize(_ context.Context, dealID string, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	deal, ok := r.store.deals[dealID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if deal.Status == domain.DealStatusCompleted || deal.Status == domain.DealStatusCancelled {
		return false, nil
	}
	deal.Status = domain.DealStatusCompleted
	if deal.CompletedAt == nil {
		deal.CompletedAt = &at
	}
	deal.UpdatedAt = at
	r.store.deals[dealID] = deal
	return true, nil
}

func (r *DealRepository) AppendReleaseTransaction(_ context.Context, dealID string, tx domain.PaymentTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.deals[dealID]; !ok {
		return domain.ErrNotFound
	}
	r.store.transactions[dealID] = append(r.store.transactions[dealID], tx)
	return nil
}

type MilestoneRepository struct {
	store *Store
}

func (r *MilestoneRepository) Complete(_ context.Context, dealID, milestoneID string, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	deal, ok := r.store.deals[dealID]
	if !ok {
		return false, domain.ErrNotFound
	}
	for i, m := range deal.Milestones {
		if m.MilestoneID != milestoneID {
			continue
		}
		if m.IsTerminal() {
			return false, nil
		}
		m.Status = domain.MilestoneStatusCompleted
		m.CompletedAt = &at
		m.ReleaseScheduled = false
		m.UpdatedAt = at
		deal.Milestones[i] = m
		r.store.deals[dealID] = deal
		return true, nil
	}
	return false, domain.ErrNotFound
}

type EarningRepository struct {
	store *Store
}

func (r *EarningRepository) GetByID(_ context.Context, earningID string) (domain.Earning, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	earning, ok := r.store.earnings[earningID]
	if !ok {
		return domain.Earning{}, domain.ErrNotFound
	}
	return earning, nil
}

func (r *EarningRepository) Claim(_ context.Context, earningID string, release domain.ReleaseDetails) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	earning, ok := r.store.earnings[earningID]
	if !ok || earning.Status != domain.EarningStatusEscrowed {
		// Same shape as a zero-row conditional UPDATE: lost claim, not error.
		return false, nil
	}
	earning.Status = domain.EarningStatusCompleted
	earning.ReleasedAt = &release.ReleasedAt
	earning.ReleaseType = release.ReleaseType
	earning.ReleaseReason = release.Reason
	earning.UpdatedAt = release.ReleasedAt
	r.store.earnings[earningID] = earning
	return true, nil
}

func (r *EarningRepository) Approve(_ context.Context, earningID, approvedBy string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	earning, ok := r.store.earnings[earningID]
	if !ok {
		return domain.ErrNotFound
	}
	if earning.Status != domain.EarningStatusEscrowed {
		return domain.ErrEarningNotEscrowed
	}
	earning.ApprovedAt = &at
	earning.ApprovedBy = approvedBy
	earning.UpdatedAt = at
	r.store.earnings[earningID] = earning
	return nil
}

func (r *EarningRepository) ScheduleRelease(_ context.Context, earningID string, releaseAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	earning, ok := r.store.earnings[earningID]
	if !ok {
		return domain.ErrNotFound
	}
	if earning.Status != domain.EarningStatusEscrowed {
		return domain.ErrEarningNotEscrowed
	}
	earning.ScheduledReleaseDate = &releaseAt
	r.store.earnings[earningID] = earning
	return nil
}

func (r *EarningRepository) CountEscrowedByDeal(_ context.Context, dealID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, e := range r.store.earnings {
		if e.DealID == dealID && e.Status == domain.EarningStatusEscrowed {
			n++
		}
	}
	return n, nil
}

type CandidateRepository struct {
	store *Store
}

func (s *Store) escrowedSorted() []domain.Earning {
	out := make([]domain.Earning, 0, len(s.earnings))
	for _, e := range s.earnings {
		if e.Status == domain.EarningStatusEscrowed {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EarningID < out[j].EarningID })
	return out
}

func (s *Store) candidateFor(e domain.Earning) (domain.Candidate, bool) {
	deal, ok := s.deals[e.DealID]
	if !ok {
		return domain.Candidate{}, false
	}
	cand := domain.Candidate{Deal: copyDeal(deal), Earning: e}
	if e.MilestoneID != "" {
		if m, found := cand.Deal.MilestoneByID(e.MilestoneID); found {
			ms := m
			cand.Milestone = &ms
		}
	}
	return cand, true
}

func (r *CandidateRepository) ListGraceCandidates(_ context.Context, _ time.Time, limit int) ([]domain.Candidate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.Candidate, 0)
	for _, e := range r.store.escrowedSorted() {
		deal, ok := r.store.deals[e.DealID]
		if !ok || deal.Status != domain.DealStatusCompleted {
			continue
		}
		if cand, found := r.store.candidateFor(e); found {
			out = append(out, cand)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *CandidateRepository) ListAutoReleaseCandidates(_ context.Context, now time.Time, limit int) ([]domain.Candidate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.Candidate, 0)
	for _, e := range r.store.escrowedSorted() {
		if e.MilestoneID == "" {
			continue
		}
		deal, ok := r.store.deals[e.DealID]
		if !ok {
			continue
		}
		m, found := deal.MilestoneByID(e.MilestoneID)
		if !found || m.Status != domain.MilestoneStatusCompleted {
			continue
		}
		if m.AutoReleaseDate == nil || m.AutoReleaseDate.After(now) {
			continue
		}
		if cand, ok := r.store.candidateFor(e); ok {
			out = append(out, cand)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *CandidateRepository) ListScheduledCandidates(_ context.Context, now time.Time, limit int) ([]domain.Candidate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.Candidate, 0)
	for _, e := range r.store.escrowedSorted() {
		if e.ScheduledReleaseDate == nil || e.ScheduledReleaseDate.After(now) {
			continue
		}
		if cand, ok := r.store.candidateFor(e); ok {
			out = append(out, cand)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *CandidateRepository) ListAgingCandidates(_ context.Context, oldestAllowed time.Time, limit int) ([]domain.Candidate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.Candidate, 0)
	for _, e := range r.store.escrowedSorted() {
		if e.CreatedAt.After(oldestAllowed) {
			continue
		}
		if cand, ok := r.store.candidateFor(e); ok {
			out = append(out, cand)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
