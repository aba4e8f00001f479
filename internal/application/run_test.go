package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Axees-0/axeesBE-sub017/internal/adapters/memory"
	"github.com/Axees-0/axeesBE-sub017/internal/domain"
	"github.com/Axees-0/axeesBE-sub017/internal/ports"
)

var testNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

type testEngine struct {
	svc     *Service
	repos   *memory.Repositories
	history *memory.RunHistoryStore
	notices *memory.ApprovalNoticeStore
}

func newTestEngine(t *testing.T, mutate func(*Dependencies)) *testEngine {
	t.Helper()
	repos := memory.NewRepositories()
	history := memory.NewRunHistoryStore()
	notices := memory.NewApprovalNoticeStore()
	deps := Dependencies{
		Config: Config{
			Policies:          domain.DefaultPolicyConfig(),
			WorkerConcurrency: 4,
		},
		Candidates:      repos.Candidates,
		Earnings:        repos.Earnings,
		Deals:           repos.Deals,
		Milestones:      repos.Milestones,
		Outbox:          repos.Outbox,
		RunHistory:      history,
		ApprovalNotices: notices,
		Now:             func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testEngine{
		svc:     NewService(deps),
		repos:   repos,
		history: history,
		notices: notices,
	}
}

func daysAgo(n int) time.Time {
	return testNow.Add(-time.Duration(n) * 24 * time.Hour)
}

func seedStandardDeal(e *testEngine, dealID, earningID string, amount float64, escrowedDays int) {
	e.repos.Store.PutDeal(domain.Deal{
		DealID:        dealID,
		MarketerID:    "marketer-1",
		CreatorID:     "creator-1",
		Status:        domain.DealStatusActive,
		PaymentAmount: amount,
		Currency:      "USD",
		CreatedAt:     daysAgo(escrowedDays),
	})
	e.repos.Store.PutEarning(domain.Earning{
		EarningID: earningID,
		DealID:    dealID,
		CreatorID: "creator-1",
		Amount:    amount,
		Currency:  "USD",
		Status:    domain.EarningStatusEscrowed,
		CreatedAt: daysAgo(escrowedDays),
	})
}

func outboxEventTypes(e *testEngine) map[string]int {
	counts := map[string]int{}
	for _, rec := range e.repos.Outbox.All() {
		counts[rec.EventType]++
	}
	return counts
}

func TestRunOnceReleasesOverdueStandardEscrow(t *testing.T) {
	e := newTestEngine(t, nil)
	seedStandardDeal(e, "deal-1", "earn-1", 120, 31)

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Released)
	assert.Equal(t, float64(120), summary.AmountReleased)
	assert.False(t, summary.Partial)
	assert.Equal(t, 1, summary.Classes[domain.ClassOverdueEscrow].Released)

	earning, err := e.repos.Earnings.GetByID(context.Background(), "earn-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EarningStatusCompleted, earning.Status)
	assert.Equal(t, domain.ReleaseTypeOverdueEscrow, earning.ReleaseType)
	assert.Equal(t, "Maximum escrow period of 30 days exceeded", earning.ReleaseReason)
	require.NotNil(t, earning.ReleasedAt)
	assert.Equal(t, testNow, *earning.ReleasedAt)

	txs := e.repos.Store.Transactions("deal-1")
	require.Len(t, txs, 1)
	assert.Equal(t, "earn-1", txs[0].EarningID)
	assert.Equal(t, domain.ReleaseTypeOverdueEscrow, txs[0].ReleaseType)

	counts := outboxEventTypes(e)
	assert.Equal(t, 1, counts[domain.EventEarningReleased])
	assert.Equal(t, 1, counts[domain.EventReleaseRunCompleted])
}

func TestRunOnceIsIdempotentAcrossRuns(t *testing.T) {
	e := newTestEngine(t, nil)
	seedStandardDeal(e, "deal-1", "earn-1", 250, 40)

	first, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)
	require.Equal(t, 1, first.Released)

	second, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)
	assert.Zero(t, second.Released)
	assert.Zero(t, second.AmountReleased)

	counts := outboxEventTypes(e)
	assert.Equal(t, 1, counts[domain.EventEarningReleased])
}

func TestRunOnceCompletedDealGraceClass(t *testing.T) {
	e := newTestEngine(t, nil)

	elapsed := daysAgo(8)
	e.repos.Store.PutDeal(domain.Deal{
		DealID:        "deal-due",
		MarketerID:    "marketer-1",
		CreatorID:     "creator-1",
		Status:        domain.DealStatusCompleted,
		PaymentAmount: 400,
		CompletedAt:   &elapsed,
		CreatedAt:     daysAgo(20),
	})
	e.repos.Store.PutEarning(domain.Earning{
		EarningID: "earn-due",
		DealID:    "deal-due",
		Amount:    400,
		Status:    domain.EarningStatusEscrowed,
		CreatedAt: daysAgo(20),
	})

	recent := daysAgo(3)
	e.repos.Store.PutDeal(domain.Deal{
		DealID:        "deal-recent",
		Status:        domain.DealStatusCompleted,
		PaymentAmount: 400,
		CompletedAt:   &recent,
		CreatedAt:     daysAgo(10),
	})
	e.repos.Store.PutEarning(domain.Earning{
		EarningID: "earn-recent",
		DealID:    "deal-recent",
		Amount:    400,
		Status:    domain.EarningStatusEscrowed,
		CreatedAt: daysAgo(10),
	})

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Released)
	assert.Equal(t, 2, summary.Classes[domain.ClassCompletedDealGrace].Scanned)
	assert.Equal(t, 1, summary.Classes[domain.ClassCompletedDealGrace].Released)

	released, err := e.repos.Earnings.GetByID(context.Background(), "earn-due")
	require.NoError(t, err)
	assert.Equal(t, domain.ReleaseTypeAutomaticCompletion, released.ReleaseType)
	assert.Equal(t, "Deal completed and 7-day grace period elapsed", released.ReleaseReason)

	held, err := e.repos.Earnings.GetByID(context.Background(), "earn-recent")
	require.NoError(t, err)
	assert.Equal(t, domain.EarningStatusEscrowed, held.Status)
}

func TestRunOnceMilestoneAutoReleaseClass(t *testing.T) {
	e := newTestEngine(t, nil)

	due := daysAgo(1)
	completed := daysAgo(4)
	e.repos.Store.PutDeal(domain.Deal{
		DealID:        "deal-ms",
		Status:        domain.DealStatusActive,
		PaymentAmount: 900,
		CreatedAt:     daysAgo(10),
		Milestones: []domain.Milestone{
			{
				MilestoneID:     "ms-1",
				DealID:          "deal-ms",
				Status:          domain.MilestoneStatusCompleted,
				Amount:          450,
				AutoReleaseDate: &due,
				CompletedAt:     &completed,
			},
			{
				MilestoneID: "ms-2",
				DealID:      "deal-ms",
				Status:      domain.MilestoneStatusFunded,
				Amount:      450,
			},
		},
	})
	e.repos.Store.PutEarning(domain.Earning{
		EarningID:   "earn-ms",
		DealID:      "deal-ms",
		MilestoneID: "ms-1",
		Amount:      450,
		Status:      domain.EarningStatusEscrowed,
		CreatedAt:   daysAgo(10),
	})

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Classes[domain.ClassMilestoneAutoRelease].Released)
	earning, err := e.repos.Earnings.GetByID(context.Background(), "earn-ms")
	require.NoError(t, err)
	assert.Equal(t, domain.ReleaseTypeAutomaticMilestone, earning.ReleaseType)
	assert.Equal(t, "Milestone auto-release date reached", earning.ReleaseReason)

	// Second milestone is still funded, so the deal must not be finalized.
	deal, err := e.repos.Deals.GetByID(context.Background(), "deal-ms")
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusActive, deal.Status)
	assert.Zero(t, summary.DealsCompleted)
}

func TestRunOnceMarketerScheduledClassAndFinalization(t *testing.T) {
	e := newTestEngine(t, nil)

	scheduled := testNow.Add(-time.Hour)
	e.repos.Store.PutDeal(domain.Deal{
		DealID:        "deal-sched",
		MarketerID:    "marketer-1",
		CreatorID:     "creator-1",
		Status:        domain.DealStatusActive,
		PaymentAmount: 300,
		CreatedAt:     daysAgo(5),
	})
	e.repos.Store.PutEarning(domain.Earning{
		EarningID:            "earn-sched",
		DealID:               "deal-sched",
		Amount:               300,
		Status:               domain.EarningStatusEscrowed,
		ScheduledReleaseDate: &scheduled,
		CreatedAt:            daysAgo(5),
	})

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Classes[domain.ClassMarketerScheduled].Released)
	earning, err := e.repos.Earnings.GetByID(context.Background(), "earn-sched")
	require.NoError(t, err)
	assert.Equal(t, domain.ReleaseTypeScheduled, earning.ReleaseType)
	assert.Equal(t, "Marketer-scheduled release date reached", earning.ReleaseReason)

	// Last escrow on the deal is gone and there are no open milestones, so
	// the finalizer promotes the deal in the same run.
	deal, err := e.repos.Deals.GetByID(context.Background(), "deal-sched")
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusCompleted, deal.Status)
	require.NotNil(t, deal.CompletedAt)
	assert.Equal(t, 1, summary.DealsCompleted)

	counts := outboxEventTypes(e)
	assert.Equal(t, 1, counts[domain.EventDealCompleted])
}

func TestRunOnceApprovalGateHoldsHighValueRelease(t *testing.T) {
	e := newTestEngine(t, nil)
	seedStandardDeal(e, "deal-hv", "earn-hv", 6000, 50)

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)

	assert.Zero(t, summary.Released)
	require.Len(t, summary.AwaitingApproval, 1)
	hold := summary.AwaitingApproval[0]
	assert.Equal(t, "earn-hv", hold.EarningID)
	assert.Equal(t, domain.PolicyHighValue, hold.Policy)

	earning, err := e.repos.Earnings.GetByID(context.Background(), "earn-hv")
	require.NoError(t, err)
	assert.Equal(t, domain.EarningStatusEscrowed, earning.Status)

	counts := outboxEventTypes(e)
	assert.Equal(t, 1, counts[domain.EventReleaseApprovalRequired])

	// A second run holds again but the operator notice is deduplicated.
	_, err = e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)
	counts = outboxEventTypes(e)
	assert.Equal(t, 1, counts[domain.EventReleaseApprovalRequired])

	// Operator approval clears the gate for the next run.
	require.NoError(t, e.repos.Earnings.Approve(context.Background(), "earn-hv", "admin-1", testNow))
	after, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, after.Released)
	released, err := e.repos.Earnings.GetByID(context.Background(), "earn-hv")
	require.NoError(t, err)
	assert.Equal(t, domain.EarningStatusCompleted, released.Status)
	assert.Equal(t, domain.ReleaseTypeOverdueEscrow, released.ReleaseType)
}

func TestRunOnceConcurrentRunsClaimAtMostOnce(t *testing.T) {
	e := newTestEngine(t, nil)
	const n = 8
	for i := 0; i < n; i++ {
		seedStandardDeal(e, fmt.Sprintf("deal-%02d", i), fmt.Sprintf("earn-%02d", i), 100, 35)
	}

	var wg sync.WaitGroup
	summaries := make([]domain.RunSummary, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			summaries[i], errs[i] = e.svc.RunOnce(context.Background(), "manual")
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	total := summaries[0].Released + summaries[1].Released
	assert.Equal(t, n, total)

	for i := 0; i < n; i++ {
		earning, err := e.repos.Earnings.GetByID(context.Background(), fmt.Sprintf("earn-%02d", i))
		require.NoError(t, err)
		assert.Equal(t, domain.EarningStatusCompleted, earning.Status)
	}

	counts := outboxEventTypes(e)
	assert.Equal(t, n, counts[domain.EventEarningReleased])
}

// failingEarnings wraps the in-memory ledger and fails Claim for chosen IDs.
type failingEarnings struct {
	ports.EarningRepository
	failIDs map[string]bool
}

func (f *failingEarnings) Claim(ctx context.Context, earningID string, release domain.ReleaseDetails) (bool, error) {
	if f.failIDs[earningID] {
		return false, fmt.Errorf("connection reset by peer")
	}
	return f.EarningRepository.Claim(ctx, earningID, release)
}

func TestRunOnceIsolatesItemErrors(t *testing.T) {
	e := newTestEngine(t, func(deps *Dependencies) {
		deps.Earnings = &failingEarnings{
			EarningRepository: deps.Earnings,
			failIDs:           map[string]bool{"earn-04": true},
		}
	})
	for i := 0; i < 10; i++ {
		seedStandardDeal(e, fmt.Sprintf("deal-%02d", i), fmt.Sprintf("earn-%02d", i), 50, 35)
	}

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 9, summary.Released)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "earn-04", summary.Errors[0].EarningID)
	assert.Contains(t, summary.Errors[0].Message, "claim earning")
	assert.False(t, summary.Partial)

	// The failed earning is untouched and picked up by the next healthy run.
	held, err := e.repos.Earnings.GetByID(context.Background(), "earn-04")
	require.NoError(t, err)
	assert.Equal(t, domain.EarningStatusEscrowed, held.Status)
}

// flakyEarnings fails Claim a fixed number of times per earning before
// handing through to the in-memory ledger.
type flakyEarnings struct {
	ports.EarningRepository
	mu       sync.Mutex
	failures map[string]int
}

func (f *flakyEarnings) Claim(ctx context.Context, earningID string, release domain.ReleaseDetails) (bool, error) {
	f.mu.Lock()
	if f.failures[earningID] > 0 {
		f.failures[earningID]--
		f.mu.Unlock()
		return false, fmt.Errorf("write tcp: i/o timeout")
	}
	f.mu.Unlock()
	return f.EarningRepository.Claim(ctx, earningID, release)
}

func TestRunOnceRetriesTransientClaimFailure(t *testing.T) {
	e := newTestEngine(t, func(deps *Dependencies) {
		deps.Earnings = &flakyEarnings{
			EarningRepository: deps.Earnings,
			failures:          map[string]int{"earn-1": 1},
		}
	})
	seedStandardDeal(e, "deal-1", "earn-1", 100, 35)

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)

	// One transient failure is absorbed by the retry, not surfaced.
	assert.Equal(t, 1, summary.Released)
	assert.Empty(t, summary.Errors)

	earning, err := e.repos.Earnings.GetByID(context.Background(), "earn-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EarningStatusCompleted, earning.Status)
}

func TestRunOnceSkipsOrphanedEarningRows(t *testing.T) {
	e := newTestEngine(t, nil)
	seedStandardDeal(e, "deal-1", "earn-1", 100, 35)

	// Escrowed row pointing at a deal that no longer loads. It must be
	// skipped during the scan without failing the run or the batch.
	e.repos.Store.PutEarning(domain.Earning{
		EarningID: "earn-orphan",
		DealID:    "deal-gone",
		Amount:    75,
		Status:    domain.EarningStatusEscrowed,
		CreatedAt: daysAgo(35),
	})

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Released)
	assert.Empty(t, summary.Errors)
	assert.False(t, summary.Partial)

	released, err := e.repos.Earnings.GetByID(context.Background(), "earn-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EarningStatusCompleted, released.Status)

	orphan, err := e.repos.Earnings.GetByID(context.Background(), "earn-orphan")
	require.NoError(t, err)
	assert.Equal(t, domain.EarningStatusEscrowed, orphan.Status)
}

// failingCandidates simulates a store outage during the eligibility scan.
type failingCandidates struct {
	ports.CandidateRepository
}

func (f *failingCandidates) ListGraceCandidates(context.Context, time.Time, int) ([]domain.Candidate, error) {
	return nil, fmt.Errorf("dial tcp: connection refused")
}

func TestRunOnceScanFailureAbortsWithPartialSummary(t *testing.T) {
	e := newTestEngine(t, func(deps *Dependencies) {
		deps.Candidates = &failingCandidates{CandidateRepository: deps.Candidates}
	})
	seedStandardDeal(e, "deal-1", "earn-1", 100, 35)

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.ErrorIs(t, err, domain.ErrScanFailed)
	assert.True(t, summary.Partial)
	assert.Zero(t, summary.Released)

	// The aborted run is still recorded for operators.
	latest, histErr := e.history.LatestSummary(context.Background())
	require.NoError(t, histErr)
	assert.Equal(t, summary.RunID, latest.RunID)
	assert.True(t, latest.Partial)
}

func TestRunOnceCancelledContextReturnsPartialSummary(t *testing.T) {
	e := newTestEngine(t, nil)
	seedStandardDeal(e, "deal-1", "earn-1", 100, 35)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := e.svc.RunOnce(ctx, "manual")
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Partial)

	// The summary still lands in the history store despite the dead context.
	latest, histErr := e.history.LatestSummary(context.Background())
	require.NoError(t, histErr)
	assert.Equal(t, summary.RunID, latest.RunID)
}

func TestRunOnceAlertsWhenErrorThresholdReached(t *testing.T) {
	e := newTestEngine(t, func(deps *Dependencies) {
		deps.Config.ErrorAlertThreshold = 3
		deps.Earnings = &failingEarnings{
			EarningRepository: deps.Earnings,
			failIDs: map[string]bool{
				"earn-00": true, "earn-01": true, "earn-02": true,
			},
		}
	})
	for i := 0; i < 4; i++ {
		seedStandardDeal(e, fmt.Sprintf("deal-%02d", i), fmt.Sprintf("earn-%02d", i), 50, 35)
	}

	summary, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)
	assert.Len(t, summary.Errors, 3)

	counts := outboxEventTypes(e)
	assert.Equal(t, 1, counts[domain.EventReleaseRunAlert])
}
