package application

import (
	"log/slog"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
	"github.com/Axees-0/axeesBE-sub017/internal/ports"
)

type Config struct {
	ServiceName         string
	Policies            domain.PolicyConfig
	WorkerConcurrency   int
	ScanBatchSize       int
	StoreTimeout        time.Duration
	ErrorAlertThreshold int
	ApprovalNoticeTTL   time.Duration
}

// Service is the release engine: rule catalog, eligibility scanner,
// claim-and-release transactor, deal finalizer and run orchestrator behind a
// single RunOnce entry point. It is stateless between invocations and safe to
// call from overlapping schedule triggers; correctness rests on the store's
// conditional claim, not on any in-process lock.
type Service struct {
	cfg             Config
	logger          *slog.Logger
	candidates      ports.CandidateRepository
	earnings        ports.EarningRepository
	deals           ports.DealRepository
	milestones      ports.MilestoneRepository
	outbox          ports.OutboxRepository
	runHistory      ports.RunHistoryStore
	approvalNotices ports.ApprovalNoticeStore
	nowFn           func() time.Time
}

type Dependencies struct {
	Config          Config
	Logger          *slog.Logger
	Candidates      ports.CandidateRepository
	Earnings        ports.EarningRepository
	Deals           ports.DealRepository
	Milestones      ports.MilestoneRepository
	Outbox          ports.OutboxRepository
	RunHistory      ports.RunHistoryStore
	ApprovalNotices ports.ApprovalNoticeStore
	Now             func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "Escrow-Release-Engine"
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 8
	}
	if cfg.ScanBatchSize <= 0 {
		cfg.ScanBatchSize = 500
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}
	if cfg.ErrorAlertThreshold <= 0 {
		cfg.ErrorAlertThreshold = 5
	}
	if cfg.ApprovalNoticeTTL <= 0 {
		cfg.ApprovalNoticeTTL = 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:             cfg,
		logger:          logger,
		candidates:      deps.Candidates,
		earnings:        deps.Earnings,
		deals:           deps.Deals,
		milestones:      deps.Milestones,
		outbox:          deps.Outbox,
		runHistory:      deps.RunHistory,
		approvalNotices: deps.ApprovalNotices,
		nowFn:           nowFn,
	}
}

// ResolvePolicy exposes the rule catalog for the operator API.
func (s *Service) ResolvePolicy(deal domain.Deal) domain.ReleasePolicy {
	return domain.ResolvePolicy(s.cfg.Policies, deal)
}
