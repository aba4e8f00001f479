package postgres

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// CandidateRepository implements the four eligibility queries. Each query
// applies the structural conditions SQL can express and returns assembled
// candidate tuples; policy date arithmetic happens in the application layer.
// Rows whose deal aggregate cannot be loaded are skipped and logged so one
// malformed document never aborts a scan.
type CandidateRepository struct {
	db *gorm.DB
}

func (r *CandidateRepository) ListGraceCandidates(ctx context.Context, _ time.Time, limit int) ([]domain.Candidate, error) {
	var rows []earningModel
	err := r.db.WithContext(ctx).
		Joins("JOIN deals ON deals.deal_id = earnings.deal_id").
		Where("earnings.status = ?", domain.EarningStatusEscrowed).
		Where("deals.status = ?", domain.DealStatusCompleted).
		Order("earnings.created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.assemble(ctx, rows)
}

func (r *CandidateRepository) ListAutoReleaseCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Candidate, error) {
	var rows []earningModel
	err := r.db.WithContext(ctx).
		Joins("JOIN milestones ON milestones.milestone_id = earnings.milestone_id").
		Where("earnings.status = ?", domain.EarningStatusEscrowed).
		Where("milestones.status = ?", domain.MilestoneStatusCompleted).
		Where("milestones.auto_release_date IS NOT NULL AND milestones.auto_release_date <= ?", now).
		Order("earnings.created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.assemble(ctx, rows)
}

func (r *CandidateRepository) ListScheduledCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Candidate, error) {
	var rows []earningModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.EarningStatusEscrowed).
		Where("scheduled_release_date IS NOT NULL AND scheduled_release_date <= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.assemble(ctx, rows)
}

func (r *CandidateRepository) ListAgingCandidates(ctx context.Context, oldestAllowed time.Time, limit int) ([]domain.Candidate, error) {
	var rows []earningModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.EarningStatusEscrowed).
		Where("created_at <= ?", oldestAllowed).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.assemble(ctx, rows)
}

// assemble joins each earning row with its deal aggregate. Deals are loaded
// once per batch since several earnings frequently share one deal.
func (r *CandidateRepository) assemble(ctx context.Context, rows []earningModel) ([]domain.Candidate, error) {
	deals := make(map[string]domain.Deal, len(rows))
	out := make([]domain.Candidate, 0, len(rows))
	dealRepo := &DealRepository{db: r.db}
	for _, row := range rows {
		deal, ok := deals[row.DealID]
		if !ok {
			loaded, err := dealRepo.GetByID(ctx, row.DealID)
			if err != nil {
				slog.Default().WarnContext(ctx, "candidate skipped: deal not loadable",
					"module", "postgres",
					"layer", "adapter",
					"operation", "assemble_candidates",
					"outcome", "skipped",
					"earning_id", row.EarningID,
					"deal_id", row.DealID,
					"error", err,
				)
				continue
			}
			deal = loaded
			deals[row.DealID] = deal
		}
		cand := domain.Candidate{Deal: deal, Earning: toDomainEarning(row)}
		if row.MilestoneID != "" {
			if m, found := deal.MilestoneByID(row.MilestoneID); found {
				ms := m
				cand.Milestone = &ms
			}
		}
		out = append(out, cand)
	}
	return out, nil
}
