package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// Repositories bundles the GORM-backed port implementations.
type Repositories struct {
	Deals      *DealRepository
	Earnings   *EarningRepository
	Milestones *MilestoneRepository
	Candidates *CandidateRepository
	Outbox     *OutboxRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Deals:      &DealRepository{db: db},
		Earnings:   &EarningRepository{db: db},
		Milestones: &MilestoneRepository{db: db},
		Candidates: &CandidateRepository{db: db},
		Outbox:     &OutboxRepository{db: db},
	}
}

type DealRepository struct {
	db *gorm.DB
}

func (r *DealRepository) GetByID(ctx context.Context, dealID string) (domain.Deal, error) {
	var row dealModel
	if err := r.db.WithContext(ctx).First(&row, "deal_id = ?", dealID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Deal{}, domain.ErrNotFound
		}
		return domain.Deal{}, err
	}
	var milestones []milestoneModel
	if err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at ASC").
		Find(&milestones).Error; err != nil {
		return domain.Deal{}, err
	}
	return toDomainDeal(row, milestones), nil
}

// Finalize promotes active/accepted deals to completed in one conditional
// statement; completed_at is only written when unset so re-runs never move
// it. Zero rows affected means another run finalized first.
func (r *DealRepository) Finalize(ctx context.Context, dealID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&dealModel{}).
		Where("deal_id = ?", dealID).
		Where("status IN ?", []string{domain.DealStatusActive, domain.DealStatusAccepted}).
		Updates(map[string]any{
			"status":       domain.DealStatusCompleted,
			"completed_at": gorm.Expr("COALESCE(completed_at, ?)", at),
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DealRepository) AppendReleaseTransaction(ctx context.Context, dealID string, tx domain.PaymentTransaction) error {
	payload, err := json.Marshal([]domain.PaymentTransaction{tx})
	if err != nil {
		return fmt.Errorf("marshal payment transaction: %w", err)
	}
	res := r.db.WithContext(ctx).
		Model(&dealModel{}).
		Where("deal_id = ?", dealID).
		Update("payment_transactions",
			gorm.Expr("COALESCE(payment_transactions, '[]'::jsonb) || ?::jsonb", string(payload)))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type MilestoneRepository struct {
	db *gorm.DB
}

// Complete is the engine's single forward transition on milestones; terminal
// rows are left untouched.
func (r *MilestoneRepository) Complete(ctx context.Context, dealID, milestoneID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&milestoneModel{}).
		Where("deal_id = ? AND milestone_id = ?", dealID, milestoneID).
		Where("status NOT IN ?", []string{domain.MilestoneStatusCompleted, domain.MilestoneStatusCancelled}).
		Updates(map[string]any{
			"status":            domain.MilestoneStatusCompleted,
			"completed_at":      at,
			"release_scheduled": false,
			"updated_at":        at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type EarningRepository struct {
	db *gorm.DB
}

func (r *EarningRepository) GetByID(ctx context.Context, earningID string) (domain.Earning, error) {
	var row earningModel
	if err := r.db.WithContext(ctx).First(&row, "earning_id = ?", earningID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Earning{}, domain.ErrNotFound
		}
		return domain.Earning{}, err
	}
	return toDomainEarning(row), nil
}

// Claim is the engine's at-most-once gate: a single conditional UPDATE that
// only matches while the row is still escrowed. RowsAffected == 0 means a
// concurrent run won the race; that is reported as a lost claim, not an
// error, and is never retried.
func (r *EarningRepository) Claim(ctx context.Context, earningID string, release domain.ReleaseDetails) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&earningModel{}).
		Where("earning_id = ?", earningID).
		Where("status = ?", domain.EarningStatusEscrowed).
		Updates(map[string]any{
			"status":         domain.EarningStatusCompleted,
			"released_at":    release.ReleasedAt,
			"release_type":   release.ReleaseType,
			"release_reason": release.Reason,
			"updated_at":     release.ReleasedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *EarningRepository) Approve(ctx context.Context, earningID, approvedBy string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&earningModel{}).
		Where("earning_id = ?", earningID).
		Where("status = ?", domain.EarningStatusEscrowed).
		Updates(map[string]any{
			"approved_at": at,
			"approved_by": approvedBy,
			"updated_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, earningID); err != nil {
			return err
		}
		return domain.ErrEarningNotEscrowed
	}
	return nil
}

func (r *EarningRepository) ScheduleRelease(ctx context.Context, earningID string, releaseAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&earningModel{}).
		Where("earning_id = ?", earningID).
		Where("status = ?", domain.EarningStatusEscrowed).
		Updates(map[string]any{
			"scheduled_release_date": releaseAt,
			"updated_at":             time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, earningID); err != nil {
			return err
		}
		return domain.ErrEarningNotEscrowed
	}
	return nil
}

func (r *EarningRepository) CountEscrowedByDeal(ctx context.Context, dealID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&earningModel{}).
		Where("deal_id = ? AND status = ?", dealID, domain.EarningStatusEscrowed).
		Count(&n).Error
	return n, err
}
