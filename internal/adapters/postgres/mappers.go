package postgres

import (
	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

func toDomainDeal(row dealModel, milestones []milestoneModel) domain.Deal {
	deal := domain.Deal{
		DealID:        row.DealID,
		MarketerID:    row.MarketerID,
		CreatorID:     row.CreatorID,
		Status:        row.Status,
		PaymentAmount: row.PaymentAmount,
		Currency:      row.Currency,
		CompletedAt:   row.CompletedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	deal.Milestones = make([]domain.Milestone, 0, len(milestones))
	for _, m := range milestones {
		deal.Milestones = append(deal.Milestones, toDomainMilestone(m))
	}
	return deal
}

func toDomainMilestone(row milestoneModel) domain.Milestone {
	return domain.Milestone{
		MilestoneID:      row.MilestoneID,
		DealID:           row.DealID,
		Name:             row.Name,
		Status:           row.Status,
		Amount:           row.Amount,
		AutoReleaseDate:  row.AutoReleaseDate,
		ReleaseScheduled: row.ReleaseScheduled,
		DisputeFlag:      row.DisputeFlag,
		CompletedAt:      row.CompletedAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func toDomainEarning(row earningModel) domain.Earning {
	return domain.Earning{
		EarningID:            row.EarningID,
		DealID:               row.DealID,
		MilestoneID:          row.MilestoneID,
		CreatorID:            row.CreatorID,
		Amount:               row.Amount,
		Currency:             row.Currency,
		Status:               row.Status,
		ScheduledReleaseDate: row.ScheduledReleaseDate,
		ApprovedAt:           row.ApprovedAt,
		ApprovedBy:           row.ApprovedBy,
		ReleasedAt:           row.ReleasedAt,
		ReleaseType:          row.ReleaseType,
		ReleaseReason:        row.ReleaseReason,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
}
