package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePolicyPrecedence(t *testing.T) {
	cfg := DefaultPolicyConfig()

	t.Run("disputed wins over everything", func(t *testing.T) {
		deal := Deal{
			Status:        DealStatusDisputed,
			PaymentAmount: 9000,
			Milestones:    []Milestone{{MilestoneID: "m1"}},
		}
		policy := ResolvePolicy(cfg, deal)
		require.Equal(t, PolicyDispute, policy.Name)
		assert.Equal(t, 1, policy.GracePeriodDays)
		assert.Equal(t, 60, policy.MaxEscrowDays)
		assert.True(t, policy.RequiresApproval)
	})

	t.Run("high value wins over milestone", func(t *testing.T) {
		deal := Deal{
			Status:        DealStatusActive,
			PaymentAmount: 5001,
			Milestones:    []Milestone{{MilestoneID: "m1"}},
		}
		policy := ResolvePolicy(cfg, deal)
		require.Equal(t, PolicyHighValue, policy.Name)
		assert.Equal(t, 14, policy.GracePeriodDays)
		assert.Equal(t, 45, policy.MaxEscrowDays)
		assert.True(t, policy.RequiresApproval)
	})

	t.Run("exactly at threshold is not high value", func(t *testing.T) {
		deal := Deal{Status: DealStatusActive, PaymentAmount: 5000}
		assert.Equal(t, PolicyStandard, ResolvePolicy(cfg, deal).Name)
	})

	t.Run("milestone deal without dispute or high value", func(t *testing.T) {
		deal := Deal{
			Status:        DealStatusActive,
			PaymentAmount: 1200,
			Milestones:    []Milestone{{MilestoneID: "m1"}, {MilestoneID: "m2"}},
		}
		policy := ResolvePolicy(cfg, deal)
		require.Equal(t, PolicyMilestone, policy.Name)
		assert.Equal(t, 3, policy.GracePeriodDays)
		assert.Equal(t, 14, policy.MaxEscrowDays)
		assert.False(t, policy.RequiresApproval)
	})

	t.Run("plain deal falls back to standard", func(t *testing.T) {
		deal := Deal{Status: DealStatusAccepted, PaymentAmount: 120}
		policy := ResolvePolicy(cfg, deal)
		require.Equal(t, PolicyStandard, policy.Name)
		assert.Equal(t, 7, policy.GracePeriodDays)
		assert.Equal(t, 30, policy.MaxEscrowDays)
		assert.False(t, policy.RequiresApproval)
	})
}

func TestResolvePolicyAppliesDefaultsToZeroConfig(t *testing.T) {
	policy := ResolvePolicy(PolicyConfig{}, Deal{Status: DealStatusDisputed})
	assert.Equal(t, PolicyDispute, policy.Name)
	assert.Equal(t, 60, policy.MaxEscrowDays)
}

func TestMinMaxEscrowDays(t *testing.T) {
	assert.Equal(t, 14, DefaultPolicyConfig().MinMaxEscrowDays())

	custom := DefaultPolicyConfig()
	custom.Standard.MaxEscrowDays = 10
	assert.Equal(t, 10, custom.MinMaxEscrowDays())
}

func TestGraceDeadline(t *testing.T) {
	completedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := ReleasePolicy{GracePeriodDays: 7}
	assert.Equal(t, completedAt.AddDate(0, 0, 7), policy.GraceDeadline(completedAt))
}

func TestEscrowAgeDays(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	e := Earning{CreatedAt: now.Add(-31 * 24 * time.Hour)}
	assert.Equal(t, 31, e.EscrowAgeDays(now))

	e = Earning{CreatedAt: now.Add(-29*24*time.Hour - 12*time.Hour)}
	assert.Equal(t, 29, e.EscrowAgeDays(now))
}
