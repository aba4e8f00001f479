package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalEventClassification(t *testing.T) {
	cases := []struct {
		eventType string
		class     string
		keyPath   string
	}{
		{EventEarningReleased, CanonicalEventClassDomain, "data.earning_id"},
		{EventDealCompleted, CanonicalEventClassDomain, "data.deal_id"},
		{EventReleaseApprovalRequired, CanonicalEventClassOps, "data.earning_id"},
		{EventReleaseRunAlert, CanonicalEventClassOps, "data.run_id"},
		{EventReleaseRunCompleted, CanonicalEventClassAnalyticsOnly, "data.run_id"},
	}
	for _, tc := range cases {
		assert.True(t, IsCanonicalEmittedEvent(tc.eventType), tc.eventType)
		assert.Equal(t, tc.class, CanonicalEventClass(tc.eventType), tc.eventType)
		assert.Equal(t, tc.keyPath, CanonicalPartitionKeyPath(tc.eventType), tc.eventType)
	}

	assert.False(t, IsCanonicalEmittedEvent("payments.unknown"))
	assert.Empty(t, CanonicalEventClass("payments.unknown"))
}

func TestEligibilityClassReleaseTypes(t *testing.T) {
	assert.Equal(t, ReleaseTypeAutomaticCompletion, ClassCompletedDealGrace.ReleaseType())
	assert.Equal(t, ReleaseTypeAutomaticMilestone, ClassMilestoneAutoRelease.ReleaseType())
	assert.Equal(t, ReleaseTypeScheduled, ClassMarketerScheduled.ReleaseType())
	assert.Equal(t, ReleaseTypeOverdueEscrow, ClassOverdueEscrow.ReleaseType())
}

func TestAllMilestonesTerminal(t *testing.T) {
	deal := Deal{Milestones: []Milestone{
		{Status: MilestoneStatusCompleted},
		{Status: MilestoneStatusCancelled},
	}}
	assert.True(t, deal.AllMilestonesTerminal())

	deal.Milestones = append(deal.Milestones, Milestone{Status: MilestoneStatusFunded})
	assert.False(t, deal.AllMilestonesTerminal())

	assert.True(t, Deal{}.AllMilestonesTerminal())
}
