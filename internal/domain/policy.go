package domain

import "time"

// ReleasePolicy is derived per deal on every run and never persisted.
type ReleasePolicy struct {
	Name             string
	GracePeriodDays  int
	MaxEscrowDays    int
	RequiresApproval bool
}

const (
	PolicyDispute   = "dispute"
	PolicyHighValue = "high_value"
	PolicyMilestone = "milestone"
	PolicyStandard  = "standard"
)

// PolicyConfig is the injected rule table. Zero values fall back to the
// platform defaults so a partially specified config stays usable.
type PolicyConfig struct {
	HighValueThreshold float64
	Dispute            ReleasePolicy
	HighValue          ReleasePolicy
	Milestone          ReleasePolicy
	Standard           ReleasePolicy
}

// DefaultPolicyConfig returns the platform rule table.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		HighValueThreshold: 5000,
		Dispute:            ReleasePolicy{Name: PolicyDispute, GracePeriodDays: 1, MaxEscrowDays: 60, RequiresApproval: true},
		HighValue:          ReleasePolicy{Name: PolicyHighValue, GracePeriodDays: 14, MaxEscrowDays: 45, RequiresApproval: true},
		Milestone:          ReleasePolicy{Name: PolicyMilestone, GracePeriodDays: 3, MaxEscrowDays: 14, RequiresApproval: false},
		Standard:           ReleasePolicy{Name: PolicyStandard, GracePeriodDays: 7, MaxEscrowDays: 30, RequiresApproval: false},
	}
}

func (c PolicyConfig) withDefaults() PolicyConfig {
	def := DefaultPolicyConfig()
	if c.HighValueThreshold <= 0 {
		c.HighValueThreshold = def.HighValueThreshold
	}
	if c.Dispute.MaxEscrowDays <= 0 {
		c.Dispute = def.Dispute
	}
	if c.HighValue.MaxEscrowDays <= 0 {
		c.HighValue = def.HighValue
	}
	if c.Milestone.MaxEscrowDays <= 0 {
		c.Milestone = def.Milestone
	}
	if c.Standard.MaxEscrowDays <= 0 {
		c.Standard = def.Standard
	}
	return c
}

// ResolvePolicy maps a deal to its release policy. Precedence is evaluated in
// order and the first match wins: disputed beats high-value beats milestone
// beats standard. Pure function, safe from concurrent goroutines.
func ResolvePolicy(cfg PolicyConfig, deal Deal) ReleasePolicy {
	cfg = cfg.withDefaults()
	switch {
	case deal.Status == DealStatusDisputed:
		return cfg.Dispute
	case deal.PaymentAmount > cfg.HighValueThreshold:
		return cfg.HighValue
	case len(deal.Milestones) > 0:
		return cfg.Milestone
	default:
		return cfg.Standard
	}
}

// MinMaxEscrowDays is the smallest ceiling across the rule table. The store's
// overdue-class query uses it as a conservative age floor; the exact per-deal
// ceiling is re-checked against the resolved policy in the application layer.
func (c PolicyConfig) MinMaxEscrowDays() int {
	c = c.withDefaults()
	min := c.Dispute.MaxEscrowDays
	for _, p := range []ReleasePolicy{c.HighValue, c.Milestone, c.Standard} {
		if p.MaxEscrowDays < min {
			min = p.MaxEscrowDays
		}
	}
	return min
}

// GraceDeadline returns the instant a completed deal's earnings become
// eligible under the completed-deal grace class.
func (p ReleasePolicy) GraceDeadline(completedAt time.Time) time.Time {
	return completedAt.Add(time.Duration(p.GracePeriodDays) * 24 * time.Hour)
}
