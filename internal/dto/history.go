package dto

import "github.com/atelier-labs/commission-api/internal/models"

// CancellationCheck is the result of a cancellation policy evaluation.
type CancellationCheck struct {
	Allowed         bool    `json:"allowed"`
	Reason          string  `json:"reason,omitempty"`
	CompletionPct   float64 `json:"completion_pct"`
	PaidMilestones  int     `json:"paid_milestones"`
	TotalMilestones int     `json:"total_milestones"`
}

// CommissionHistory is the audit view of a commission's transition ledger.
type CommissionHistory struct {
	CommissionID string                 `json:"commission_id"`
	Entries      []models.StateLogEntry `json:"entries"`
}
