package models

import (
	"time"

	"github.com/lib/pq"
)

// PaymentStatus represents whether a milestone has been captured.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// ApprovalStatus represents the client's decision on a checkpoint.
type ApprovalStatus string

// Possible approval statuses.
const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// Milestone is one payment-gated step of a commission. Numbers are 1-based
// and contiguous; milestone n stays locked until milestone n-1 is paid, and
// milestone 1 is never locked.
type Milestone struct {
	ID            string        `db:"id" json:"id"`
	CommissionID  string        `db:"commission_id" json:"commission_id"`
	Number        int           `db:"number" json:"number"`
	Title         string        `db:"title" json:"title"`
	Description   string        `db:"description" json:"description"`
	Amount        float64       `db:"amount" json:"amount"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	IsLocked      bool          `db:"is_locked" json:"is_locked"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// ApprovalCheckpoint is a client-reviewable snapshot of submitted work.
// A rejected checkpoint is superseded by a fresh submission, which is a new
// row — history is never mutated in place.
type ApprovalCheckpoint struct {
	ID               string         `db:"id" json:"id"`
	MilestoneID      string         `db:"milestone_id" json:"milestone_id"`
	ImageURL         string         `db:"image_url" json:"image_url"`
	AdditionalImages pq.StringArray `db:"additional_images" json:"additional_images"`
	Notes            *string        `db:"notes" json:"notes,omitempty"`
	ApprovalStatus   ApprovalStatus `db:"approval_status" json:"approval_status"`
	ApprovalNotes    *string        `db:"approval_notes" json:"approval_notes,omitempty"`
	ApprovedAt       *time.Time     `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// MilestonePlan describes one milestone to create when a commission is
// accepted. Count and amounts are fixed at acceptance time.
type MilestonePlan struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" validate:"gt=0"`
}

// MilestoneCounts aggregates payment progress for cancellation policy.
type MilestoneCounts struct {
	Total int `db:"total"`
	Paid  int `db:"paid"`
}

// CompletionPct returns paid/total as a percentage, 0 when no milestones
// exist yet.
func (c MilestoneCounts) CompletionPct() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Paid) / float64(c.Total) * 100
}
