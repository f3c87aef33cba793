package dto

import "github.com/atelier-labs/commission-api/internal/models"

// SubmitCheckpointInput is the artist's completion submission for a
// milestone. The primary image is mandatory.
type SubmitCheckpointInput struct {
	ImageURL         string   `json:"image_url" validate:"required,url"`
	AdditionalImages []string `json:"additional_images" validate:"max=10,dive,url"`
	Notes            *string  `json:"notes" validate:"omitempty,max=2000"`
}

// DecideCheckpointInput is the client's approval or rejection.
type DecideCheckpointInput struct {
	Approve bool    `json:"approve"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

// CheckpointDecision summarises the downstream effects of an approval.
type CheckpointDecision struct {
	Checkpoint          *models.ApprovalCheckpoint `json:"checkpoint"`
	Milestone           *models.Milestone          `json:"milestone"`
	UnlockedMilestoneID *string                    `json:"unlocked_milestone_id,omitempty"`
	CommissionCompleted bool                       `json:"commission_completed"`
}

// CancelCommissionInput carries the optional free-form reason.
type CancelCommissionInput struct {
	Reason *string `json:"reason" validate:"omitempty,max=2000"`
}
