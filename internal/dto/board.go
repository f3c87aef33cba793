package dto

import "github.com/atelier-labs/commission-api/internal/models"

// CreateRequestInput is the payload for posting a commission request.
// At least one reference image is required.
type CreateRequestInput struct {
	Title           string   `json:"title" validate:"required,min=5,max=200"`
	Description     string   `json:"description" validate:"required,min=20"`
	BudgetMin       *float64 `json:"budget_min" validate:"omitempty,gt=0"`
	BudgetMax       *float64 `json:"budget_max" validate:"omitempty,gt=0,gtefield=BudgetMin"`
	PreferredStyles []string `json:"preferred_styles" validate:"max=10,dive,min=1,max=60"`
	ReferenceImages []string `json:"reference_images" validate:"required,min=1,max=10,dive,url"`
}

// PlaceBidInput is an artist's offer against an open request.
type PlaceBidInput struct {
	Amount                float64 `json:"amount" validate:"required,gt=0"`
	EstimatedDeliveryDays *int    `json:"estimated_delivery_days" validate:"omitempty,gt=0"`
	Message               *string `json:"message" validate:"omitempty,max=2000"`
}

// AcceptBidInput carries the optional milestone plan fixed at acceptance.
// When empty, a single milestone covering the full bid amount is created.
type AcceptBidInput struct {
	Milestones []models.MilestonePlan `json:"milestones" validate:"omitempty,max=20,dive"`
}

// BidListing pairs a request with its bids for the board detail view.
type BidListing struct {
	Request *models.CommissionRequest `json:"request"`
	Bids    []models.Bid              `json:"bids"`
}
