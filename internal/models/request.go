package models

import (
	"time"

	"github.com/lib/pq"
)

// RequestStatus represents the lifecycle of a commission request.
type RequestStatus string

// Possible request statuses.
const (
	RequestStatusOpen    RequestStatus = "OPEN"
	RequestStatusAwarded RequestStatus = "AWARDED"
	RequestStatusClosed  RequestStatus = "CLOSED"
)

// BidStatus represents the lifecycle of an artist's bid.
type BidStatus string

// Possible bid statuses.
const (
	BidStatusPending  BidStatus = "PENDING"
	BidStatusAccepted BidStatus = "ACCEPTED"
	BidStatusRejected BidStatus = "REJECTED"
)

// CommissionRequest is a client's open call for creative work. A request
// always carries at least one reference image.
type CommissionRequest struct {
	ID              string         `db:"id" json:"id"`
	ClientID        string         `db:"client_id" json:"client_id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	BudgetMin       *float64       `db:"budget_min" json:"budget_min,omitempty"`
	BudgetMax       *float64       `db:"budget_max" json:"budget_max,omitempty"`
	PreferredStyles pq.StringArray `db:"preferred_styles" json:"preferred_styles"`
	ReferenceImages pq.StringArray `db:"reference_images" json:"reference_images"`
	Status          RequestStatus  `db:"status" json:"status"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// Bid is an artist's offer against an open request. At most one bid per
// (request, artist) pair may end up accepted.
type Bid struct {
	ID                    string    `db:"id" json:"id"`
	RequestID             string    `db:"request_id" json:"request_id"`
	ArtistID              string    `db:"artist_id" json:"artist_id"`
	Amount                float64   `db:"amount" json:"amount"`
	EstimatedDeliveryDays *int      `db:"estimated_delivery_days" json:"estimated_delivery_days,omitempty"`
	Message               *string   `db:"message" json:"message,omitempty"`
	Status                BidStatus `db:"status" json:"status"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// RequestFilter captures filtering criteria for listing requests.
type RequestFilter struct {
	ClientID  string
	Status    RequestStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
