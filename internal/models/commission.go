package models

import "time"

// CommissionStatus represents the lifecycle of a commission.
type CommissionStatus string

// Possible commission statuses. Terminal states are retained for history.
const (
	CommissionStatusPending    CommissionStatus = "PENDING"
	CommissionStatusInProgress CommissionStatus = "IN_PROGRESS"
	CommissionStatusCompleted  CommissionStatus = "COMPLETED"
	CommissionStatusCancelled  CommissionStatus = "CANCELLED"
)

// QueueState places a commission within an artist's capacity partitions.
type QueueState string

// Possible queue states.
const (
	QueueStateNone       QueueState = "NONE"
	QueueStateActive     QueueState = "ACTIVE"
	QueueStateWaitlisted QueueState = "WAITLISTED"
)

// Terminal reports whether the status admits no further transitions.
func (s CommissionStatus) Terminal() bool {
	return s == CommissionStatusCompleted || s == CommissionStatusCancelled
}

// Commission is an accepted piece of work between a client and an artist.
// QueuePosition is meaningful only while QueueState is ACTIVE or WAITLISTED,
// and is unique and dense within its (artist, state) partition.
type Commission struct {
	ID                 string           `db:"id" json:"id"`
	RequestID          *string          `db:"request_id" json:"request_id,omitempty"`
	ClientID           string           `db:"client_id" json:"client_id"`
	ArtistID           string           `db:"artist_id" json:"artist_id"`
	Status             CommissionStatus `db:"status" json:"status"`
	QueueState         QueueState       `db:"queue_state" json:"queue_state"`
	QueuePosition      *int             `db:"queue_position" json:"queue_position,omitempty"`
	FinalPrice         float64          `db:"final_price" json:"final_price"`
	CancellationReason *string          `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// CommissionFilter captures filtering criteria for listing commissions.
type CommissionFilter struct {
	ClientID   string
	ArtistID   string
	Status     CommissionStatus
	QueueState QueueState
	Page       int
	PageSize   int
}
