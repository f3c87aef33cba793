package models

import "time"

// StateLogEntry is one accepted commission status transition. The log is
// append-only and ordered by ChangedAt.
type StateLogEntry struct {
	ID           string            `db:"id" json:"id"`
	CommissionID string            `db:"commission_id" json:"commission_id"`
	FromStatus   *CommissionStatus `db:"from_status" json:"from_status,omitempty"`
	ToStatus     CommissionStatus  `db:"to_status" json:"to_status"`
	ChangedAt    time.Time         `db:"changed_at" json:"changed_at"`
}
