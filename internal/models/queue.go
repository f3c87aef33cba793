package models

import "time"

// QueueSettings is an artist's capacity policy. One row per artist.
// IsOpen=false pauses new acceptances without touching existing work.
type QueueSettings struct {
	ArtistID            string    `db:"artist_id" json:"artist_id"`
	MaxQueueSlots       int       `db:"max_queue_slots" json:"max_queue_slots"`
	AllowWaitlist       bool      `db:"allow_waitlist" json:"allow_waitlist"`
	AutoPromoteWaitlist bool      `db:"auto_promote_waitlist" json:"auto_promote_waitlist"`
	IsOpen              bool      `db:"is_open" json:"is_open"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultQueueSettings returns the policy applied to artists that have never
// saved their own.
func DefaultQueueSettings(artistID string, maxSlots int) QueueSettings {
	if maxSlots <= 0 {
		maxSlots = 3
	}
	return QueueSettings{
		ArtistID:            artistID,
		MaxQueueSlots:       maxSlots,
		AllowWaitlist:       true,
		AutoPromoteWaitlist: true,
		IsOpen:              true,
	}
}
