package dto

import "github.com/atelier-labs/commission-api/internal/models"

// QueueEntry is one commission inside a queue partition view.
type QueueEntry struct {
	CommissionID string                  `json:"commission_id"`
	ClientID     string                  `json:"client_id"`
	Status       models.CommissionStatus `json:"status"`
	Position     int                     `json:"position"`
	FinalPrice   float64                 `json:"final_price"`
}

// QueueSnapshot is the read model for an artist's queue: the bounded active
// set plus the ordered waitlist overflow.
type QueueSnapshot struct {
	ArtistID      string               `json:"artist_id"`
	Settings      models.QueueSettings `json:"settings"`
	Active        []QueueEntry         `json:"active"`
	Waitlist      []QueueEntry         `json:"waitlist"`
	SlotsUsed     int                  `json:"slots_used"`
	SlotsTotal    int                  `json:"slots_total"`
	WaitlistDepth int                  `json:"waitlist_depth"`
}
