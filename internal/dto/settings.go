package dto

// UpdateQueueSettingsInput is the artist's capacity policy payload. Lowering
// slot limits never evicts placements that were already admitted.
type UpdateQueueSettingsInput struct {
	// Zero slots is legal: every new admission waitlists (or is refused
	// when the waitlist is off) until the artist raises the limit.
	MaxQueueSlots       int  `json:"max_queue_slots" validate:"gte=0,lte=100"`
	AllowWaitlist       bool `json:"allow_waitlist"`
	AutoPromoteWaitlist bool `json:"auto_promote_waitlist"`
	IsOpen              bool `json:"is_open"`
}
