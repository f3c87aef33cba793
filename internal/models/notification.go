package models

// NotificationType identifies the event fired into the notification channel.
type NotificationType string

// Events the engine emits. Delivery is fire-and-forget.
const (
	NotifyBidReceived       NotificationType = "BID_RECEIVED"
	NotifyCommissionCreated NotificationType = "COMMISSION_CREATED"
	NotifyCommissionStarted NotificationType = "COMMISSION_STARTED"
	NotifyWaitlisted        NotificationType = "WAITLISTED"
	NotifyPromoted          NotificationType = "PROMOTED_FROM_WAITLIST"
	NotifyCheckpointReady   NotificationType = "CHECKPOINT_READY"
	NotifyCheckpointDecided NotificationType = "CHECKPOINT_DECIDED"
	NotifyMilestonePaid     NotificationType = "MILESTONE_PAID"
	NotifyCompleted         NotificationType = "COMMISSION_COMPLETED"
	NotifyCancelled         NotificationType = "COMMISSION_CANCELLED"
)

// NotificationEvent is the payload pushed to the notification channel.
type NotificationEvent struct {
	Type         NotificationType `json:"type"`
	CommissionID string           `json:"commission_id"`
	RecipientID  string           `json:"recipient_id"`
}
