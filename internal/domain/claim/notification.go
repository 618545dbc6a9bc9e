package claim

import "time"

// TemplateKind selects which email template a queued notification renders
type TemplateKind string

const (
	TemplateApproverAssigned TemplateKind = "APPROVER_ASSIGNED"
	TemplateClaimApproved    TemplateKind = "CLAIM_APPROVED"
	TemplateClaimRejected    TemplateKind = "CLAIM_REJECTED"
	TemplateClaimReturned    TemplateKind = "CLAIM_RETURNED"
	TemplateClaimPaid        TemplateKind = "CLAIM_PAID"
)

// Notification delivery status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification is an outbox row: enqueued inside the transition's transaction,
// delivered best-effort by the background dispatcher. Delivery failures never
// roll back a committed transition.
type Notification struct {
	ID         int64        `json:"id"`
	ClaimID    int64        `json:"claim_id"`
	Kind       TemplateKind `json:"kind"`
	Recipients []string     `json:"recipients"`
	Status     string       `json:"status"`
	Attempts   int          `json:"attempts"`
	LastError  string       `json:"last_error,omitempty"`
	SentAt     *time.Time   `json:"sent_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
