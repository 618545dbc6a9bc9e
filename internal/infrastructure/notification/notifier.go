package notification

import (
	"context"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
)

// OutboxNotifier implements port.NotificationPort by writing outbox rows.
// Enqueue runs inside the transition's transaction; delivery happens later
// in the dispatcher, so a slow or broken mail server never blocks a
// transition.
type OutboxNotifier struct {
	outbox port.NotificationRepository
}

// NewOutboxNotifier creates a new outbox-backed notifier
func NewOutboxNotifier(outbox port.NotificationRepository) *OutboxNotifier {
	return &OutboxNotifier{outbox: outbox}
}

// Enqueue records a notification for asynchronous delivery
func (n *OutboxNotifier) Enqueue(ctx context.Context, claimID int64, kind claim.TemplateKind, recipientIDs []string) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	return n.outbox.Enqueue(ctx, &claim.Notification{
		ClaimID:    claimID,
		Kind:       kind,
		Recipients: recipientIDs,
	})
}

var _ port.NotificationPort = (*OutboxNotifier)(nil)
