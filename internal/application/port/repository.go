package port

import (
	"context"
	"time"

	"github.com/minhtran/claimflow/internal/domain/claim"
)

// Scope restricts which claims an actor can see. View decides the lens,
// ViewerID anchors it; From/To optionally bound creation time.
type Scope struct {
	View     claim.ViewMode
	ViewerID string
	From     *time.Time
	To       *time.Time
}

// ClaimRepository defines persistence operations for the claim aggregate.
// GetByID loads the full aggregate (assignments in sequence order, log in
// insertion order). Save writes the claim row guarded by the expected
// version and replaces the assignment set; a lost version race surfaces as
// claim.ErrConcurrentModification.
type ClaimRepository interface {
	Create(ctx context.Context, c *claim.Claim) error
	GetByID(ctx context.Context, id int64) (*claim.Claim, error)
	Save(ctx context.Context, c *claim.Claim, expectedVersion int64) error
	AppendLog(ctx context.Context, entry *claim.ChangeLogEntry) error
	List(ctx context.Context, scope Scope, limit, offset int) ([]*claim.Claim, error)
	CountsByStatus(ctx context.Context, scope Scope) (map[claim.Status]int, error)
}

// NotificationRepository defines persistence operations for the notification
// outbox. Enqueue participates in the caller's transaction; the dispatcher
// uses the remaining operations outside any transition.
type NotificationRepository interface {
	Enqueue(ctx context.Context, n *claim.Notification) error
	GetPending(ctx context.Context, limit int) ([]*claim.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
