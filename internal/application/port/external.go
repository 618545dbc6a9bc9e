package port

import (
	"context"

	"github.com/minhtran/claimflow/internal/domain/claim"
)

// Staff is a staff directory record referenced by claims and assignments
type Staff struct {
	ID    string
	Name  string
	Email string
	Role  claim.Role
}

// Project is a project directory record
type Project struct {
	ID     string
	Name   string
	Active bool
}

// StaffDirectory provides read-only staff lookups for authorization checks
// and notification addressing
type StaffDirectory interface {
	GetByID(ctx context.Context, staffID string) (*Staff, error)
	RoleOf(ctx context.Context, staffID string) (claim.Role, error)
	ListByRole(ctx context.Context, role claim.Role) ([]*Staff, error)
}

// ProjectDirectory provides read-only project lookups. ResolveApprovers
// returns the ordered approver chain configured for the project; an empty
// chain means the project requires no approval.
type ProjectDirectory interface {
	GetByID(ctx context.Context, projectID string) (*Project, error)
	ResolveApprovers(ctx context.Context, projectID string) ([]string, error)
}

// NotificationPort enqueues a fire-and-forget notification keyed by claim id
// and template kind. Delivery is at-least-once and must never fail the
// transition that enqueued it.
type NotificationPort interface {
	Enqueue(ctx context.Context, claimID int64, kind claim.TemplateKind, recipientIDs []string) error
}

// EmailSender delivers a rendered notification to its recipients
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}
