package claim

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Claim is a staff reimbursement/overtime request moving through an approval workflow.
// It owns its approver assignments and change log; project and claimant are weak
// references resolved against the directories.
type Claim struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       Type   `json:"type"`
	Remark     string `json:"remark,omitempty"`
	Status     Status `json:"status"`
	ClaimantID string `json:"claimant_id"`
	ProjectID  string `json:"project_id,omitempty"`

	Amount     decimal.Decimal `json:"amount"`
	TotalHours decimal.Decimal `json:"total_hours"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`

	// Version guards read-modify-write cycles; every committed transition
	// increments it.
	Version int64 `json:"version"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Assignments are ordered by sequence; an approver appears at most once
	// per round.
	Assignments []*ApproverAssignment `json:"assignments,omitempty"`

	// Log is append-only, in insertion order.
	Log []*ChangeLogEntry `json:"log,omitempty"`
}

// ApproverAssignment represents one approver's decision on one claim.
// DecidedAt is set if and only if the decision is not Pending.
type ApproverAssignment struct {
	ID         int64      `json:"id"`
	ClaimID    int64      `json:"claim_id"`
	ApproverID string     `json:"approver_id"`
	Sequence   int        `json:"sequence"`
	Decision   Decision   `json:"decision"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
}

// ChangeLogEntry is an immutable audit record. Entries are never mutated
// or deleted.
type ChangeLogEntry struct {
	ID        int64     `json:"id"`
	ClaimID   int64     `json:"claim_id"`
	ActorID   string    `json:"actor_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the field constraints enforced at Submit and Edit.
// A draft may transiently hold invalid values while being composed.
func (c *Claim) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: unknown claim type %q", ErrValidation, c.Type)
	}
	if c.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	if c.TotalHours.IsNegative() {
		return fmt.Errorf("%w: total hours must not be negative", ErrValidation)
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrValidation)
	}
	if c.StartDate.Before(dayOf(c.CreatedAt)) {
		return fmt.Errorf("%w: start date before claim creation day", ErrValidation)
	}
	return nil
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AssignmentFor returns the assignment belonging to the given approver,
// or nil if the approver has none on this claim.
func (c *Claim) AssignmentFor(approverID string) *ApproverAssignment {
	for _, a := range c.Assignments {
		if a.ApproverID == approverID {
			return a
		}
	}
	return nil
}

// DeriveReviewStatus computes claim-level status from the aggregate state of
// the approver assignments. It is the single authoritative derivation rule:
// any rejection rejects the whole claim; the claim is approved only once
// every assignment is approved; otherwise it stays pending. Paid, Cancelled
// and Returned are exogenous and never derived here.
func DeriveReviewStatus(assignments []*ApproverAssignment) Status {
	for _, a := range assignments {
		if a.Decision == DecisionRejected {
			return StatusRejected
		}
	}
	for _, a := range assignments {
		if a.Decision != DecisionApproved {
			return StatusPending
		}
	}
	return StatusApproved
}
