package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
	"github.com/minhtran/claimflow/internal/domain/lifecycle"
)

// LifecycleService is the sole authority for moving a claim between statuses.
// It validates that the actor is permitted, applies the transition's side
// effects (assignment updates, change-log append, notification enqueue) and
// commits them atomically.
type LifecycleService interface {
	Submit(ctx context.Context, claimID int64, actorID string) (*claim.Claim, error)
	Decide(ctx context.Context, claimID int64, approverID string, decision claim.Decision, remark string) (*claim.Claim, error)
	Return(ctx context.Context, claimID int64, actorID, remark string) (*claim.Claim, error)
	Pay(ctx context.Context, claimID int64, actorID string) (*claim.Claim, error)
	Cancel(ctx context.Context, claimID int64, actorID string) (*claim.Claim, error)
	StatusCounts(ctx context.Context, view claim.ViewMode, actorID string, from, to *time.Time) (map[claim.Status]int, error)
}

type lifecycleServiceImpl struct {
	claims    port.ClaimRepository
	staff     port.StaffDirectory
	projects  port.ProjectDirectory
	notifier  port.NotificationPort
	txManager port.TransactionManager
	logger    Logger
	now       func() time.Time
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	claims port.ClaimRepository,
	staff port.StaffDirectory,
	projects port.ProjectDirectory,
	notifier port.NotificationPort,
	txManager port.TransactionManager,
	logger Logger,
) LifecycleService {
	return &lifecycleServiceImpl{
		claims:    claims,
		staff:     staff,
		projects:  projects,
		notifier:  notifier,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit moves a claim out of Draft (or back out of Returned) into review.
// Assignments are created fresh for every approver in the project's chain;
// re-submission discards the previous round entirely.
func (s *lifecycleServiceImpl) Submit(ctx context.Context, claimID int64, actorID string) (*claim.Claim, error) {
	c, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.ClaimantID != actorID {
		return nil, fmt.Errorf("%w: only the claimant may submit claim %d", claim.ErrForbidden, claimID)
	}

	trigger := lifecycle.TriggerSubmit
	if c.Status == claim.StatusReturned {
		trigger = lifecycle.TriggerResubmit
	}
	machine := lifecycle.NewClaimMachine(c.Status)
	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, fmt.Errorf("%w: submit not allowed from %s", claim.ErrInvalidTransition, c.Status)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	approvers, err := s.resolveApprovers(ctx, c)
	if err != nil {
		return nil, err
	}

	expected := c.Version
	now := s.now()

	c.Assignments = make([]*claim.ApproverAssignment, 0, len(approvers))
	for i, approverID := range approvers {
		c.Assignments = append(c.Assignments, &claim.ApproverAssignment{
			ClaimID:    c.ID,
			ApproverID: approverID,
			Sequence:   i + 1,
			Decision:   claim.DecisionPending,
		})
	}

	c.Status = machine.State()
	messages := []string{"submitted"}
	if trigger == lifecycle.TriggerResubmit {
		messages = []string{"resubmitted"}
	}
	// A claim that requires no approval is fully approved the moment it is
	// submitted: the aggregate of zero assignments is vacuously approved.
	if len(c.Assignments) == 0 {
		c.Status = claim.DeriveReviewStatus(c.Assignments)
		messages = append(messages, "fully approved")
	}
	c.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claims.Save(txCtx, c, expected); err != nil {
			return err
		}
		for _, msg := range messages {
			if err := s.appendLog(txCtx, c.ID, actorID, msg, now); err != nil {
				return err
			}
		}
		if len(c.Assignments) > 0 {
			return s.notifier.Enqueue(txCtx, c.ID, claim.TemplateApproverAssigned, approvers)
		}
		return s.notifier.Enqueue(txCtx, c.ID, claim.TemplateClaimApproved, s.approvalRecipients(txCtx, c))
	})
	if err != nil {
		s.logger.Error("Failed to submit claim", "error", err, "claim_id", claimID)
		return nil, err
	}

	s.logger.Info("Claim submitted", "claim_id", claimID, "status", c.Status, "approvers", len(approvers))
	return c, nil
}

// Decide records one approver's vote. Claim-level status is derived from the
// assignment aggregate: any rejection rejects the claim immediately, approval
// flips the claim only when it is the last pending assignment.
func (s *lifecycleServiceImpl) Decide(ctx context.Context, claimID int64, approverID string, decision claim.Decision, remark string) (*claim.Claim, error) {
	if decision != claim.DecisionApproved && decision != claim.DecisionRejected {
		return nil, fmt.Errorf("%w: decision must be approve or reject", claim.ErrValidation)
	}

	c, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}

	trigger := lifecycle.TriggerApprove
	if decision == claim.DecisionRejected {
		trigger = lifecycle.TriggerReject
	}
	machine := lifecycle.NewClaimMachine(c.Status)
	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, fmt.Errorf("%w: claim %d is %s, not pending", claim.ErrInvalidTransition, claimID, c.Status)
	}

	assignment := c.AssignmentFor(approverID)
	if assignment == nil || assignment.Decision != claim.DecisionPending {
		return nil, fmt.Errorf("%w: no pending assignment for approver on claim %d", claim.ErrForbidden, claimID)
	}
	if decision == claim.DecisionRejected && strings.TrimSpace(remark) == "" {
		return nil, fmt.Errorf("%w: rejection requires a remark", claim.ErrValidation)
	}

	expected := c.Version
	now := s.now()
	assignment.Decision = decision
	assignment.DecidedAt = &now

	// Remaining pending assignments after a rejection are moot: they keep
	// their state and are never re-evaluated.
	c.Status = claim.DeriveReviewStatus(c.Assignments)
	c.UpdatedAt = now

	var message string
	var kind claim.TemplateKind
	var recipients []string
	switch c.Status {
	case claim.StatusRejected:
		message = fmt.Sprintf("rejected by %s: %s", approverID, remark)
		kind = claim.TemplateClaimRejected
		recipients = []string{c.ClaimantID}
	case claim.StatusApproved:
		message = "fully approved"
		kind = claim.TemplateClaimApproved
	default:
		message = fmt.Sprintf("approved by %s", approverID)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claims.Save(txCtx, c, expected); err != nil {
			return err
		}
		if err := s.appendLog(txCtx, c.ID, approverID, message, now); err != nil {
			return err
		}
		if kind == "" {
			return nil
		}
		if kind == claim.TemplateClaimApproved {
			recipients = s.approvalRecipients(txCtx, c)
		}
		return s.notifier.Enqueue(txCtx, c.ID, kind, recipients)
	})
	if err != nil {
		s.logger.Error("Failed to record decision", "error", err, "claim_id", claimID, "approver_id", approverID)
		return nil, err
	}

	s.logger.Info("Decision recorded",
		"claim_id", claimID, "approver_id", approverID, "decision", decision, "status", c.Status)
	return c, nil
}

// Return hands a pending claim back to the claimant with a mandatory remark.
// Assignments are left in place; they are recreated wholesale on re-submission.
func (s *lifecycleServiceImpl) Return(ctx context.Context, claimID int64, actorID, remark string) (*claim.Claim, error) {
	if strings.TrimSpace(remark) == "" {
		return nil, fmt.Errorf("%w: return requires a remark", claim.ErrValidation)
	}

	c, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}

	if c.AssignmentFor(actorID) == nil {
		role, roleErr := s.staff.RoleOf(ctx, actorID)
		if roleErr != nil || role != claim.RoleFinance {
			return nil, fmt.Errorf("%w: only an assigned approver or finance may return claim %d", claim.ErrForbidden, claimID)
		}
	}

	machine := lifecycle.NewClaimMachine(c.Status)
	if err := machine.Fire(ctx, lifecycle.TriggerReturn); err != nil {
		return nil, fmt.Errorf("%w: claim %d is %s, not pending", claim.ErrInvalidTransition, claimID, c.Status)
	}

	expected := c.Version
	now := s.now()
	c.Status = machine.State()
	c.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claims.Save(txCtx, c, expected); err != nil {
			return err
		}
		if err := s.appendLog(txCtx, c.ID, actorID, fmt.Sprintf("returned: %s", remark), now); err != nil {
			return err
		}
		return s.notifier.Enqueue(txCtx, c.ID, claim.TemplateClaimReturned, []string{c.ClaimantID})
	})
	if err != nil {
		s.logger.Error("Failed to return claim", "error", err, "claim_id", claimID)
		return nil, err
	}

	s.logger.Info("Claim returned", "claim_id", claimID, "actor_id", actorID)
	return c, nil
}

// Pay marks an approved claim as paid. Finance only.
func (s *lifecycleServiceImpl) Pay(ctx context.Context, claimID int64, actorID string) (*claim.Claim, error) {
	c, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}

	role, err := s.staff.RoleOf(ctx, actorID)
	if err != nil || role != claim.RoleFinance {
		return nil, fmt.Errorf("%w: paying requires the finance role", claim.ErrForbidden)
	}

	machine := lifecycle.NewClaimMachine(c.Status)
	if err := machine.Fire(ctx, lifecycle.TriggerPay); err != nil {
		return nil, fmt.Errorf("%w: claim %d is %s, not approved", claim.ErrInvalidTransition, claimID, c.Status)
	}

	expected := c.Version
	now := s.now()
	c.Status = machine.State()
	c.PaidAt = &now
	c.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claims.Save(txCtx, c, expected); err != nil {
			return err
		}
		if err := s.appendLog(txCtx, c.ID, actorID, "paid", now); err != nil {
			return err
		}
		return s.notifier.Enqueue(txCtx, c.ID, claim.TemplateClaimPaid, []string{c.ClaimantID})
	})
	if err != nil {
		s.logger.Error("Failed to pay claim", "error", err, "claim_id", claimID)
		return nil, err
	}

	s.logger.Info("Claim paid", "claim_id", claimID, "actor_id", actorID)
	return c, nil
}

// Cancel withdraws a claim. Allowed from every status except Paid; cancelling
// an already-cancelled claim is a no-op.
func (s *lifecycleServiceImpl) Cancel(ctx context.Context, claimID int64, actorID string) (*claim.Claim, error) {
	c, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.ClaimantID != actorID {
		return nil, fmt.Errorf("%w: only the claimant may cancel claim %d", claim.ErrForbidden, claimID)
	}
	if c.Status == claim.StatusCancelled {
		return c, nil
	}

	machine := lifecycle.NewClaimMachine(c.Status)
	if err := machine.Fire(ctx, lifecycle.TriggerCancel); err != nil {
		return nil, fmt.Errorf("%w: claim %d is %s and can no longer be cancelled", claim.ErrInvalidTransition, claimID, c.Status)
	}

	expected := c.Version
	now := s.now()
	c.Status = machine.State()
	c.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claims.Save(txCtx, c, expected); err != nil {
			return err
		}
		return s.appendLog(txCtx, c.ID, actorID, "cancelled by claimant", now)
	})
	if err != nil {
		s.logger.Error("Failed to cancel claim", "error", err, "claim_id", claimID)
		return nil, err
	}

	s.logger.Info("Claim cancelled", "claim_id", claimID, "actor_id", actorID)
	return c, nil
}

// StatusCounts returns per-status claim counts scoped to the actor's view.
// Every status is present in the result, absent ones as zero.
func (s *lifecycleServiceImpl) StatusCounts(ctx context.Context, view claim.ViewMode, actorID string, from, to *time.Time) (map[claim.Status]int, error) {
	if !view.IsValid() {
		return nil, fmt.Errorf("%w: unknown view mode %q", claim.ErrValidation, view)
	}

	counts, err := s.claims.CountsByStatus(ctx, port.Scope{
		View:     view,
		ViewerID: actorID,
		From:     from,
		To:       to,
	})
	if err != nil {
		s.logger.Error("Failed to count claims", "error", err, "view", view, "actor_id", actorID)
		return nil, err
	}

	result := make(map[claim.Status]int, 7)
	for _, status := range []claim.Status{
		claim.StatusDraft, claim.StatusPending, claim.StatusApproved, claim.StatusRejected,
		claim.StatusReturned, claim.StatusPaid, claim.StatusCancelled,
	} {
		result[status] = counts[status]
	}
	return result, nil
}

func (s *lifecycleServiceImpl) load(ctx context.Context, claimID int64) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: claim %d", claim.ErrNotFound, claimID)
	}
	return c, nil
}

// resolveApprovers returns the ordered approver chain for the claim's
// project. A claim without a project requires no approval; a project with
// an empty chain is a configuration error.
func (s *lifecycleServiceImpl) resolveApprovers(ctx context.Context, c *claim.Claim) ([]string, error) {
	if c.ProjectID == "" {
		return nil, nil
	}
	approvers, err := s.projects.ResolveApprovers(ctx, c.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("resolve approvers for project %s: %w", c.ProjectID, err)
	}
	if len(approvers) == 0 {
		return nil, fmt.Errorf("%w: project %s has no approvers", claim.ErrConfiguration, c.ProjectID)
	}
	return approvers, nil
}

// approvalRecipients is the claimant plus everyone in finance. Directory
// failures shrink the recipient list rather than failing the transition.
func (s *lifecycleServiceImpl) approvalRecipients(ctx context.Context, c *claim.Claim) []string {
	recipients := []string{c.ClaimantID}
	finance, err := s.staff.ListByRole(ctx, claim.RoleFinance)
	if err != nil {
		s.logger.Error("Failed to list finance staff for notification", "error", err, "claim_id", c.ID)
		return recipients
	}
	for _, f := range finance {
		if f.ID != c.ClaimantID {
			recipients = append(recipients, f.ID)
		}
	}
	return recipients
}

func (s *lifecycleServiceImpl) appendLog(ctx context.Context, claimID int64, actorID, message string, ts time.Time) error {
	return s.claims.AppendLog(ctx, &claim.ChangeLogEntry{
		ClaimID:   claimID,
		ActorID:   actorID,
		Message:   message,
		Timestamp: ts,
	})
}
