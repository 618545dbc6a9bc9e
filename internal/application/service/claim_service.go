package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
	"github.com/minhtran/claimflow/internal/domain/lifecycle"
)

// DraftInput carries the claimant-editable fields of a claim
type DraftInput struct {
	Name       string
	Type       claim.Type
	Remark     string
	ProjectID  string
	Amount     decimal.Decimal
	TotalHours decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time
}

// ClaimService manages claim drafts and read access. Status changes other
// than Draft edits belong to LifecycleService.
type ClaimService interface {
	CreateDraft(ctx context.Context, actorID string, in DraftInput) (*claim.Claim, error)
	Edit(ctx context.Context, claimID int64, actorID string, in DraftInput) (*claim.Claim, error)
	Get(ctx context.Context, claimID int64, actorID string) (*claim.Claim, error)
	List(ctx context.Context, view claim.ViewMode, actorID string, limit, offset int) ([]*claim.Claim, error)
	ChangeLog(ctx context.Context, claimID int64, actorID string) ([]*claim.ChangeLogEntry, error)
}

type claimServiceImpl struct {
	claims    port.ClaimRepository
	staff     port.StaffDirectory
	projects  port.ProjectDirectory
	txManager port.TransactionManager
	logger    Logger
	now       func() time.Time
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	claims port.ClaimRepository,
	staff port.StaffDirectory,
	projects port.ProjectDirectory,
	txManager port.TransactionManager,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		claims:    claims,
		staff:     staff,
		projects:  projects,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateDraft creates a claim in Draft for the acting claimant. Field
// constraints are not enforced here; a draft may be composed incrementally
// and is validated at submit and edit time.
func (s *claimServiceImpl) CreateDraft(ctx context.Context, actorID string, in DraftInput) (*claim.Claim, error) {
	if _, err := s.staff.GetByID(ctx, actorID); err != nil {
		return nil, fmt.Errorf("%w: unknown staff %s", claim.ErrNotFound, actorID)
	}
	if in.ProjectID != "" {
		project, err := s.projects.GetByID(ctx, in.ProjectID)
		if err != nil || project == nil {
			return nil, fmt.Errorf("%w: unknown project %s", claim.ErrValidation, in.ProjectID)
		}
	}

	now := s.now()
	c := &claim.Claim{
		Code:       uuid.NewString(),
		Name:       in.Name,
		Type:       in.Type,
		Remark:     in.Remark,
		Status:     claim.StatusDraft,
		ClaimantID: actorID,
		ProjectID:  in.ProjectID,
		Amount:     in.Amount,
		TotalHours: in.TotalHours,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claims.Create(txCtx, c); err != nil {
			return err
		}
		return s.claims.AppendLog(txCtx, &claim.ChangeLogEntry{
			ClaimID:   c.ID,
			ActorID:   actorID,
			Message:   "created",
			Timestamp: now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to create draft", "error", err, "claimant_id", actorID)
		return nil, err
	}

	s.logger.Info("Draft created", "claim_id", c.ID, "claimant_id", actorID)
	return c, nil
}

// Edit updates a draft's fields. Editing outside Draft is rejected with
// an invalid-state error; the edited draft must pass field validation.
func (s *claimServiceImpl) Edit(ctx context.Context, claimID int64, actorID string, in DraftInput) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: claim %d", claim.ErrNotFound, claimID)
	}
	if c.ClaimantID != actorID {
		return nil, fmt.Errorf("%w: only the claimant may edit claim %d", claim.ErrForbidden, claimID)
	}

	machine := lifecycle.NewClaimMachine(c.Status)
	if !machine.CanFire(lifecycle.TriggerEdit) {
		return nil, fmt.Errorf("%w: claim %d is %s", claim.ErrInvalidStateForEdit, claimID, c.Status)
	}

	if in.ProjectID != "" && in.ProjectID != c.ProjectID {
		project, err := s.projects.GetByID(ctx, in.ProjectID)
		if err != nil || project == nil {
			return nil, fmt.Errorf("%w: unknown project %s", claim.ErrValidation, in.ProjectID)
		}
	}

	expected := c.Version
	now := s.now()
	c.Name = in.Name
	c.Type = in.Type
	c.Remark = in.Remark
	c.ProjectID = in.ProjectID
	c.Amount = in.Amount
	c.TotalHours = in.TotalHours
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	c.UpdatedAt = now

	if err := c.Validate(); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claims.Save(txCtx, c, expected); err != nil {
			return err
		}
		return s.claims.AppendLog(txCtx, &claim.ChangeLogEntry{
			ClaimID:   c.ID,
			ActorID:   actorID,
			Message:   "edited",
			Timestamp: now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to edit claim", "error", err, "claim_id", claimID)
		return nil, err
	}

	s.logger.Info("Claim edited", "claim_id", claimID)
	return c, nil
}

// Get returns the full claim aggregate if the actor may see it: the
// claimant, an assigned approver, or finance/admin staff.
func (s *claimServiceImpl) Get(ctx context.Context, claimID int64, actorID string) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: claim %d", claim.ErrNotFound, claimID)
	}
	if err := s.authorizeRead(ctx, c, actorID); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns claims visible under the actor's view mode, newest first.
func (s *claimServiceImpl) List(ctx context.Context, view claim.ViewMode, actorID string, limit, offset int) ([]*claim.Claim, error) {
	if !view.IsValid() {
		return nil, fmt.Errorf("%w: unknown view mode %q", claim.ErrValidation, view)
	}
	claims, err := s.claims.List(ctx, port.Scope{View: view, ViewerID: actorID}, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list claims", "error", err, "view", view, "actor_id", actorID)
		return nil, err
	}
	return claims, nil
}

// ChangeLog returns the claim's audit trail in insertion order.
func (s *claimServiceImpl) ChangeLog(ctx context.Context, claimID int64, actorID string) ([]*claim.ChangeLogEntry, error) {
	c, err := s.Get(ctx, claimID, actorID)
	if err != nil {
		return nil, err
	}
	return c.Log, nil
}

func (s *claimServiceImpl) authorizeRead(ctx context.Context, c *claim.Claim, actorID string) error {
	if c.ClaimantID == actorID || c.AssignmentFor(actorID) != nil {
		return nil
	}
	role, err := s.staff.RoleOf(ctx, actorID)
	if err == nil && (role == claim.RoleFinance || role == claim.RoleAdmin) {
		return nil
	}
	return fmt.Errorf("%w: claim %d is not visible to this actor", claim.ErrForbidden, c.ID)
}
