package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
)

func newClaimService(
	claims *mockClaimRepo,
	staff *mockStaffDirectory,
	projects *mockProjectDirectory,
) ClaimService {
	return NewClaimService(claims, staff, projects, &mockTxManager{}, &mockLogger{})
}

func draftInput() DraftInput {
	return DraftInput{
		Name:       "March overtime",
		Type:       claim.TypeOvertime,
		ProjectID:  "proj-1",
		Amount:     decimal.NewFromInt(120),
		TotalHours: decimal.NewFromInt(8),
		StartDate:  time.Now().AddDate(0, 0, 1),
		EndDate:    time.Now().AddDate(0, 0, 2),
	}
}

func TestClaimService_CreateDraft(t *testing.T) {
	t.Run("creates a draft with a code", func(t *testing.T) {
		claims := &mockClaimRepo{}
		svc := newClaimService(claims, &mockStaffDirectory{}, &mockProjectDirectory{})

		got, err := svc.CreateDraft(context.Background(), "staff-001", draftInput())

		if err != nil {
			t.Fatalf("CreateDraft() error = %v", err)
		}
		if got.Status != claim.StatusDraft {
			t.Errorf("CreateDraft() status = %v, want DRAFT", got.Status)
		}
		if got.Code == "" {
			t.Errorf("CreateDraft() code is empty")
		}
		if got.ClaimantID != "staff-001" {
			t.Errorf("CreateDraft() claimant = %v, want staff-001", got.ClaimantID)
		}
		if len(claims.savedLog) != 1 || claims.savedLog[0].Message != "created" {
			t.Errorf("CreateDraft() log = %+v, want single created entry", claims.savedLog)
		}
	})

	t.Run("empty draft is allowed", func(t *testing.T) {
		svc := newClaimService(&mockClaimRepo{}, &mockStaffDirectory{}, &mockProjectDirectory{})
		if _, err := svc.CreateDraft(context.Background(), "staff-001", DraftInput{}); err != nil {
			t.Errorf("CreateDraft() error = %v, want nil for incomplete draft", err)
		}
	})

	t.Run("unknown staff", func(t *testing.T) {
		staff := &mockStaffDirectory{
			getByIDFunc: func(ctx context.Context, staffID string) (*port.Staff, error) {
				return nil, errors.New("no rows")
			},
		}
		svc := newClaimService(&mockClaimRepo{}, staff, &mockProjectDirectory{})
		if _, err := svc.CreateDraft(context.Background(), "ghost", draftInput()); !errors.Is(err, claim.ErrNotFound) {
			t.Errorf("CreateDraft() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		projects := &mockProjectDirectory{
			getByIDFunc: func(ctx context.Context, projectID string) (*port.Project, error) {
				return nil, nil
			},
		}
		svc := newClaimService(&mockClaimRepo{}, &mockStaffDirectory{}, projects)
		if _, err := svc.CreateDraft(context.Background(), "staff-001", draftInput()); !errors.Is(err, claim.ErrValidation) {
			t.Errorf("CreateDraft() error = %v, want ErrValidation", err)
		}
	})
}

func TestClaimService_Edit(t *testing.T) {
	t.Run("edits a draft", func(t *testing.T) {
		stored := storedClaim(claim.StatusDraft)
		claims := &mockClaimRepo{
			getByIDFunc: func(ctx context.Context, id int64) (*claim.Claim, error) { return stored, nil },
		}
		svc := newClaimService(claims, &mockStaffDirectory{}, &mockProjectDirectory{})

		in := draftInput()
		in.Name = "Revised overtime"
		in.StartDate = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
		in.EndDate = time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

		got, err := svc.Edit(context.Background(), 7, "staff-001", in)
		if err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		if got.Name != "Revised overtime" {
			t.Errorf("Edit() name = %v, want Revised overtime", got.Name)
		}
		if got.Status != claim.StatusDraft {
			t.Errorf("Edit() status = %v, want DRAFT", got.Status)
		}
	})

	t.Run("editing outside draft", func(t *testing.T) {
		for _, status := range []claim.Status{
			claim.StatusPending, claim.StatusApproved, claim.StatusRejected,
			claim.StatusReturned, claim.StatusPaid, claim.StatusCancelled,
		} {
			stored := storedClaim(status)
			claims := &mockClaimRepo{
				getByIDFunc: func(ctx context.Context, id int64) (*claim.Claim, error) { return stored, nil },
			}
			svc := newClaimService(claims, &mockStaffDirectory{}, &mockProjectDirectory{})

			if _, err := svc.Edit(context.Background(), 7, "staff-001", draftInput()); !errors.Is(err, claim.ErrInvalidStateForEdit) {
				t.Errorf("Edit() from %s error = %v, want ErrInvalidStateForEdit", status, err)
			}
		}
	})

	t.Run("only the claimant may edit", func(t *testing.T) {
		stored := storedClaim(claim.StatusDraft)
		claims := &mockClaimRepo{
			getByIDFunc: func(ctx context.Context, id int64) (*claim.Claim, error) { return stored, nil },
		}
		svc := newClaimService(claims, &mockStaffDirectory{}, &mockProjectDirectory{})

		if _, err := svc.Edit(context.Background(), 7, "stranger", draftInput()); !errors.Is(err, claim.ErrForbidden) {
			t.Errorf("Edit() error = %v, want ErrForbidden", err)
		}
	})

	t.Run("invalid fields are rejected", func(t *testing.T) {
		stored := storedClaim(claim.StatusDraft)
		claims := &mockClaimRepo{
			getByIDFunc: func(ctx context.Context, id int64) (*claim.Claim, error) { return stored, nil },
		}
		svc := newClaimService(claims, &mockStaffDirectory{}, &mockProjectDirectory{})

		in := draftInput()
		in.Amount = decimal.NewFromInt(-50)
		if _, err := svc.Edit(context.Background(), 7, "staff-001", in); !errors.Is(err, claim.ErrValidation) {
			t.Errorf("Edit() error = %v, want ErrValidation", err)
		}
	})

	t.Run("missing claim", func(t *testing.T) {
		svc := newClaimService(&mockClaimRepo{}, &mockStaffDirectory{}, &mockProjectDirectory{})
		if _, err := svc.Edit(context.Background(), 404, "staff-001", draftInput()); !errors.Is(err, claim.ErrNotFound) {
			t.Errorf("Edit() error = %v, want ErrNotFound", err)
		}
	})
}

func TestClaimService_Get(t *testing.T) {
	stored := storedClaim(claim.StatusPending)
	stored.Assignments = []*claim.ApproverAssignment{
		{ApproverID: "approver-1", Sequence: 1, Decision: claim.DecisionPending},
	}
	claims := &mockClaimRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*claim.Claim, error) { return stored, nil },
	}
	staff := &mockStaffDirectory{
		roleOfFunc: func(ctx context.Context, staffID string) (claim.Role, error) {
			switch staffID {
			case "finance-1":
				return claim.RoleFinance, nil
			case "admin-1":
				return claim.RoleAdmin, nil
			}
			return claim.RoleClaimant, nil
		},
	}
	svc := newClaimService(claims, staff, &mockProjectDirectory{})

	tests := []struct {
		name    string
		actorID string
		wantErr bool
	}{
		{"claimant", "staff-001", false},
		{"assigned approver", "approver-1", false},
		{"finance", "finance-1", false},
		{"admin", "admin-1", false},
		{"unrelated claimant", "staff-002", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Get(context.Background(), 7, tt.actorID)
			if (err != nil) != tt.wantErr {
				t.Errorf("Get() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, claim.ErrForbidden) {
				t.Errorf("Get() error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestClaimService_List(t *testing.T) {
	t.Run("passes view scope through", func(t *testing.T) {
		var gotScope port.Scope
		claims := &mockClaimRepo{
			listFunc: func(ctx context.Context, scope port.Scope, limit, offset int) ([]*claim.Claim, error) {
				gotScope = scope
				return []*claim.Claim{storedClaim(claim.StatusPending)}, nil
			},
		}
		svc := newClaimService(claims, &mockStaffDirectory{}, &mockProjectDirectory{})

		list, err := svc.List(context.Background(), claim.ViewApprover, "approver-1", 20, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) != 1 {
			t.Errorf("List() = %d claims, want 1", len(list))
		}
		if gotScope.View != claim.ViewApprover || gotScope.ViewerID != "approver-1" {
			t.Errorf("List() scope = %+v, want approver view for approver-1", gotScope)
		}
	})

	t.Run("unknown view mode", func(t *testing.T) {
		svc := newClaimService(&mockClaimRepo{}, &mockStaffDirectory{}, &mockProjectDirectory{})
		if _, err := svc.List(context.Background(), claim.ViewMode("GUEST"), "x", 20, 0); !errors.Is(err, claim.ErrValidation) {
			t.Errorf("List() error = %v, want ErrValidation", err)
		}
	})
}

func TestClaimService_ChangeLog(t *testing.T) {
	stored := storedClaim(claim.StatusPending)
	stored.Log = []*claim.ChangeLogEntry{
		{ClaimID: 7, ActorID: "staff-001", Message: "created"},
		{ClaimID: 7, ActorID: "staff-001", Message: "submitted"},
	}
	claims := &mockClaimRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*claim.Claim, error) { return stored, nil },
	}
	svc := newClaimService(claims, &mockStaffDirectory{}, &mockProjectDirectory{})

	log, err := svc.ChangeLog(context.Background(), 7, "staff-001")
	if err != nil {
		t.Fatalf("ChangeLog() error = %v", err)
	}
	if len(log) != 2 || log[0].Message != "created" || log[1].Message != "submitted" {
		t.Errorf("ChangeLog() = %+v, want created then submitted", log)
	}
}
