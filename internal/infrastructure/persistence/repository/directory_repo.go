package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
	"github.com/minhtran/claimflow/internal/infrastructure/persistence/sqlite"
)

// StaffDirectory implements port.StaffDirectory over the staff table
type StaffDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStaffDirectory creates a new staff directory
func NewStaffDirectory(db *sql.DB, logger *zap.Logger) port.StaffDirectory {
	return &StaffDirectory{db: db, logger: logger}
}

// GetByID retrieves a staff record
func (d *StaffDirectory) GetByID(ctx context.Context, staffID string) (*port.Staff, error) {
	var s port.Staff
	var role string
	err := d.executor(ctx).QueryRowContext(ctx,
		`SELECT id, name, email, role FROM staff WHERE id = ?`, staffID,
	).Scan(&s.ID, &s.Name, &s.Email, &role)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: staff %s", claim.ErrNotFound, staffID)
	}
	if err != nil {
		d.logger.Error("Failed to get staff", zap.String("staff_id", staffID), zap.Error(err))
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	s.Role = claim.Role(role)
	return &s, nil
}

// RoleOf returns the staff member's role
func (d *StaffDirectory) RoleOf(ctx context.Context, staffID string) (claim.Role, error) {
	s, err := d.GetByID(ctx, staffID)
	if err != nil {
		return "", err
	}
	return s.Role, nil
}

// ListByRole retrieves all staff with the given role
func (d *StaffDirectory) ListByRole(ctx context.Context, role claim.Role) ([]*port.Staff, error) {
	rows, err := d.executor(ctx).QueryContext(ctx,
		`SELECT id, name, email, role FROM staff WHERE role = ? ORDER BY id`, string(role))
	if err != nil {
		d.logger.Error("Failed to list staff by role", zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var staff []*port.Staff
	for rows.Next() {
		var s port.Staff
		var r string
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &r); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		s.Role = claim.Role(r)
		staff = append(staff, &s)
	}
	return staff, rows.Err()
}

func (d *StaffDirectory) executor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return d.db
}

// ProjectDirectory implements port.ProjectDirectory over the projects and
// project_approvers tables
type ProjectDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProjectDirectory creates a new project directory
func NewProjectDirectory(db *sql.DB, logger *zap.Logger) port.ProjectDirectory {
	return &ProjectDirectory{db: db, logger: logger}
}

// GetByID retrieves a project record, or nil if unknown
func (d *ProjectDirectory) GetByID(ctx context.Context, projectID string) (*port.Project, error) {
	var p port.Project
	err := d.executor(ctx).QueryRowContext(ctx,
		`SELECT id, name, active FROM projects WHERE id = ?`, projectID,
	).Scan(&p.ID, &p.Name, &p.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		d.logger.Error("Failed to get project", zap.String("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// ResolveApprovers returns the ordered approver chain configured for the project
func (d *ProjectDirectory) ResolveApprovers(ctx context.Context, projectID string) ([]string, error) {
	rows, err := d.executor(ctx).QueryContext(ctx, `
		SELECT approver_id FROM project_approvers
		WHERE project_id = ?
		ORDER BY sequence
	`, projectID)
	if err != nil {
		d.logger.Error("Failed to resolve approvers", zap.String("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("failed to resolve approvers: %w", err)
	}
	defer rows.Close()

	var approvers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan approver: %w", err)
		}
		approvers = append(approvers, id)
	}
	return approvers, rows.Err()
}

func (d *ProjectDirectory) executor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return d.db
}

// Verify interface compliance
var (
	_ port.StaffDirectory   = (*StaffDirectory)(nil)
	_ port.ProjectDirectory = (*ProjectDirectory)(nil)
)
