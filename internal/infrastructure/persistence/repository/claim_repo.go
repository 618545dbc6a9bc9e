package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
	"github.com/minhtran/claimflow/internal/infrastructure/persistence/sqlite"
)

// ClaimRepository implements port.ClaimRepository over sqlite
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

const claimColumns = `id, code, name, claim_type, remark, status, claimant_id, project_id,
	amount, total_hours, start_date, end_date, version, paid_at, created_at, updated_at`

// Create inserts a new claim row
func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	query := `
		INSERT INTO claims (
			code, name, claim_type, remark, status, claimant_id, project_id,
			amount, total_hours, start_date, end_date, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		c.Code,
		c.Name,
		string(c.Type),
		c.Remark,
		string(c.Status),
		c.ClaimantID,
		nullableString(c.ProjectID),
		c.Amount.String(),
		c.TotalHours.String(),
		nullableTime(c.StartDate),
		nullableTime(c.EndDate),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	c.ID = id
	c.Version = 0
	return nil
}

// GetByID retrieves the full claim aggregate: the claim row, its assignments
// in sequence order and its change log in insertion order.
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*claim.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE id = ?`, claimColumns)

	c, err := r.scanClaim(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	if c.Assignments, err = r.loadAssignments(ctx, id); err != nil {
		return nil, err
	}
	if c.Log, err = r.loadLog(ctx, id); err != nil {
		return nil, err
	}

	return c, nil
}

// Save writes the claim row guarded by the expected version and replaces the
// assignment set. Zero affected rows means a concurrent writer won the race.
func (r *ClaimRepository) Save(ctx context.Context, c *claim.Claim, expectedVersion int64) error {
	query := `
		UPDATE claims SET
			name = ?, claim_type = ?, remark = ?, status = ?, project_id = ?,
			amount = ?, total_hours = ?, start_date = ?, end_date = ?,
			paid_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		c.Name,
		string(c.Type),
		c.Remark,
		string(c.Status),
		nullableString(c.ProjectID),
		c.Amount.String(),
		c.TotalHours.String(),
		nullableTime(c.StartDate),
		nullableTime(c.EndDate),
		c.PaidAt,
		c.UpdatedAt,
		c.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save claim", zap.Int64("id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to save claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: claim %d expected version %d", claim.ErrConcurrentModification, c.ID, expectedVersion)
	}
	c.Version = expectedVersion + 1

	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM claim_approvers WHERE claim_id = ?`, c.ID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	for _, a := range c.Assignments {
		result, err := r.getExecutor(ctx).ExecContext(ctx, `
			INSERT INTO claim_approvers (claim_id, approver_id, sequence, decision, decided_at)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, a.ApproverID, a.Sequence, string(a.Decision), a.DecidedAt)
		if err != nil {
			return fmt.Errorf("failed to save assignment: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			a.ID = id
		}
		a.ClaimID = c.ID
	}

	return nil
}

// AppendLog appends an immutable audit entry
func (r *ClaimRepository) AppendLog(ctx context.Context, entry *claim.ChangeLogEntry) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO claim_change_log (claim_id, actor_id, message, ts)
		VALUES (?, ?, ?, ?)
	`, entry.ClaimID, entry.ActorID, entry.Message, entry.Timestamp)
	if err != nil {
		r.logger.Error("Failed to append change log", zap.Int64("claim_id", entry.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to append change log: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// List retrieves claims visible in the scope, newest first. Child collections
// are not loaded.
func (r *ClaimRepository) List(ctx context.Context, scope port.Scope, limit, offset int) ([]*claim.Claim, error) {
	where, args := scopeClause(scope)
	query := fmt.Sprintf(`
		SELECT %s FROM claims c
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, claimColumns, where)
	args = append(args, limit, offset)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*claim.Claim
	for rows.Next() {
		c, err := r.scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}

	return claims, rows.Err()
}

// CountsByStatus returns claim counts per status within the scope
func (r *ClaimRepository) CountsByStatus(ctx context.Context, scope port.Scope) (map[claim.Status]int, error) {
	where, args := scopeClause(scope)
	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM claims c %s GROUP BY status`, where)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to count claims", zap.Error(err))
		return nil, fmt.Errorf("failed to count claims: %w", err)
	}
	defer rows.Close()

	counts := make(map[claim.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[claim.Status(status)] = count
	}

	return counts, rows.Err()
}

// scopeClause builds the WHERE clause for a visibility scope
func scopeClause(scope port.Scope) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	switch scope.View {
	case claim.ViewClaimant:
		conditions = append(conditions, "c.claimant_id = ?")
		args = append(args, scope.ViewerID)
	case claim.ViewApprover:
		conditions = append(conditions, "EXISTS (SELECT 1 FROM claim_approvers a WHERE a.claim_id = c.id AND a.approver_id = ?)")
		args = append(args, scope.ViewerID)
	}
	// Finance and admin see everything.

	if scope.From != nil {
		conditions = append(conditions, "c.created_at >= ?")
		args = append(args, *scope.From)
	}
	if scope.To != nil {
		conditions = append(conditions, "c.created_at <= ?")
		args = append(args, *scope.To)
	}

	if len(conditions) == 0 {
		return "", args
	}
	where := "WHERE " + conditions[0]
	for _, cond := range conditions[1:] {
		where += " AND " + cond
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ClaimRepository) scanClaim(row rowScanner) (*claim.Claim, error) {
	var c claim.Claim
	var claimType, status, amount, totalHours string
	var projectID sql.NullString
	var startDate, endDate, paidAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&claimType,
		&c.Remark,
		&status,
		&c.ClaimantID,
		&projectID,
		&amount,
		&totalHours,
		&startDate,
		&endDate,
		&c.Version,
		&paidAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Type = claim.Type(claimType)
	c.Status = claim.Status(status)
	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if c.TotalHours, err = decimal.NewFromString(totalHours); err != nil {
		return nil, fmt.Errorf("invalid total hours %q: %w", totalHours, err)
	}
	if projectID.Valid {
		c.ProjectID = projectID.String
	}
	if startDate.Valid {
		c.StartDate = startDate.Time
	}
	if endDate.Valid {
		c.EndDate = endDate.Time
	}
	if paidAt.Valid {
		c.PaidAt = &paidAt.Time
	}

	return &c, nil
}

func (r *ClaimRepository) loadAssignments(ctx context.Context, claimID int64) ([]*claim.ApproverAssignment, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, claim_id, approver_id, sequence, decision, decided_at
		FROM claim_approvers
		WHERE claim_id = ?
		ORDER BY sequence
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*claim.ApproverAssignment
	for rows.Next() {
		var a claim.ApproverAssignment
		var decision string
		var decidedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.ClaimID, &a.ApproverID, &a.Sequence, &decision, &decidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Decision = claim.Decision(decision)
		if decidedAt.Valid {
			a.DecidedAt = &decidedAt.Time
		}
		assignments = append(assignments, &a)
	}

	return assignments, rows.Err()
}

func (r *ClaimRepository) loadLog(ctx context.Context, claimID int64) ([]*claim.ChangeLogEntry, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, claim_id, actor_id, message, ts
		FROM claim_change_log
		WHERE claim_id = ?
		ORDER BY id
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load change log: %w", err)
	}
	defer rows.Close()

	var entries []*claim.ChangeLogEntry
	for rows.Next() {
		var e claim.ChangeLogEntry
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.ActorID, &e.Message, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan change log entry: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// getExecutor returns the transaction from the context when present
func (r *ClaimRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
