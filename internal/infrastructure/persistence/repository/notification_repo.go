package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
	"github.com/minhtran/claimflow/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements the outbox table behind port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

// Enqueue inserts a pending outbox row. It participates in the caller's
// transaction so a rolled-back transition leaves no orphan notification.
func (r *NotificationRepository) Enqueue(ctx context.Context, n *claim.Notification) error {
	recipients, err := json.Marshal(n.Recipients)
	if err != nil {
		return fmt.Errorf("failed to marshal recipients: %w", err)
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.Status = claim.NotificationStatusPending

	result, err := r.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO notifications (claim_id, kind, recipients, status, attempts, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, n.ClaimID, string(n.Kind), string(recipients), n.Status, n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to enqueue notification", zap.Int64("claim_id", n.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		n.ID = id
	}
	return nil
}

// GetPending retrieves pending notifications, oldest first
func (r *NotificationRepository) GetPending(ctx context.Context, limit int) ([]*claim.Notification, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, claim_id, kind, recipients, status, attempts, last_error, sent_at, created_at
		FROM notifications
		WHERE status = ?
		ORDER BY id
		LIMIT ?
	`, claim.NotificationStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*claim.Notification
	for rows.Next() {
		var n claim.Notification
		var kind, recipients string
		var sentAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.ClaimID, &kind, &recipients, &n.Status, &n.Attempts, &n.LastError, &sentAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Kind = claim.TemplateKind(kind)
		if err := json.Unmarshal([]byte(recipients), &n.Recipients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipients: %w", err)
		}
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// MarkSent records a successful delivery
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx, `
		UPDATE notifications
		SET status = ?, sent_at = ?, attempts = attempts + 1, last_error = ''
		WHERE id = ?
	`, claim.NotificationStatusSent, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to mark notification sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt. The row stays pending until
// the attempt limit is reached so the dispatcher retries it.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx, `
		UPDATE notifications
		SET attempts = attempts + 1,
			last_error = ?,
			status = CASE WHEN attempts + 1 >= 5 THEN ? ELSE status END
		WHERE id = ?
	`, errMsg, claim.NotificationStatusFailed, id)
	if err != nil {
		r.logger.Error("Failed to mark notification failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

func (r *NotificationRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
