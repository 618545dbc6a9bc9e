package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
	"github.com/minhtran/claimflow/pkg/utils"
)

// DispatcherConfig holds dispatcher tuning knobs
type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultDispatcherConfig returns default dispatcher configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    20,
	}
}

// Dispatcher drains the notification outbox in the background. Delivery is
// at-least-once: a row is only marked sent after the mail server accepted
// the message, and failed rows are retried on later polls.
type Dispatcher struct {
	cfg    DispatcherConfig
	outbox port.NotificationRepository
	claims port.ClaimRepository
	staff  port.StaffDirectory
	sender port.EmailSender
	logger *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(
	cfg DispatcherConfig,
	outbox port.NotificationRepository,
	claims port.ClaimRepository,
	staff port.StaffDirectory,
	sender port.EmailSender,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultDispatcherConfig().PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultDispatcherConfig().BatchSize
	}
	return &Dispatcher{
		cfg:    cfg,
		outbox: outbox,
		claims: claims,
		staff:  staff,
		sender: sender,
		logger: logger,
	}
}

// Name identifies the worker
func (d *Dispatcher) Name() string {
	return "notification-dispatcher"
}

// Start begins polling the outbox until the context is cancelled
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.stopped = make(chan struct{})
	d.mu.Unlock()

	go func() {
		defer close(d.stopped)
		ticker := time.NewTicker(d.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				d.drainOnce(runCtx)
			}
		}
	}()

	d.logger.Info("Notification dispatcher started",
		zap.Duration("poll_interval", d.cfg.PollInterval),
		zap.Int("batch_size", d.cfg.BatchSize))
	return nil
}

// Stop cancels the polling loop and waits for it to exit
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	cancel, stopped := d.cancel, d.stopped
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-stopped
	d.logger.Info("Notification dispatcher stopped")
	return nil
}

// drainOnce processes one batch of pending notifications
func (d *Dispatcher) drainOnce(ctx context.Context) {
	pending, err := d.outbox.GetPending(ctx, d.cfg.BatchSize)
	if err != nil {
		d.logger.Error("Failed to poll notification outbox", zap.Error(err))
		return
	}

	for _, n := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := d.deliver(ctx, n); err != nil {
			d.logger.Error("Notification delivery failed",
				zap.Int64("notification_id", n.ID),
				zap.Int64("claim_id", n.ClaimID),
				zap.Error(err))
			if markErr := d.outbox.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				d.logger.Error("Failed to record delivery failure", zap.Int64("notification_id", n.ID), zap.Error(markErr))
			}
			continue
		}
		if err := d.outbox.MarkSent(ctx, n.ID); err != nil {
			d.logger.Error("Failed to mark notification sent", zap.Int64("notification_id", n.ID), zap.Error(err))
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *claim.Notification) error {
	c, err := d.claims.GetByID(ctx, n.ClaimID)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	if c == nil {
		return fmt.Errorf("claim %d no longer exists", n.ClaimID)
	}

	var emails []string
	for _, staffID := range n.Recipients {
		staff, err := d.staff.GetByID(ctx, staffID)
		if err != nil {
			d.logger.Error("Skipping unknown notification recipient",
				zap.Int64("notification_id", n.ID),
				zap.String("staff_id", staffID),
				zap.Error(err))
			continue
		}
		if err := utils.ValidateEmail(staff.Email); err != nil {
			d.logger.Error("Skipping recipient with invalid email",
				zap.String("staff_id", staffID),
				zap.Error(err))
			continue
		}
		emails = append(emails, staff.Email)
	}
	if len(emails) == 0 {
		// All recipients unresolvable; nothing left to retry.
		return nil
	}

	subject, body := RenderTemplate(n.Kind, c)
	return d.sender.Send(ctx, emails, subject, body)
}
