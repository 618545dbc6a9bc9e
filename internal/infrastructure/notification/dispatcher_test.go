package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
)

type mockOutbox struct {
	getPendingFunc func(ctx context.Context, limit int) ([]*claim.Notification, error)

	enqueued []*claim.Notification
	sent     []int64
	failed   []int64
}

func (m *mockOutbox) Enqueue(ctx context.Context, n *claim.Notification) error {
	m.enqueued = append(m.enqueued, n)
	return nil
}

func (m *mockOutbox) GetPending(ctx context.Context, limit int) ([]*claim.Notification, error) {
	if m.getPendingFunc != nil {
		return m.getPendingFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockOutbox) MarkSent(ctx context.Context, id int64) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *mockOutbox) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	m.failed = append(m.failed, id)
	return nil
}

type mockClaimLoader struct {
	claim *claim.Claim
}

func (m *mockClaimLoader) Create(ctx context.Context, c *claim.Claim) error { return nil }
func (m *mockClaimLoader) GetByID(ctx context.Context, id int64) (*claim.Claim, error) {
	return m.claim, nil
}
func (m *mockClaimLoader) Save(ctx context.Context, c *claim.Claim, expectedVersion int64) error {
	return nil
}
func (m *mockClaimLoader) AppendLog(ctx context.Context, entry *claim.ChangeLogEntry) error {
	return nil
}
func (m *mockClaimLoader) List(ctx context.Context, scope port.Scope, limit, offset int) ([]*claim.Claim, error) {
	return nil, nil
}
func (m *mockClaimLoader) CountsByStatus(ctx context.Context, scope port.Scope) (map[claim.Status]int, error) {
	return nil, nil
}

type mockStaffLookup struct {
	emails map[string]string
}

func (m *mockStaffLookup) GetByID(ctx context.Context, staffID string) (*port.Staff, error) {
	email, ok := m.emails[staffID]
	if !ok {
		return nil, errors.New("no rows")
	}
	return &port.Staff{ID: staffID, Email: email}, nil
}

func (m *mockStaffLookup) RoleOf(ctx context.Context, staffID string) (claim.Role, error) {
	return claim.RoleClaimant, nil
}

func (m *mockStaffLookup) ListByRole(ctx context.Context, role claim.Role) ([]*port.Staff, error) {
	return nil, nil
}

type mockSender struct {
	sendFunc func(ctx context.Context, to []string, subject, body string) error

	sentTo [][]string
}

func (m *mockSender) Send(ctx context.Context, to []string, subject, body string) error {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, to, subject, body)
	}
	m.sentTo = append(m.sentTo, to)
	return nil
}

func deliverableClaim() *claim.Claim {
	return &claim.Claim{
		ID:         7,
		Code:       "c0ffee",
		Name:       "March overtime",
		Status:     claim.StatusPending,
		ClaimantID: "staff-001",
		Amount:     decimal.NewFromInt(120),
		StartDate:  time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	}
}

func newTestDispatcher(outbox *mockOutbox, staff *mockStaffLookup, sender *mockSender) *Dispatcher {
	return NewDispatcher(
		DispatcherConfig{PollInterval: time.Hour, BatchSize: 10},
		outbox,
		&mockClaimLoader{claim: deliverableClaim()},
		staff,
		sender,
		zap.NewNop(),
	)
}

func TestDispatcher_DrainOnce_DeliversAndMarksSent(t *testing.T) {
	outbox := &mockOutbox{
		getPendingFunc: func(ctx context.Context, limit int) ([]*claim.Notification, error) {
			return []*claim.Notification{
				{ID: 1, ClaimID: 7, Kind: claim.TemplateApproverAssigned, Recipients: []string{"approver-1"}},
			}, nil
		},
	}
	staff := &mockStaffLookup{emails: map[string]string{"approver-1": "huy@example.com"}}
	sender := &mockSender{}

	d := newTestDispatcher(outbox, staff, sender)
	d.drainOnce(context.Background())

	if len(sender.sentTo) != 1 || sender.sentTo[0][0] != "huy@example.com" {
		t.Errorf("drainOnce() sent to %v, want [huy@example.com]", sender.sentTo)
	}
	if len(outbox.sent) != 1 || outbox.sent[0] != 1 {
		t.Errorf("drainOnce() marked sent %v, want [1]", outbox.sent)
	}
	if len(outbox.failed) != 0 {
		t.Errorf("drainOnce() marked failed %v, want none", outbox.failed)
	}
}

func TestDispatcher_DrainOnce_SendFailureMarksFailed(t *testing.T) {
	outbox := &mockOutbox{
		getPendingFunc: func(ctx context.Context, limit int) ([]*claim.Notification, error) {
			return []*claim.Notification{
				{ID: 2, ClaimID: 7, Kind: claim.TemplateClaimPaid, Recipients: []string{"staff-001"}},
			}, nil
		},
	}
	staff := &mockStaffLookup{emails: map[string]string{"staff-001": "minh@example.com"}}
	sender := &mockSender{
		sendFunc: func(ctx context.Context, to []string, subject, body string) error {
			return errors.New("smtp timeout")
		},
	}

	d := newTestDispatcher(outbox, staff, sender)
	d.drainOnce(context.Background())

	if len(outbox.failed) != 1 || outbox.failed[0] != 2 {
		t.Errorf("drainOnce() marked failed %v, want [2]", outbox.failed)
	}
	if len(outbox.sent) != 0 {
		t.Errorf("drainOnce() marked sent %v, want none", outbox.sent)
	}
}

func TestDispatcher_DrainOnce_SkipsUnresolvableRecipients(t *testing.T) {
	// Unknown staff and bad addresses are dropped; with no one left to mail
	// the row is marked sent rather than retried forever.
	outbox := &mockOutbox{
		getPendingFunc: func(ctx context.Context, limit int) ([]*claim.Notification, error) {
			return []*claim.Notification{
				{ID: 3, ClaimID: 7, Kind: claim.TemplateClaimReturned, Recipients: []string{"ghost", "bad-email"}},
			}, nil
		},
	}
	staff := &mockStaffLookup{emails: map[string]string{"bad-email": "not-an-address"}}
	sender := &mockSender{}

	d := newTestDispatcher(outbox, staff, sender)
	d.drainOnce(context.Background())

	if len(sender.sentTo) != 0 {
		t.Errorf("drainOnce() sent to %v, want none", sender.sentTo)
	}
	if len(outbox.sent) != 1 {
		t.Errorf("drainOnce() marked sent %v, want the unresolvable row retired", outbox.sent)
	}
}

func TestOutboxNotifier_Enqueue(t *testing.T) {
	outbox := &mockOutbox{}
	n := NewOutboxNotifier(outbox)

	if err := n.Enqueue(context.Background(), 7, claim.TemplateClaimApproved, []string{"staff-001"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if len(outbox.enqueued) != 1 || outbox.enqueued[0].ClaimID != 7 {
		t.Errorf("Enqueue() outbox rows = %+v, want one for claim 7", outbox.enqueued)
	}

	// No recipients, no row.
	if err := n.Enqueue(context.Background(), 7, claim.TemplateClaimApproved, nil); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if len(outbox.enqueued) != 1 {
		t.Errorf("Enqueue() with no recipients wrote a row")
	}
}

func TestRenderTemplate(t *testing.T) {
	c := deliverableClaim()

	tests := []struct {
		kind        claim.TemplateKind
		wantSubject string
	}{
		{claim.TemplateApproverAssigned, "Claim c0ffee awaits your approval"},
		{claim.TemplateClaimApproved, "Claim c0ffee fully approved"},
		{claim.TemplateClaimRejected, "Claim c0ffee rejected"},
		{claim.TemplateClaimReturned, "Claim c0ffee returned"},
		{claim.TemplateClaimPaid, "Claim c0ffee paid"},
		{claim.TemplateKind("UNKNOWN"), "Update on claim c0ffee"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			subject, body := RenderTemplate(tt.kind, c)
			if subject != tt.wantSubject {
				t.Errorf("RenderTemplate(%s) subject = %q, want %q", tt.kind, subject, tt.wantSubject)
			}
			if body == "" {
				t.Errorf("RenderTemplate(%s) body is empty", tt.kind)
			}
		})
	}
}
