package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/minhtran/claimflow/internal/domain/claim"
)

func TestClaimMachine_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    claim.Status
		trigger Trigger
		want    claim.Status
		wantErr bool
	}{
		{"submit from draft", claim.StatusDraft, TriggerSubmit, claim.StatusPending, false},
		{"edit keeps draft", claim.StatusDraft, TriggerEdit, claim.StatusDraft, false},
		{"cancel from draft", claim.StatusDraft, TriggerCancel, claim.StatusCancelled, false},
		{"approve stays pending", claim.StatusPending, TriggerApprove, claim.StatusPending, false},
		{"reject from pending", claim.StatusPending, TriggerReject, claim.StatusRejected, false},
		{"return from pending", claim.StatusPending, TriggerReturn, claim.StatusReturned, false},
		{"cancel from pending", claim.StatusPending, TriggerCancel, claim.StatusCancelled, false},
		{"pay from approved", claim.StatusApproved, TriggerPay, claim.StatusPaid, false},
		{"cancel from approved", claim.StatusApproved, TriggerCancel, claim.StatusCancelled, false},
		{"cancel from rejected", claim.StatusRejected, TriggerCancel, claim.StatusCancelled, false},
		{"resubmit from returned", claim.StatusReturned, TriggerResubmit, claim.StatusPending, false},
		{"cancel from returned", claim.StatusReturned, TriggerCancel, claim.StatusCancelled, false},

		{"submit from pending", claim.StatusPending, TriggerSubmit, claim.StatusPending, true},
		{"edit from pending", claim.StatusPending, TriggerEdit, claim.StatusPending, true},
		{"pay from pending", claim.StatusPending, TriggerPay, claim.StatusPending, true},
		{"approve from draft", claim.StatusDraft, TriggerApprove, claim.StatusDraft, true},
		{"resubmit from draft", claim.StatusDraft, TriggerResubmit, claim.StatusDraft, true},
		{"pay from rejected", claim.StatusRejected, TriggerPay, claim.StatusRejected, true},
		{"cancel from paid", claim.StatusPaid, TriggerCancel, claim.StatusPaid, true},
		{"pay from paid", claim.StatusPaid, TriggerPay, claim.StatusPaid, true},
		{"cancel from cancelled", claim.StatusCancelled, TriggerCancel, claim.StatusCancelled, true},
		{"submit from cancelled", claim.StatusCancelled, TriggerSubmit, claim.StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewClaimMachine(tt.from)
			err := m.Fire(context.Background(), tt.trigger)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Fire(%s) error = %v, wantErr %v", tt.trigger, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrTransitionNotPermitted) {
				t.Errorf("Fire(%s) error = %v, want wrapped ErrTransitionNotPermitted", tt.trigger, err)
			}
			if got := m.State(); got != tt.want {
				t.Errorf("State() after Fire(%s) = %v, want %v", tt.trigger, got, tt.want)
			}
		})
	}
}

func TestClaimMachine_TerminalStatusesHaveNoTriggers(t *testing.T) {
	for _, status := range []claim.Status{claim.StatusPaid, claim.StatusCancelled} {
		m := NewClaimMachine(status)
		if triggers := m.PermittedTriggers(); len(triggers) != 0 {
			t.Errorf("PermittedTriggers() from %s = %v, want none", status, triggers)
		}
	}
}

func TestClaimMachine_CanFire(t *testing.T) {
	m := NewClaimMachine(claim.StatusDraft)

	if !m.CanFire(TriggerEdit) {
		t.Errorf("CanFire(EDIT) from DRAFT = false, want true")
	}
	if m.CanFire(TriggerPay) {
		t.Errorf("CanFire(PAY) from DRAFT = true, want false")
	}
}

func TestBuilder_GuardedTransition(t *testing.T) {
	b := NewBuilder()
	allow := false
	b.Configure(claim.StatusDraft).
		PermitIf(TriggerSubmit, claim.StatusPending, func(ctx context.Context) bool { return allow })

	m := b.Build(claim.StatusDraft)
	if err := m.Fire(context.Background(), TriggerSubmit); !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() with failing guard error = %v, want ErrGuardFailed", err)
	}

	allow = true
	m = b.Build(claim.StatusDraft)
	if err := m.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Errorf("Fire() with passing guard error = %v", err)
	}
	if m.State() != claim.StatusPending {
		t.Errorf("State() = %v, want PENDING", m.State())
	}
}

func TestBuilder_BuildIsolatesConfiguration(t *testing.T) {
	b := NewBuilder()
	b.Configure(claim.StatusDraft).Permit(TriggerSubmit, claim.StatusPending)

	m := b.Build(claim.StatusDraft)

	// Later configuration must not leak into the already-built machine.
	b.Configure(claim.StatusDraft).Permit(TriggerPay, claim.StatusPaid)

	if m.CanFire(TriggerPay) {
		t.Errorf("CanFire(PAY) = true on machine built before configuration")
	}
}
