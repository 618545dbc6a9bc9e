package lifecycle

import "github.com/minhtran/claimflow/internal/domain/claim"

// NewClaimMachine builds the claim status machine positioned at the given
// status. Approve deliberately lands back on Pending: the claim-level outcome
// of a decision is derived from the assignment aggregate by the caller, not
// encoded per-trigger here.
func NewClaimMachine(current claim.Status) Machine {
	b := NewBuilder()

	b.Configure(claim.StatusDraft).
		Permit(TriggerSubmit, claim.StatusPending).
		Permit(TriggerEdit, claim.StatusDraft).
		Permit(TriggerCancel, claim.StatusCancelled)

	b.Configure(claim.StatusPending).
		Permit(TriggerApprove, claim.StatusPending).
		Permit(TriggerReject, claim.StatusRejected).
		Permit(TriggerReturn, claim.StatusReturned).
		Permit(TriggerCancel, claim.StatusCancelled)

	b.Configure(claim.StatusApproved).
		Permit(TriggerPay, claim.StatusPaid).
		Permit(TriggerCancel, claim.StatusCancelled)

	b.Configure(claim.StatusRejected).
		Permit(TriggerCancel, claim.StatusCancelled)

	b.Configure(claim.StatusReturned).
		Permit(TriggerResubmit, claim.StatusPending).
		Permit(TriggerCancel, claim.StatusCancelled)

	// Paid and Cancelled are terminal: no triggers configured.

	return b.Build(current)
}
