package lifecycle

// Trigger represents an actor event that can cause a claim status transition
type Trigger string

const (
	TriggerSubmit   Trigger = "SUBMIT"
	TriggerEdit     Trigger = "EDIT"
	TriggerApprove  Trigger = "APPROVE"
	TriggerReject   Trigger = "REJECT"
	TriggerReturn   Trigger = "RETURN"
	TriggerResubmit Trigger = "RESUBMIT"
	TriggerPay      Trigger = "PAY"
	TriggerCancel   Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
