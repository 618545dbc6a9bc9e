package claim

// Status represents where a claim sits in its approval lifecycle
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusReturned  Status = "RETURNED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

var validStatuses = map[Status]bool{
	StatusDraft:     true,
	StatusPending:   true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusReturned:  true,
	StatusPaid:      true,
	StatusCancelled: true,
}

var terminalStatuses = map[Status]bool{
	StatusPaid:      true,
	StatusCancelled: true,
}

// IsTerminal returns true if the status is terminal (no further transitions allowed)
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is a known claim status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Decision represents one approver's vote on a claim
type Decision string

const (
	DecisionPending  Decision = "PENDING"
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

var validDecisions = map[Decision]bool{
	DecisionPending:  true,
	DecisionApproved: true,
	DecisionRejected: true,
}

// IsValid returns true if the decision is a known decision value
func (d Decision) IsValid() bool {
	return validDecisions[d]
}

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}

// Type classifies what a claim is for
type Type string

const (
	TypeOvertime Type = "OVERTIME"
	TypeBonus    Type = "BONUS"
	TypeSalary   Type = "SALARY"
	TypeOther    Type = "OTHER"
)

var validTypes = map[Type]bool{
	TypeOvertime: true,
	TypeBonus:    true,
	TypeSalary:   true,
	TypeOther:    true,
}

// IsValid returns true if the type is a known claim type
func (t Type) IsValid() bool {
	return validTypes[t]
}
