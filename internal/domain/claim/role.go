package claim

// Role is a staff member's role as known to the staff directory
type Role string

const (
	RoleClaimant Role = "CLAIMANT"
	RoleApprover Role = "APPROVER"
	RoleFinance  Role = "FINANCE"
	RoleAdmin    Role = "ADMIN"
)

// ViewMode is the role-scoped lens used to filter visible claims
type ViewMode string

const (
	ViewClaimant ViewMode = "CLAIMANT"
	ViewApprover ViewMode = "APPROVER"
	ViewFinance  ViewMode = "FINANCE"
	ViewAdmin    ViewMode = "ADMIN"
)

var validViewModes = map[ViewMode]bool{
	ViewClaimant: true,
	ViewApprover: true,
	ViewFinance:  true,
	ViewAdmin:    true,
}

// IsValid returns true if the view mode is known
func (v ViewMode) IsValid() bool {
	return validViewModes[v]
}
