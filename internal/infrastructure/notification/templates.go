package notification

import (
	"fmt"

	"github.com/minhtran/claimflow/internal/domain/claim"
)

// RenderTemplate builds the email subject and body for a notification kind
func RenderTemplate(kind claim.TemplateKind, c *claim.Claim) (subject, body string) {
	switch kind {
	case claim.TemplateApproverAssigned:
		subject = fmt.Sprintf("Claim %s awaits your approval", c.Code)
		body = fmt.Sprintf(
			"Claim %q (%s) submitted by %s is waiting for your decision.\n\nAmount: %s\nPeriod: %s to %s\n",
			c.Name, c.Code, c.ClaimantID,
			c.Amount.StringFixed(2),
			c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"))
	case claim.TemplateClaimApproved:
		subject = fmt.Sprintf("Claim %s fully approved", c.Code)
		body = fmt.Sprintf(
			"Claim %q (%s) has been approved by every assigned approver and is ready for payment.\n\nAmount: %s\n",
			c.Name, c.Code, c.Amount.StringFixed(2))
	case claim.TemplateClaimRejected:
		subject = fmt.Sprintf("Claim %s rejected", c.Code)
		body = fmt.Sprintf("Claim %q (%s) was rejected. See the claim's change log for the reviewer's remark.\n", c.Name, c.Code)
	case claim.TemplateClaimReturned:
		subject = fmt.Sprintf("Claim %s returned", c.Code)
		body = fmt.Sprintf("Claim %q (%s) was returned to you for changes. Update the claim and submit it again.\n", c.Name, c.Code)
	case claim.TemplateClaimPaid:
		subject = fmt.Sprintf("Claim %s paid", c.Code)
		body = fmt.Sprintf("Claim %q (%s) has been paid.\n\nAmount: %s\n", c.Name, c.Code, c.Amount.StringFixed(2))
	default:
		subject = fmt.Sprintf("Update on claim %s", c.Code)
		body = fmt.Sprintf("Claim %q (%s) status: %s\n", c.Name, c.Code, c.Status)
	}
	return subject, body
}
