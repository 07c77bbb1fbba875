package models

import "time"

// Audit subject types.
const (
	AuditSubjectDonation = "DONATION"
	AuditSubjectUnit     = "INVENTORY_UNIT"
	AuditSubjectRequest  = "BLOOD_REQUEST"
	AuditSubjectDonor    = "DONOR"
	AuditSubjectCenter   = "CENTER"
)

// AuditAction constants represent recorded state transitions.
const (
	AuditActionDonationScheduled = "DONATION_SCHEDULED"
	AuditActionDonationCompleted = "DONATION_COMPLETED"
	AuditActionDonationCancelled = "DONATION_CANCELLED"
	AuditActionDonationDeleted   = "DONATION_DELETED"
	AuditActionUnitIssued        = "UNIT_ISSUED"
	AuditActionUnitExpired       = "UNIT_EXPIRED"
	AuditActionRequestCancelled  = "REQUEST_CANCELLED"
	AuditActionDonorDeleted      = "DONOR_DELETED"
	AuditActionCenterDeleted     = "CENTER_DELETED"
)

// AuditLogEntry is an immutable history record.
type AuditLogEntry struct {
	ID          string    `db:"id" json:"id"`
	SubjectType string    `db:"subject_type" json:"subject_type"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	Action      string    `db:"action" json:"action"`
	Detail      string    `db:"detail" json:"detail,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
