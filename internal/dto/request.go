package dto

import "github.com/noah-isme/bloodbank-api/internal/models"

// SubmitRequestRequest creates a pending blood request.
type SubmitRequestRequest struct {
	RequesterName string            `json:"requester_name" validate:"required,max=120"`
	BloodGroup    models.BloodGroup `json:"blood_group" validate:"required,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	ComponentType string            `json:"component_type" validate:"required,max=64"`
	Quantity      int               `json:"quantity" validate:"required,min=1,max=20"`
}

// FulfillResponse reports the issue records created by an allocation.
type FulfillResponse struct {
	RequestID string   `json:"request_id"`
	IssueID   string   `json:"issue_id"`
	IssueIDs  []string `json:"issue_ids"`
	UnitIDs   []string `json:"inventory_unit_ids"`
}
