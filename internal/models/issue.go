package models

import "time"

// BloodIssue links exactly one inventory unit to the request it satisfied.
type BloodIssue struct {
	ID              string    `db:"id" json:"id"`
	InventoryUnitID string    `db:"inventory_unit_id" json:"inventory_unit_id"`
	RequestID       string    `db:"request_id" json:"request_id"`
	IssueDate       time.Time `db:"issue_date" json:"issue_date"`
}

// FulfillmentResult is returned by a successful allocation.
type FulfillmentResult struct {
	Request BloodRequest `json:"request"`
	Issues  []BloodIssue `json:"issues"`
}
