package models

import "time"

// RequestStatus represents the lifecycle of a blood request.
type RequestStatus string

// Request states. Transitions only leave PENDING.
const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusFulfilled RequestStatus = "FULFILLED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// BloodRequest is a demand for units of one blood group and component.
type BloodRequest struct {
	ID            string        `db:"id" json:"id"`
	RequesterName string        `db:"requester_name" json:"requester_name"`
	BloodGroup    BloodGroup    `db:"blood_group" json:"blood_group"`
	ComponentType string        `db:"component_type" json:"component_type"`
	Quantity      int           `db:"quantity" json:"quantity"`
	Status        RequestStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestFilter provides filters for listing requests.
type RequestFilter struct {
	Status   RequestStatus
	Page     int
	PageSize int
}
