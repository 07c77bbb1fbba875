package models

import "time"

// DonationStatus represents the lifecycle of a donation.
type DonationStatus string

// Donation states. COMPLETED and CANCELLED are terminal.
const (
	DonationStatusScheduled DonationStatus = "SCHEDULED"
	DonationStatusCompleted DonationStatus = "COMPLETED"
	DonationStatusCancelled DonationStatus = "CANCELLED"
)

// Donation is one donation event at a center.
type Donation struct {
	ID           string         `db:"id" json:"id"`
	DonorID      string         `db:"donor_id" json:"donor_id"`
	CenterID     string         `db:"center_id" json:"center_id"`
	DonationType string         `db:"donation_type" json:"donation_type"`
	DonationDate time.Time      `db:"donation_date" json:"donation_date"`
	Status       DonationStatus `db:"status" json:"status"`
	CompletedAt  *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// DonationDetail enriches Donation with donor and center info.
type DonationDetail struct {
	Donation
	DonorName  string     `db:"donor_name" json:"donor_name"`
	BloodGroup BloodGroup `db:"blood_group" json:"blood_group"`
	CenterName string     `db:"center_name" json:"center_name"`
}

// DonationFilter provides filters for listing donations.
type DonationFilter struct {
	Status   DonationStatus
	DonorID  string
	CenterID string
	Date     *time.Time
	Page     int
	PageSize int
}
