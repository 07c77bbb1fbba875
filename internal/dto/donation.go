package dto

import (
	"time"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

// DonorInfo identifies a donor by contact; the remaining fields are used on first registration.
type DonorInfo struct {
	FullName   string            `json:"full_name" validate:"required,max=120"`
	BloodGroup models.BloodGroup `json:"blood_group" validate:"required,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Contact    string            `json:"contact" validate:"required,max=64"`
	Sex        models.Sex        `json:"sex" validate:"required,oneof=Male Female"`
}

// ScheduleDonationRequest registers (or re-uses) a donor and schedules a donation.
type ScheduleDonationRequest struct {
	Donor        DonorInfo `json:"donor"`
	CenterID     string    `json:"center_id" validate:"required"`
	DonationType string    `json:"donation_type" validate:"omitempty,max=32"`
	DonationDate Date      `json:"donation_date"`
}

// ScheduleDonationResponse is returned when a donation was scheduled.
type ScheduleDonationResponse struct {
	DonationID string    `json:"donation_id"`
	DonorID    string    `json:"donor_id"`
	Status     string    `json:"status"`
	Date       time.Time `json:"donation_date"`
}

// CompleteDonationRequest selects the component drawn from the donation.
type CompleteDonationRequest struct {
	ComponentType string `json:"component_type" validate:"omitempty,max=64"`
}

// CompleteDonationResponse is returned once the unit enters inventory.
type CompleteDonationResponse struct {
	DonationID      string    `json:"donation_id"`
	InventoryUnitID string    `json:"inventory_unit_id"`
	ComponentType   string    `json:"component_type"`
	ExpiryDate      time.Time `json:"expiry_date"`
}
