package models

import "time"

// BloodGroup is an ABO/Rh group label such as "O+".
type BloodGroup string

// Supported blood groups.
const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

// BloodGroups lists every accepted group.
var BloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg, BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg, BloodGroupOPos, BloodGroupONeg,
}

// Sex drives the re-donation cooldown.
type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

// Donor is a registered individual identified by contact.
type Donor struct {
	ID         string     `db:"id" json:"id"`
	FullName   string     `db:"full_name" json:"full_name"`
	BloodGroup BloodGroup `db:"blood_group" json:"blood_group"`
	Contact    string     `db:"contact" json:"contact"`
	Sex        Sex        `db:"sex" json:"sex"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// DonorFilter provides filters for listing donors.
type DonorFilter struct {
	Search     string
	BloodGroup BloodGroup
	Page       int
	PageSize   int
}

// Eligibility is the outcome of the re-donation gate.
type Eligibility struct {
	DonorID          string     `json:"donor_id,omitempty"`
	Eligible         bool       `json:"eligible"`
	LastDonation     *time.Time `json:"last_donation,omitempty"`
	NextEligibleDate time.Time  `json:"next_eligible_date"`
	CooldownDays     int        `json:"cooldown_days"`
}
