package models

import "time"

// UnitStatus represents the lifecycle of an inventory unit.
type UnitStatus string

// Unit states. ISSUED and EXPIRED are terminal.
const (
	UnitStatusAvailable UnitStatus = "AVAILABLE"
	UnitStatusIssued    UnitStatus = "ISSUED"
	UnitStatusExpired   UnitStatus = "EXPIRED"
)

// Common component types. The authoritative list is the configured shelf-life table.
const (
	ComponentWholeBlood = "Whole Blood"
	ComponentRedCells   = "Red Blood Cells"
	ComponentPlatelets  = "Platelets"
	ComponentPlasma     = "Plasma"

	DefaultDonationType = "Voluntary"
)

// InventoryUnit is one physical component unit created from a completed donation.
type InventoryUnit struct {
	ID             string     `db:"id" json:"id"`
	DonationID     string     `db:"donation_id" json:"donation_id"`
	ComponentType  string     `db:"component_type" json:"component_type"`
	CollectionDate time.Time  `db:"collection_date" json:"collection_date"`
	ExpiryDate     time.Time  `db:"expiry_date" json:"expiry_date"`
	Status         UnitStatus `db:"status" json:"status"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// InventoryUnitDetail adds the donor blood group resolved through the donation.
type InventoryUnitDetail struct {
	InventoryUnit
	BloodGroup BloodGroup `db:"blood_group" json:"blood_group"`
}

// InventoryFilter narrows the available stock listing.
type InventoryFilter struct {
	BloodGroup    BloodGroup
	ComponentType string
}

// StockLevel is an aggregate of available units.
type StockLevel struct {
	BloodGroup    BloodGroup `db:"blood_group" json:"blood_group"`
	ComponentType string     `db:"component_type" json:"component_type"`
	Units         int        `db:"units" json:"units"`
}
