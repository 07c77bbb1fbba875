package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

// ShelfLife maps a component type to the number of days a unit stays issuable.
type ShelfLife map[string]int

// DefaultShelfLife is used when no table is configured.
func DefaultShelfLife() ShelfLife {
	return ShelfLife{
		models.ComponentWholeBlood: 42,
		models.ComponentRedCells:   42,
		models.ComponentPlatelets:  5,
		models.ComponentPlasma:     365,
	}
}

// Components lists the known component types in name order.
func (s ShelfLife) Components() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether component has a usable shelf life configured.
func (s ShelfLife) Supports(component string) bool {
	days, ok := s[component]
	return ok && days > 0
}

// ExpiryDate returns the calendar day on which a unit collected at collectedAt stops being issuable.
func (s ShelfLife) ExpiryDate(component string, collectedAt time.Time) (time.Time, error) {
	days, ok := s[component]
	if !ok || days <= 0 {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown component type %q", component))
	}
	return dateOnly(collectedAt).AddDate(0, 0, days), nil
}
