package service

import (
	"time"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

var defaultCooldownDays = map[string]int{
	string(models.SexMale):   90,
	string(models.SexFemale): 120,
}

// EligibilityPolicy decides whether a donor may donate again on a given day.
// A donor is eligible on or after last completed donation date plus the cooldown for their sex.
type EligibilityPolicy struct {
	cooldowns map[string]int
	fallback  int
}

// NewEligibilityPolicy builds the policy from a sex to cooldown-days table.
// Sexes missing from the table use the longest configured cooldown.
func NewEligibilityPolicy(cooldownDays map[string]int) *EligibilityPolicy {
	if len(cooldownDays) == 0 {
		cooldownDays = defaultCooldownDays
	}
	table := make(map[string]int, len(cooldownDays))
	fallback := 0
	for sex, days := range cooldownDays {
		table[sex] = days
		if days > fallback {
			fallback = days
		}
	}
	return &EligibilityPolicy{cooldowns: table, fallback: fallback}
}

// CooldownDays returns the cooldown applied to sex.
func (p *EligibilityPolicy) CooldownDays(sex models.Sex) int {
	if days, ok := p.cooldowns[string(sex)]; ok {
		return days
	}
	return p.fallback
}

// Evaluate applies the gate. last is the date of the most recent completed donation, nil when none exists.
func (p *EligibilityPolicy) Evaluate(sex models.Sex, last *time.Time, asOf time.Time) models.Eligibility {
	cooldown := p.CooldownDays(sex)
	day := dateOnly(asOf)
	if last == nil {
		return models.Eligibility{Eligible: true, NextEligibleDate: day, CooldownDays: cooldown}
	}
	lastDay := dateOnly(*last)
	next := lastDay.AddDate(0, 0, cooldown)
	return models.Eligibility{
		Eligible:         !day.Before(next),
		LastDonation:     &lastDay,
		NextEligibleDate: next,
		CooldownDays:     cooldown,
	}
}
