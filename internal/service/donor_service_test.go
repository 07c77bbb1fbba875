package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

func TestDonorEligibilityReport(t *testing.T) {
	e := newEngine(day0)
	ctx := context.Background()

	scheduled, err := e.donations.Schedule(ctx, scheduleReq(e, "0901", models.SexFemale, models.BloodGroupANeg))
	require.NoError(t, err)

	fresh, err := e.donors.Eligibility(ctx, scheduled.DonorID, day0)
	require.NoError(t, err)
	assert.True(t, fresh.Eligible, "scheduled donations do not start a cooldown")

	_, err = e.donations.Complete(ctx, scheduled.DonationID, dto.CompleteDonationRequest{})
	require.NoError(t, err)

	report, err := e.donors.Eligibility(ctx, scheduled.DonorID, day0.AddDate(0, 0, 119))
	require.NoError(t, err)
	assert.False(t, report.Eligible)
	assert.Equal(t, 120, report.CooldownDays)
	assert.Equal(t, dateOnly(day0).AddDate(0, 0, 120), report.NextEligibleDate)
	assert.Equal(t, scheduled.DonorID, report.DonorID)

	_, err = e.donors.Eligibility(ctx, "missing", day0)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestDonorDeleteRules(t *testing.T) {
	e := newEngine(day0)
	ctx := context.Background()

	issued, err := e.donations.Schedule(ctx, scheduleReq(e, "0902", models.SexMale, models.BloodGroupOPos))
	require.NoError(t, err)
	_, err = e.donations.Complete(ctx, issued.DonationID, dto.CompleteDonationRequest{})
	require.NoError(t, err)
	_, err = e.allocations.Fulfill(ctx, submit(t, e, models.BloodGroupOPos, models.ComponentWholeBlood, 1).ID)
	require.NoError(t, err)

	err = e.donors.Delete(ctx, issued.DonorID)
	assert.True(t, appErrors.Is(err, appErrors.ErrHasIssuedDependents))
	_, err = e.donors.Get(ctx, issued.DonorID)
	require.NoError(t, err)

	clean, err := e.donations.Schedule(ctx, scheduleReq(e, "0903", models.SexMale, models.BloodGroupBPos))
	require.NoError(t, err)
	completed, err := e.donations.Complete(ctx, clean.DonationID, dto.CompleteDonationRequest{})
	require.NoError(t, err)

	require.NoError(t, e.donors.Delete(ctx, clean.DonorID))
	_, err = e.donors.Get(ctx, clean.DonorID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, e.store.unitsForDonation(clean.DonationID))
	assert.Empty(t, e.store.unit(completed.InventoryUnitID).ID)
	assert.Len(t, e.store.auditActions(models.AuditActionDonorDeleted), 1)

	assert.True(t, appErrors.Is(e.donors.Delete(ctx, "missing"), appErrors.ErrNotFound))
}

func TestDonorList(t *testing.T) {
	e := newEngine(day0)
	ctx := context.Background()
	for _, contact := range []string{"a1", "a2", "a3"} {
		_, err := e.donations.Schedule(ctx, scheduleReq(e, contact, models.SexMale, models.BloodGroupOPos))
		require.NoError(t, err)
	}

	donors, page, err := e.donors.List(ctx, models.DonorFilter{BloodGroup: models.BloodGroupOPos})
	require.NoError(t, err)
	assert.Len(t, donors, 3)
	assert.Equal(t, 3, page.TotalCount)

	none, _, err := e.donors.List(ctx, models.DonorFilter{BloodGroup: models.BloodGroupABNeg})
	require.NoError(t, err)
	assert.Empty(t, none)
}
