package upsells

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func TestCreateListOrdered(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	second, err := svc.Create(ctx, Input{Title: "Mentoria", Price: "R$ 97,00", Order: intPtr(2)})
	require.NoError(t, err)
	first, err := svc.Create(ctx, Input{Title: " Bônus ", Price: "19,90", Order: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Bônus", first.Title)
	assert.True(t, first.Active)

	rows, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)
}

func TestCreateRejectsBadPrice(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Create(context.Background(), Input{Title: "X", Price: "grátis"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(context.Background(), Input{Title: " ", Price: "10,00"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSelectedSkipsInactiveAndUnknown(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	active, err := svc.Create(ctx, Input{Title: "Bônus", Price: "19,90"})
	require.NoError(t, err)
	off := false
	inactive, err := svc.Create(ctx, Input{Title: "Antigo", Price: "5,00", Active: &off})
	require.NoError(t, err)
	assert.False(t, inactive.Active)

	picked, err := svc.Selected(ctx, []uuid.UUID{active.ID, inactive.ID, uuid.New(), active.ID})
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.True(t, picked[0].Price.Equal(decimal.RequireFromString("19.90")))

	none, err := svc.Selected(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	offer, err := svc.Create(ctx, Input{Title: "Bônus", Price: "19,90"})
	require.NoError(t, err)

	off := false
	updated, err := svc.Update(ctx, offer.ID, Input{Title: "Bônus VIP", Price: "29,90", Active: &off})
	require.NoError(t, err)
	assert.Equal(t, "29,90", updated.Price)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, svc.Delete(ctx, offer.ID))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, offer.ID), pkgerrors.CodeNotFound))

	_, err = svc.Update(ctx, offer.ID, Input{Title: "x", Price: "1,00"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateAppliesExplicitZeroOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	offer, err := svc.Create(ctx, Input{Title: "Bônus", Price: "19,90"})
	require.NoError(t, err)
	assert.Equal(t, 1, offer.Order)

	updated, err := svc.Update(ctx, offer.ID, Input{Title: "Bônus", Price: "19,90", Order: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Order)

	kept, err := svc.Update(ctx, offer.ID, Input{Title: "Bônus extra", Price: "19,90"})
	require.NoError(t, err)
	assert.Equal(t, 0, kept.Order)

	rows, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].Order)
	assert.Equal(t, "Bônus extra", rows[0].Title)
}

func intPtr(v int) *int { return &v }
