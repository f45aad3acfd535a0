package expenditures

import (
	"context"
	"testing"

	"armory-backend/internal/application/policies/access"
	"armory-backend/internal/constants"
	"armory-backend/internal/domain"
	"armory-backend/internal/ledger"
	"armory-backend/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin     = access.Principal{UserID: "admin-1", Role: constants.Admin}
	commander = access.Principal{UserID: "cmdr-a", Role: constants.BaseCommander, AssignedBase: "Alpha"}
)

func setup(t *testing.T, opening int64) (*Service, *domain.Asset) {
	t.Helper()
	db := testutil.DB(t)
	a := &domain.Asset{Name: "9mm Rounds", Type: domain.AssetTypeAmmunition, Base: "Alpha", OpeningBalance: opening}
	ledger.Recalculate(a)
	require.NoError(t, db.Create(a).Error)
	return &Service{DB: db}, a
}

func TestCreate_ConsumesAvailable(t *testing.T) {
	s, a := setup(t, 500)
	res, err := s.Create(context.Background(), commander, CreateInput{
		AssetID: a.AssetID, Base: "Alpha", Quantity: 120, Reason: "Range qualification",
	})
	require.NoError(t, err)
	assert.Equal(t, "cmdr-a", res.Expenditure.ExpendedBy)
	assert.Equal(t, int64(120), res.Asset.Expended)
	assert.Equal(t, int64(380), res.Asset.ClosingBalance)
	assert.Equal(t, int64(380), res.Asset.Available)
}

func TestCreate_Rejections(t *testing.T) {
	s, a := setup(t, 10)
	ctx := context.Background()

	_, err := s.Create(ctx, commander, CreateInput{AssetID: a.AssetID, Base: "Alpha", Quantity: 11, Reason: "Training"})
	assert.ErrorIs(t, err, ledger.ErrInsufficientQuantity)

	_, err = s.Create(ctx, commander, CreateInput{AssetID: a.AssetID, Base: "Alpha", Quantity: 1})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = s.Create(ctx, commander, CreateInput{AssetID: a.AssetID, Base: "Bravo", Quantity: 1, Reason: "Training"})
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	var count int64
	require.NoError(t, s.DB.Model(&domain.Expenditure{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDelete_RestoresQuantityOnce(t *testing.T) {
	s, a := setup(t, 50)
	ctx := context.Background()
	created, err := s.Create(ctx, commander, CreateInput{AssetID: a.AssetID, Base: "Alpha", Quantity: 20, Reason: "Training"})
	require.NoError(t, err)
	id := created.Expenditure.ExpenditureID

	_, err = s.Delete(ctx, commander, id)
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	res, err := s.Delete(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Asset.Expended)
	assert.Equal(t, int64(50), res.Asset.Available)

	_, err = s.Delete(ctx, admin, id)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	got, err := ledger.Get(ctx, s.DB, a.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Available)

	_, total, err := s.List(ctx, admin, ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
