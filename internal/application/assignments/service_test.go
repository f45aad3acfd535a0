package assignments

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
	officer   = access.Principal{UserID: "officer-a", Role: constants.LogisticsOfficer, AssignedBase: "Alpha"}
	commander = access.Principal{UserID: "cmdr-a", Role: constants.BaseCommander, AssignedBase: "Alpha"}
)

func setup(t *testing.T, opening int64) (*Service, *domain.Asset) {
	t.Helper()
	db := testutil.DB(t)
	a := &domain.Asset{Name: "Night Vision Goggles", Type: domain.AssetTypeEquipment, Base: "Alpha", OpeningBalance: opening}
	ledger.Recalculate(a)
	require.NoError(t, db.Create(a).Error)
	return &Service{DB: db}, a
}

func assign(t *testing.T, s *Service, a *domain.Asset, qty int64) *Result {
	t.Helper()
	res, err := s.Create(context.Background(), officer, CreateInput{
		AssetID:    a.AssetID,
		Base:       "Alpha",
		Quantity:   qty,
		AssignedTo: domain.Assignee{Name: " Sgt. Ortiz ", Rank: "Sergeant", ServiceID: "S-1042"},
		Purpose:    "Night patrol",
	})
	require.NoError(t, err)
	return res
}

func TestCreate_ReservesAvailable(t *testing.T) {
	s, a := setup(t, 10)
	res := assign(t, s, a, 5)

	assert.Equal(t, domain.AssignmentActive, res.Assignment.Status)
	assert.Equal(t, "Sgt. Ortiz", res.Assignment.AssignedTo.Name)
	assert.Equal(t, int64(5), res.Asset.Assigned)
	assert.Equal(t, int64(10), res.Asset.ClosingBalance)
	assert.Equal(t, int64(5), res.Asset.Available)
}

func TestCreate_Rejections(t *testing.T) {
	s, a := setup(t, 3)
	ctx := context.Background()
	in := CreateInput{AssetID: a.AssetID, Base: "Alpha", Quantity: 4, AssignedTo: domain.Assignee{Name: "Cpl. Vance"}}

	_, err := s.Create(ctx, officer, in)
	assert.ErrorIs(t, err, ledger.ErrInsufficientQuantity)

	in.Quantity = -1
	_, err = s.Create(ctx, officer, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

	in.Quantity, in.Base = 1, "Bravo"
	_, err = s.Create(ctx, officer, in)
	assert.ErrorIs(t, err, ledger.ErrForbidden)
	_, err = s.Create(ctx, admin, in)
	assert.ErrorIs(t, err, ledger.ErrBaseMismatch)

	in.Base, in.AssignedTo.Name = "Alpha", " "
	_, err = s.Create(ctx, officer, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestReturn_PartialThenFull(t *testing.T) {
	s, a := setup(t, 10)
	ctx := context.Background()
	created := assign(t, s, a, 5)
	id := created.Assignment.AssignmentID

	res, err := s.Return(ctx, officer, id, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentActive, res.Assignment.Status)
	assert.Equal(t, int64(3), res.Assignment.ReturnedQuantity)
	assert.Equal(t, int64(2), res.Asset.Assigned)
	assert.Equal(t, int64(8), res.Asset.Available)

	_, err = s.Return(ctx, officer, id, 3)
	assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

	res, err = s.Return(ctx, officer, id, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentReturned, res.Assignment.Status)
	assert.NotNil(t, res.Assignment.EndDate)
	assert.Equal(t, int64(0), res.Asset.Assigned)
	assert.Equal(t, int64(10), res.Asset.Available)

	_, err = s.Return(ctx, officer, id, 1)
	assert.ErrorIs(t, err, ledger.ErrNotActive)
	_, err = s.Return(ctx, officer, id, 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)
}

func TestSetStatus_LostWritesOffOutstanding(t *testing.T) {
	s, a := setup(t, 10)
	ctx := context.Background()
	created := assign(t, s, a, 4)
	id := created.Assignment.AssignmentID
	_, err := s.Return(ctx, officer, id, 1)
	require.NoError(t, err)

	_, err = s.SetStatus(ctx, officer, id, domain.AssignmentLost)
	assert.ErrorIs(t, err, ledger.ErrForbidden)
	_, err = s.SetStatus(ctx, commander, id, domain.AssignmentReturned)
	assert.ErrorIs(t, err, ledger.ErrInvalidStatus)

	res, err := s.SetStatus(ctx, commander, id, domain.AssignmentLost)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentLost, res.Assignment.Status)
	assert.Equal(t, int64(0), res.Asset.Assigned)
	assert.Equal(t, int64(3), res.Asset.Expended)
	assert.Equal(t, int64(7), res.Asset.ClosingBalance)
	assert.Equal(t, int64(7), res.Asset.Available)

	_, err = s.SetStatus(ctx, commander, id, domain.AssignmentDamaged)
	assert.ErrorIs(t, err, ledger.ErrNotActive)
	_, err = s.Return(ctx, officer, id, 1)
	assert.ErrorIs(t, err, ledger.ErrNotActive)
}

func TestList_FiltersByStatus(t *testing.T) {
	s, a := setup(t, 10)
	ctx := context.Background()
	first := assign(t, s, a, 1)
	assign(t, s, a, 2)
	_, err := s.Return(ctx, officer, first.Assignment.AssignmentID, 1)
	require.NoError(t, err)

	items, total, err := s.List(ctx, officer, ListFilter{Status: domain.AssignmentActive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(2), items[0].Quantity)

	bravo := access.Principal{UserID: "b", Role: constants.LogisticsOfficer, AssignedBase: "Bravo"}
	_, err = s.Get(ctx, bravo, first.Assignment.AssignmentID)
	assert.ErrorIs(t, err, ledger.ErrForbidden)
}
