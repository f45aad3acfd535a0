package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"armory-backend/internal/domain"
	"armory-backend/internal/ledger"
	"armory-backend/internal/pkg/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAsset(t *testing.T, db *gorm.DB, opening int64) *domain.Asset {
	t.Helper()
	a := &domain.Asset{Name: "M4 Carbine", Type: domain.AssetTypeWeapon, Base: "Alpha", OpeningBalance: opening}
	ledger.Recalculate(a)
	require.NoError(t, db.Create(a).Error)
	return a
}

func TestRecalculate(t *testing.T) {
	a := &domain.Asset{OpeningBalance: 100, Purchases: 50, TransferIn: 10, TransferOut: 30, Assigned: 20, Expended: 5}
	ledger.Recalculate(a)
	assert.Equal(t, int64(125), a.ClosingBalance)
	assert.Equal(t, int64(105), a.Available)
}

func TestRecalculate_DoesNotClamp(t *testing.T) {
	a := &domain.Asset{OpeningBalance: 1, Assigned: 4}
	ledger.Recalculate(a)
	assert.Equal(t, int64(1), a.ClosingBalance)
	assert.Equal(t, int64(-3), a.Available)
}

func TestDelta_ApplyTo(t *testing.T) {
	a := &domain.Asset{OpeningBalance: 10}
	ledger.Delta{Purchases: 5, Assigned: 3}.ApplyTo(a)
	assert.Equal(t, int64(15), a.ClosingBalance)
	assert.Equal(t, int64(12), a.Available)
	assert.True(t, ledger.Delta{}.IsZero())
	assert.False(t, ledger.Delta{Expended: 1}.IsZero())
}

func TestApply_UpdatesCountersAndDerivedFields(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := seedAsset(t, db, 100)

	got, err := ledger.Apply(ctx, db, a.AssetID, ledger.Delta{Purchases: 20, TransferOut: 5, Assigned: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.Purchases)
	assert.Equal(t, int64(115), got.ClosingBalance)
	assert.Equal(t, int64(105), got.Available)

	got, err = ledger.Apply(ctx, db, a.AssetID, ledger.Delta{Assigned: -10, Expended: 15})
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.ClosingBalance)
	assert.Equal(t, int64(100), got.Available)
}

func TestApply_UnknownAsset(t *testing.T) {
	db := testutil.DB(t)
	_, err := ledger.Apply(context.Background(), db, uuid.New(), ledger.Delta{Purchases: 1})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestReserve_RejectsOverdraw(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := seedAsset(t, db, 10)

	_, err := ledger.Reserve(ctx, db, a.AssetID, ledger.Delta{Expended: 11}, 11)
	require.ErrorIs(t, err, ledger.ErrInsufficientQuantity)
	var insufficient *ledger.InsufficientQuantityError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(10), insufficient.Available)
	assert.Equal(t, int64(11), insufficient.Requested)

	got, err := ledger.Reserve(ctx, db, a.AssetID, ledger.Delta{Expended: 10}, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Available)
}

func TestReserve_ConcurrentCallersNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := seedAsset(t, db, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Reserve(ctx, db, a.AssetID, ledger.Delta{Assigned: 3}, 3); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	got, err := ledger.Get(ctx, db, a.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Assigned)
	assert.Equal(t, int64(1), got.Available)
}

func TestFindOrCreate(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)

	a, created, err := ledger.FindOrCreate(ctx, db, "Humvee", domain.AssetTypeVehicle, "Bravo")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), a.ClosingBalance)

	again, created, err := ledger.FindOrCreate(ctx, db, " Humvee ", domain.AssetTypeVehicle, "Bravo")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.AssetID, again.AssetID)

	_, _, err = ledger.FindOrCreate(ctx, db, "", domain.AssetTypeVehicle, "Bravo")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestSetOpening(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := seedAsset(t, db, 10)
	_, err := ledger.Apply(ctx, db, a.AssetID, ledger.Delta{Purchases: 5, Assigned: 2})
	require.NoError(t, err)

	got, err := ledger.SetOpening(ctx, db, a.AssetID, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(45), got.ClosingBalance)
	assert.Equal(t, int64(43), got.Available)

	_, err = ledger.SetOpening(ctx, db, a.AssetID, -1)
	assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)
	_, err = ledger.SetOpening(ctx, db, uuid.New(), 1)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
