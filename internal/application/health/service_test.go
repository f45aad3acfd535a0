package health

import (
	"context"
	"testing"

	"armory-backend/internal/domain"
	"armory-backend/internal/middleware"
	"armory-backend/internal/pkg/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_NoDependencies(t *testing.T) {
	result := (&Service{}).Collect(context.Background())
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, ServiceName, result.Service)
	assert.Equal(t, "disconnected", result.Dependencies["database"].Status)
	assert.Equal(t, "disconnected", result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
}

func TestCollect_TrafficAndPendingIntents(t *testing.T) {
	ctx := context.Background()
	rdb, _ := testutil.Redis(t)
	db := testutil.DB(t)

	require.NoError(t, db.Create(&domain.TransferIntent{
		TransferID: uuid.New(), Kind: domain.IntentKindCreate, Step: domain.IntentStepSourceApplied,
	}).Error)
	require.NoError(t, db.Create(&domain.TransferIntent{
		TransferID: uuid.New(), Kind: domain.IntentKindCreate, Step: domain.IntentStepCompleted,
	}).Error)

	require.NoError(t, rdb.Set(ctx, middleware.KeyReqTotal, "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyReqErrors, "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyResTime, "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyResCount, "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyStartTime, "1000000", 0).Err())

	result := (&Service{DB: db, Rdb: rdb}).Collect(ctx)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 10, result.Traffic.TotalRequests)
	assert.Equal(t, 8, result.Traffic.SuccessCount)
	assert.Equal(t, "80.0", result.Traffic.SuccessRate)
	assert.Equal(t, "15.05", result.Traffic.AvgResponseTime)
	assert.Equal(t, int64(1), result.Ledger.PendingIntents)
}

func TestReset_ClearsCountersAndErrors(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.Redis(t)
	svc := &Service{Rdb: rdb}

	require.NoError(t, rdb.Set(ctx, middleware.KeyReqTotal, "7", 0).Err())
	require.NoError(t, rdb.LPush(ctx, middleware.KeyErrorLog, `{"status":500}`).Err())

	errs, err := svc.RecentErrors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.EqualValues(t, 500, errs[0]["status"])

	require.NoError(t, svc.Reset(ctx))
	assert.False(t, mr.Exists(middleware.KeyReqTotal))
	assert.False(t, mr.Exists(middleware.KeyErrorLog))
	assert.True(t, mr.Exists(middleware.KeyStartTime))
}
