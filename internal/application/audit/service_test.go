package audit

import (
	"context"
	"testing"

	"armory-backend/internal/domain"
	"armory-backend/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_WritesRowAndRecentList(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	rdb, _ := testutil.Redis(t)
	s := &Service{DB: db, Rdb: rdb}

	s.Record(ctx, Entry{UserID: "u1", Action: ActionCreate, ResourceType: ResourceTransfer, ResourceID: "t1",
		Details: map[string]interface{}{"quantity": 5}})
	s.Record(ctx, Entry{UserID: "u2", Action: ActionApprove, ResourceType: ResourceTransfer, ResourceID: "t1"})

	logs, total, err := s.List(ctx, ListFilter{ResourceID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 2)

	var row domain.ActivityLog
	require.NoError(t, db.Where("action = ?", ActionCreate).First(&row).Error)
	assert.JSONEq(t, `{"quantity":5}`, string(row.Details))

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ActionApprove, recent[0]["action"])
	assert.Equal(t, "u1", recent[1]["user_id"])
}

func TestRecord_FailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.Redis(t)
	mr.Close()
	s := &Service{Rdb: rdb}

	assert.NotPanics(t, func() {
		s.Record(ctx, Entry{Action: ActionDelete, Details: map[string]interface{}{"bad": make(chan int)}})
	})
	Nop{}.Record(ctx, Entry{Action: ActionCreate})
}

func TestRecent_WithoutRedis(t *testing.T) {
	out, err := (&Service{}).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}
