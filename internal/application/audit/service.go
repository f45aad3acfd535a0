package audit

import (
	"context"
	"encoding/json"
	"time"

	"armory-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Resource types carried by each movement service.
const (
	ResourceAsset       = "asset"
	ResourcePurchase    = "purchase"
	ResourceTransfer    = "transfer"
	ResourceAssignment  = "assignment"
	ResourceExpenditure = "expenditure"
	ResourceUser        = "user"
)

const (
	ActionCreate       = "CREATE"
	ActionUpdate       = "UPDATE"
	ActionDelete       = "DELETE"
	ActionDeliver      = "DELIVER"
	ActionCancel       = "CANCEL"
	ActionApprove      = "APPROVE"
	ActionReturn       = "RETURN"
	ActionStatusChange = "STATUS_CHANGE"
	ActionRecover      = "RECOVER"
	ActionLogin        = "LOGIN"
)

// KeyRecent is the capped Redis list of recent entries (newest first).
const (
	KeyRecent    = "audit:recent"
	recentLength = 200
)

type Entry struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]interface{}
}

// Recorder is the audit side channel. Record never reports failure to the caller.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

// Service stores entries in ActivityLogs and mirrors them to Redis when Rdb is set.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

func (s *Service) Record(ctx context.Context, e Entry) {
	details := e.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	b, err := json.Marshal(details)
	if err != nil {
		log.Warn().Err(err).Str("action", e.Action).Str("resource_type", e.ResourceType).Msg("audit: details not serializable")
		b = []byte("{}")
	}
	row := domain.ActivityLog{
		UserID:       e.UserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      datatypes.JSON(b),
	}
	if s.DB != nil {
		if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
			log.Error().Err(err).Str("action", e.Action).Str("resource_type", e.ResourceType).
				Str("resource_id", e.ResourceID).Msg("audit: failed to write activity log")
		}
	}
	if s.Rdb != nil {
		line, _ := json.Marshal(map[string]interface{}{
			"time":          time.Now().UTC(),
			"user_id":       e.UserID,
			"action":        e.Action,
			"resource_type": e.ResourceType,
			"resource_id":   e.ResourceID,
		})
		pipe := s.Rdb.TxPipeline()
		pipe.LPush(ctx, KeyRecent, line)
		pipe.LTrim(ctx, KeyRecent, 0, recentLength-1)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Warn().Err(err).Str("action", e.Action).Msg("audit: failed to push recent entry")
		}
	}
}

// ListFilter narrows ActivityLogs queries.
type ListFilter struct {
	UserID       string
	ResourceType string
	ResourceID   string
	Limit        int
	Offset       int
}

// List returns activity logs newest first and the total matching count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.ActivityLog, int64, error) {
	q := s.DB.WithContext(ctx).Model(&domain.ActivityLog{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ResourceType != "" {
		q = q.Where("resource_type = ?", f.ResourceType)
	}
	if f.ResourceID != "" {
		q = q.Where("resource_id = ?", f.ResourceID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []domain.ActivityLog
	if err := q.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Recent returns up to n entries from the Redis list.
func (s *Service) Recent(ctx context.Context, n int) ([]map[string]interface{}, error) {
	out := []map[string]interface{}{}
	if s.Rdb == nil {
		return out, nil
	}
	if n <= 0 || n > recentLength {
		n = 50
	}
	entries, err := s.Rdb.LRange(ctx, KeyRecent, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	for _, raw := range entries {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			out = append(out, m)
		}
	}
	return out, nil
}
