package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"armory-backend/internal/domain"
	"armory-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const ServiceName = "armory-ledger-api"

// Service reports process, traffic and dependency health. Either client may be nil.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

type CollectResult struct {
	Service      string               `json:"service"`
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Ledger       LedgerInfo           `json:"ledger"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	Alloc    int `json:"alloc"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

// LedgerInfo surfaces transfers whose destination side has not been applied.
type LedgerInfo struct {
	PendingIntents int64 `json:"pendingIntents"`
}

type DepStatus struct {
	Status string      `json:"status"`
	PingMs interface{} `json:"pingMs"`
}

// Collect gathers health data from Redis and the database.
func (s *Service) Collect(ctx context.Context) CollectResult {
	result := CollectResult{
		Service:      ServiceName,
		Dependencies: make(map[string]DepStatus),
	}

	dbStatus := "disconnected"
	var dbPingMs *int64
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			start := time.Now()
			if err := sqlDB.PingContext(ctx); err == nil {
				ms := time.Since(start).Milliseconds()
				dbPingMs = &ms
				dbStatus = "connected"
				s.DB.WithContext(ctx).Model(&domain.TransferIntent{}).
					Where("step <> ?", domain.IntentStepCompleted).
					Count(&result.Ledger.PendingIntents)
			} else {
				dbStatus = "error"
			}
		} else {
			dbStatus = "error"
		}
	}
	result.Dependencies["database"] = DepStatus{Status: dbStatus, PingMs: dbPingMs}

	redisStatus := "disconnected"
	var redisPingMs *int64
	stats := TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	startTimeMs := time.Now().UnixMilli()

	if s.Rdb != nil {
		start := time.Now()
		if err := s.Rdb.Ping(ctx).Err(); err == nil {
			ms := time.Since(start).Milliseconds()
			redisPingMs = &ms
			redisStatus = "connected"

			vals, _ := s.Rdb.MGet(ctx,
				middleware.KeyReqTotal,
				middleware.KeyReqErrors,
				middleware.KeyResTime,
				middleware.KeyResCount,
				middleware.KeyStartTime,
				middleware.KeyLastReq,
			).Result()
			str := func(i int) string {
				if i < len(vals) {
					if v, ok := vals[i].(string); ok {
						return v
					}
				}
				return ""
			}

			if t, err := strconv.ParseInt(str(4), 10, 64); err == nil {
				startTimeMs = t
			} else {
				s.Rdb.Set(ctx, middleware.KeyStartTime, startTimeMs, 0)
			}

			stats.TotalRequests, _ = strconv.Atoi(str(0))
			stats.FailedCount, _ = strconv.Atoi(str(1))
			stats.SuccessCount = stats.TotalRequests - stats.FailedCount
			if stats.TotalRequests > 0 {
				stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
			}
			timeSum, _ := strconv.ParseFloat(str(2), 64)
			countSum, _ := strconv.Atoi(str(3))
			if countSum > 0 {
				stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(countSum), 'f', 2, 64)
			}
			if last := str(5); last != "" {
				var lastReq map[string]interface{}
				_ = json.Unmarshal([]byte(last), &lastReq)
				stats.LastRequest = lastReq
			}
		} else {
			redisStatus = "error"
		}
	}
	result.Dependencies["redis"] = DepStatus{Status: redisStatus, PingMs: redisPingMs}
	result.Traffic = stats

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptimeSec := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptimeSec < 0 {
		uptimeSec = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptimeSec,
		Memory:        MemoryInfo{Alloc: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	if dbStatus == "connected" && redisStatus == "connected" {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

// Reset clears traffic counters and restarts the uptime clock.
func (s *Service) Reset(ctx context.Context) error {
	keys := []string{
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq, middleware.KeyErrorLog,
	}
	if err := s.Rdb.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	return s.Rdb.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err()
}

// RecentErrors returns up to n entries of the 5xx log, newest first.
func (s *Service) RecentErrors(ctx context.Context, n int64) ([]map[string]interface{}, error) {
	if n <= 0 || n > middleware.ErrorLogMax {
		n = 50
	}
	entries, err := s.Rdb.LRange(ctx, middleware.KeyErrorLog, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(e), &m) == nil {
			out = append(out, m)
		}
	}
	return out, nil
}
