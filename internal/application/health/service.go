package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"hst-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusIssue    = "issue"
)

// DBPinger is optional; nil reports the database as disconnected.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

type Result struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64  `json:"uptimeSeconds"`
	HeapMB        int    `json:"heapMb"`
	Goroutines    int    `json:"goroutines"`
	Platform      string `json:"platform"`
	GoVersion     string `json:"goVersion"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime string      `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// Checker gathers dependency and traffic health. The renderer is probed at
// RendererURL/health when set; an unreachable renderer degrades the service
// without failing it, since only issuance and previews need it.
type Checker struct {
	DB          DBPinger
	Rdb         *redis.Client
	RendererURL string
	HTTPClient  *http.Client
}

func (h *Checker) Collect(ctx context.Context) Result {
	result := Result{Dependencies: make(map[string]DepStatus)}

	dbStatus := "disconnected"
	var dbPing *int64
	if h.DB != nil {
		start := time.Now()
		if err := h.DB.PingContext(ctx); err == nil {
			dbPing = msSince(start)
			dbStatus = "connected"
		} else {
			dbStatus = "error"
		}
	}
	result.Dependencies["database"] = DepStatus{Status: dbStatus, PingMs: dbPing}

	redisStatus := "disconnected"
	var redisPing *int64
	stats := TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	startMs := time.Now().UnixMilli()
	if h.Rdb != nil {
		start := time.Now()
		if err := h.Rdb.Ping(ctx).Err(); err == nil {
			redisPing = msSince(start)
			redisStatus = "connected"
			startMs = h.readTraffic(ctx, &stats, startMs)
		} else {
			redisStatus = "error"
		}
	}
	result.Dependencies["redis"] = DepStatus{Status: redisStatus, PingMs: redisPing}
	result.Traffic = stats

	rendererStatus := "not_configured"
	var rendererPing *int64
	if h.RendererURL != "" {
		rendererStatus = "unreachable"
		if ms := h.probe(ctx, strings.TrimRight(h.RendererURL, "/")+"/health"); ms != nil {
			rendererStatus = "reachable"
			rendererPing = ms
		}
	}
	result.Dependencies["renderer"] = DepStatus{Status: rendererStatus, PingMs: rendererPing}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		HeapMB:        int(m.HeapInuse / 1024 / 1024),
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	switch {
	case dbStatus != "connected" || redisStatus != "connected":
		result.Status = StatusIssue
	case rendererStatus == "unreachable":
		result.Status = StatusDegraded
	default:
		result.Status = StatusOK
	}
	return result
}

func (h *Checker) readTraffic(ctx context.Context, stats *TrafficInfo, startMs int64) int64 {
	vals, err := h.Rdb.MGet(ctx,
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq,
	).Result()
	if err != nil {
		return startMs
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	if t, err := strconv.ParseInt(str(4), 10, 64); err == nil {
		startMs = t
	} else {
		h.Rdb.SetNX(ctx, middleware.KeyStartTime, startMs, 0)
	}
	stats.TotalRequests, _ = strconv.Atoi(str(0))
	stats.FailedCount, _ = strconv.Atoi(str(1))
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	if count, _ := strconv.Atoi(str(3)); count > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if last := str(5); last != "" {
		var m map[string]interface{}
		if json.Unmarshal([]byte(last), &m) == nil {
			stats.LastRequest = m
		}
	}
	return startMs
}

func (h *Checker) probe(ctx context.Context, url string) *int64 {
	client := h.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil
	}
	return msSince(start)
}

func msSince(t time.Time) *int64 {
	ms := time.Since(t).Milliseconds()
	return &ms
}
