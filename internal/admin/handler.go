// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
	"github.com/carterperez-dev/templates/roomcraft/internal/redesign"
	"github.com/carterperez-dev/templates/roomcraft/internal/user"
)

type UserDirectory interface {
	ListUsers(ctx context.Context, params user.ListUsersParams) ([]user.AdminUserResponse, int, error)
	Count(ctx context.Context) (int, error)
}

type RedesignDirectory interface {
	List(ctx context.Context, params redesign.ListParams) ([]redesign.AdminResponse, int, error)
	CountByStatus(ctx context.Context) (map[redesign.Status]int, error)
}

type SubscriptionCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type Handler struct {
	guard         *middleware.Guard
	dbStats       func() sql.DBStats
	redisStats    func() *redis.PoolStats
	redisPing     func(ctx context.Context) error
	dbPing        func(ctx context.Context) error
	users         UserDirectory
	redesigns     RedesignDirectory
	subscriptions SubscriptionCounter
	logger        *slog.Logger
}

type HandlerConfig struct {
	Guard         *middleware.Guard
	DBStats       func() sql.DBStats
	RedisStats    func() *redis.PoolStats
	RedisPing     func(ctx context.Context) error
	DBPing        func(ctx context.Context) error
	Users         UserDirectory
	Redesigns     RedesignDirectory
	Subscriptions SubscriptionCounter
	Logger        *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		guard:         cfg.Guard,
		dbStats:       cfg.DBStats,
		redisStats:    cfg.RedisStats,
		redisPing:     cfg.RedisPing,
		dbPing:        cfg.DBPing,
		users:         cfg.Users,
		redesigns:     cfg.Redesigns,
		subscriptions: cfg.Subscriptions,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
		r.Get("/users", h.ListUsers)
		r.Get("/redesigns", h.ListRedesigns)
	})
}

// requireStaff runs the capability check and writes the failure itself.
func (h *Handler) requireStaff(w http.ResponseWriter, r *http.Request) bool {
	if _, err := h.guard.RequireStaff(r); err != nil {
		middleware.WriteAuthError(w, err)
		return false
	}
	return true
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	ctx := r.Context()

	dbHealthy := true
	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			dbHealthy = false
		}
	}

	redisHealthy := true
	if h.redisPing != nil {
		if err := h.redisPing(ctx); err != nil {
			redisHealthy = false
		}
	}

	response := SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: dbHealthy,
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: redisHealthy,
			Stats:   h.getRedisStats(),
		},
		Runtime: runtimeStats(),
		Counts:  h.getCounts(ctx),
	}

	core.OK(w, response)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}
	core.OK(w, runtimeStats())
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	params := user.ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
	}
	params.Normalize()

	users, total, err := h.users.ListUsers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, users, params.Page, params.PageSize, total)
}

func (h *Handler) ListRedesigns(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	q := r.URL.Query()
	params := redesign.ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
	}

	fields := make(map[string]string)
	if raw := q.Get("status"); raw != "" {
		status := redesign.Status(raw)
		switch status {
		case redesign.StatusPending, redesign.StatusProcessing,
			redesign.StatusCompleted, redesign.StatusFailed:
			params.Status = status
		default:
			fields["status"] = "unknown status"
		}
	}
	if raw := q.Get("style"); raw != "" {
		style, ok := redesign.ParseStyle(raw)
		if !ok {
			fields["style"] = "unknown style"
		}
		params.Style = style
	}
	if len(fields) > 0 {
		core.JSONError(w, core.ValidationError(fields))
		return
	}
	params.Normalize()

	items, total, err := h.redesigns.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, items, params.Page, params.PageSize, total)
}

// getCounts degrades to partial data: a failing counter is logged and
// left zero.
func (h *Handler) getCounts(ctx context.Context) CountStats {
	var counts CountStats

	if h.users != nil {
		n, err := h.users.Count(ctx)
		if err != nil {
			h.logger.Warn("count users failed", "error", err)
		}
		counts.Users = n
	}

	if h.subscriptions != nil {
		n, err := h.subscriptions.CountActive(ctx)
		if err != nil {
			h.logger.Warn("count subscriptions failed", "error", err)
		}
		counts.ActiveSubscriptions = n
	}

	if h.redesigns != nil {
		byStatus, err := h.redesigns.CountByStatus(ctx)
		if err != nil {
			h.logger.Warn("count redesigns failed", "error", err)
		}
		counts.Redesigns = byStatus
	}

	return counts
}

func runtimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

type SystemStatsResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
	Counts   CountStats     `json:"counts"`
}

type CountStats struct {
	Users               int                     `json:"users"`
	ActiveSubscriptions int                     `json:"active_subscriptions"`
	Redesigns           map[redesign.Status]int `json:"redesigns"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxIdleTimeClosed  int64  `json:"max_idle_time_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
