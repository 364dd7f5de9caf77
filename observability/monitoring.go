package observability

import (
	"fanous-live/domain"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// HealthReport is what /health exposes.
type HealthReport struct {
	Status        string              `json:"status"`
	StartedAt     time.Time           `json:"startedAt"`
	Uptime        string              `json:"uptime"`
	OnlineUsers   int                 `json:"onlineUsers"`
	MessagesSent  uint64              `json:"messagesSent"`
	Notifications uint64              `json:"notifications"`
	Process       domain.ProcessStats `json:"process"`
}

// MonitoringManager keeps the in-process counters and the latest process sample.
// Prometheus gets the same events through the Record* helpers.
type MonitoringManager struct {
	log       *slog.Logger
	mu        sync.RWMutex
	latest    domain.ProcessStats
	startedAt time.Time

	MessagesSent  uint64
	Notifications uint64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{
		log:       log,
		startedAt: time.Now().UTC(),
	}
}

func (mm *MonitoringManager) IncrMessagesSent() {
	atomic.AddUint64(&mm.MessagesSent, 1)
	RecordMessage()
}

func (mm *MonitoringManager) IncrNotifications() {
	atomic.AddUint64(&mm.Notifications, 1)
	RecordNotification()
}

// Update stores a fresh process sample.
func (mm *MonitoringManager) Update(stats domain.ProcessStats) {
	mm.mu.Lock()
	mm.latest = stats
	mm.mu.Unlock()

	SetProcessCPU(stats.CPUPercent)
	mm.log.Debug("Process stats updated",
		"pid", stats.PID,
		"status", stats.Status,
		"cpu", stats.CPUPercent,
		"rss", stats.RSS,
		"goroutines", stats.Goroutines,
		"online_users", stats.OnlineUsers,
	)
}

func (mm *MonitoringManager) GetLatest() domain.ProcessStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latest
}

func (mm *MonitoringManager) Report(onlineUsers int) HealthReport {
	return HealthReport{
		Status:        "ok",
		StartedAt:     mm.startedAt,
		Uptime:        time.Since(mm.startedAt).Round(time.Second).String(),
		OnlineUsers:   onlineUsers,
		MessagesSent:  atomic.LoadUint64(&mm.MessagesSent),
		Notifications: atomic.LoadUint64(&mm.Notifications),
		Process:       mm.GetLatest(),
	}
}
