package workers

import (
	"context"
	"fanous-live/domain"
	"fanous-live/observability"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// StatsWorker samples the server process on each tick and hands the
// snapshot to the monitoring manager.
type StatsWorker struct {
	log         *slog.Logger
	monitoring  *observability.MonitoringManager
	onlineUsers func() int
	interval    time.Duration
}

func NewStatsWorker(
	log *slog.Logger,
	monitoring *observability.MonitoringManager,
	onlineUsers func() int,
	interval time.Duration,
) *StatsWorker {
	return &StatsWorker{
		log:         log,
		monitoring:  monitoring,
		onlineUsers: onlineUsers,
		interval:    interval,
	}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	w.log.Info("Starting stats worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := w.sample(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.monitoring.Update(stats)
		}
	}
}

func (w *StatsWorker) sample(p *process.Process) (domain.ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return domain.ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return domain.ProcessStats{}, err
	}
	status, err := p.Status()
	if err != nil {
		return domain.ProcessStats{}, err
	}
	return domain.ProcessStats{
		PID:         p.Pid,
		Status:      domain.ToStatus(status),
		CPUPercent:  cpuPercent,
		RSS:         memInfo.RSS,
		Goroutines:  goruntime.NumGoroutine(),
		OnlineUsers: w.onlineUsers(),
		At:          time.Now().UTC(),
	}, nil
}
