package workers

import (
	"chat-relay/domain"
	"context"
	"fmt"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

type SessionSnapshot func() []domain.SessionInfo

// HealthMonitoringWorker periodically logs the relay load and the process resources.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	sessions       SessionSnapshot
	metricInterval time.Duration
	pid            domain.PID
}

func NewHealthMonitoringWorker(log *slog.Logger, sessions SessionSnapshot, metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		sessions:       sessions,
		metricInterval: metricInterval,
		pid:            domain.PID(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			health, err := w.Collect()
			if err != nil {
				return err
			}
			w.log.Info("Relay health",
				"active_sessions", health.ActiveSessions,
				"identities", health.Identities,
				"buffered", health.Buffered,
				"goroutines", health.Goroutines,
				"pid", health.Process.PID,
				"status", health.Process.Status,
				"cpu", health.Process.CPU,
				"ram", health.Process.RAM)
		}
	}
}

// Collect samples the process and the active sessions once.
func (w *HealthMonitoringWorker) Collect() (domain.RelayHealth, error) {
	p, err := process.NewProcess(int32(w.pid))
	if err != nil {
		return domain.RelayHealth{}, fmt.Errorf("error while retrieving process %d: %w", w.pid, err)
	}
	sample := domain.ProcessHealth{PID: w.pid, Status: domain.UNKNOWN}
	if status, err := p.Status(); err == nil {
		sample.Status = domain.ToStatus(status)
	} else {
		w.log.Debug("Error while finding process status", "err", err)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		sample.CPU = cpu
	} else {
		w.log.Debug("Error while finding process cpu usage", "err", err)
	}
	if ram, err := p.MemoryPercent(); err == nil {
		sample.RAM = ram
	} else {
		w.log.Debug("Error while finding process ram usage", "err", err)
	}
	return domain.NewRelayHealth(sample, goruntime.NumGoroutine(), w.sessions()), nil
}
