package workers

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHealthMonitoringWorker_Collect(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sessions := func() []domain.SessionInfo {
		return []domain.SessionInfo{
			{ID: "1", Identity: "alice", Buffered: 1},
			{ID: "2", Identity: "bob"},
		}
	}
	worker := NewHealthMonitoringWorker(log, sessions, time.Hour)

	health, err := worker.Collect()

	req.NoError(err)
	req.Equal(domain.PID(os.Getpid()), health.Process.PID)
	req.Equal(2, health.ActiveSessions)
	req.Equal(2, health.Identities)
	req.Equal(1, health.Buffered)
	req.Positive(health.Goroutines)
}

func TestHealthMonitoringWorker_RunReportsUntilCancelled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	var ticks atomic.Int32
	sessions := func() []domain.SessionInfo {
		ticks.Add(1)
		return nil
	}
	worker := NewHealthMonitoringWorker(log, sessions, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("health worker did not stop")
	}
}
