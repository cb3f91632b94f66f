package workers

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RelayGroup runs the relays of one session.
// Unlike the Supervisor it never restarts anything: the first worker to stop,
// whatever the reason, cancels the others.
type RelayGroup struct {
	log     *slog.Logger
	workers []contract.Worker
}

func NewRelayGroup(log *slog.Logger) *RelayGroup {
	return &RelayGroup{log: log}
}

func (g *RelayGroup) Add(worker ...contract.Worker) *RelayGroup {
	g.workers = append(g.workers, worker...)
	return g
}

// Run blocks until every worker has returned and reports why the first one stopped.
func (g *RelayGroup) Run(ctx context.Context) error {
	groupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		eg    errgroup.Group
		once  sync.Once
		cause error
	)
	for _, worker := range g.workers {
		eg.Go(func() error {
			err := g.guard(groupCtx, worker)
			once.Do(func() {
				cause = err
				g.log.Debug("Relay stopped first", "name", contract.GetWorkerName(worker), "error", err)
				cancel()
			})
			return err
		})
	}
	_ = eg.Wait()
	return cause
}

// guard turns a panic into ErrWorkerPanic so it ends the session, not the process.
func (g *RelayGroup) guard(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("Relay panicked", "name", contract.GetWorkerName(worker), "panic", r)
			err = fmt.Errorf("%w: %s: %v", errors.ErrWorkerPanic, contract.GetWorkerName(worker), r)
		}
	}()
	return worker.Run(ctx)
}
