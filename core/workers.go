package orchestration

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type namedWorker struct {
	name string
	run  func(context.Context) error
}

// runWorkers runs every worker until all of them return. The first failure
// cancels the context of the others and is returned.
func runWorkers(ctx context.Context, workers ...namedWorker) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, worker := range workers {
		group.Go(func() error { return worker.safeRun(groupCtx) })
	}
	return group.Wait()
}

func (w namedWorker) safeRun(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("worker panicked", "worker", w.name, "panic", recovered)
			err = fmt.Errorf("%s worker panicked: %v", w.name, recovered)
		}
	}()

	logger.Debug("worker started", "worker", w.name)
	if err = w.run(ctx); err != nil {
		return fmt.Errorf("%s worker failed: %w", w.name, err)
	}
	logger.Debug("worker stopped", "worker", w.name)

	return nil
}
