package pipeline

import (
	"context"
	"sync"

	"catalog-workers/internal/common/logger"
)

// Launcher starts a job. Returning nil is the kickoff confirmation; completion is observed by
// polling.
type Launcher interface {
	Launch(ctx context.Context, job Job) error
}

// LocalLauncher runs jobs on goroutines of this process.
type LocalLauncher struct {
	executor *Executor
	logger   logger.Logger
	wg       sync.WaitGroup
}

func NewLocalLauncher(exec *Executor, log logger.Logger) *LocalLauncher {
	return &LocalLauncher{executor: exec, logger: log}
}

func (l *LocalLauncher) Launch(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		// Detached from the submitting request.
		_, _ = l.executor.Run(context.Background(), job)
	}()
	return nil
}

// Wait blocks until every launched job has finished.
func (l *LocalLauncher) Wait() {
	l.wg.Wait()
}

// ProcessStarter creates workflow instances. camunda.Client satisfies it.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// ZeebeLauncher starts one process instance per job; workers pick the units up from there.
type ZeebeLauncher struct {
	starter   ProcessStarter
	processID string
	logger    logger.Logger
}

func NewZeebeLauncher(starter ProcessStarter, processID string, log logger.Logger) *ZeebeLauncher {
	return &ZeebeLauncher{starter: starter, processID: processID, logger: log}
}

func (z *ZeebeLauncher) Launch(ctx context.Context, job Job) error {
	key, err := z.starter.StartProcess(ctx, z.processID, job)
	if err != nil {
		return err
	}
	z.logger.Info("Process instance created", map[string]interface{}{
		"jobId":              job.ID,
		"processId":          z.processID,
		"processInstanceKey": key,
	})
	return nil
}
