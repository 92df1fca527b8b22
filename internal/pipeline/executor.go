package pipeline

import (
	"context"

	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/jobs"
)

// Executor runs one submitted job to a terminal state and removes its template artifact.
type Executor struct {
	generator *Generator
	tracker   *jobs.Tracker
	artifacts jobs.ArtifactStore
	logger    logger.Logger
}

func NewExecutor(gen *Generator, tracker *jobs.Tracker, artifacts jobs.ArtifactStore, log logger.Logger) *Executor {
	return &Executor{generator: gen, tracker: tracker, artifacts: artifacts, logger: log}
}

func (e *Executor) Run(ctx context.Context, job Job) (*jobs.Status, error) {
	log := e.logger.WithFields(map[string]interface{}{"jobId": job.ID})
	defer e.cleanup(job.ID, log)

	tpl, err := e.artifacts.Get(ctx, job.ID)
	if err != nil {
		return e.fail(ctx, job.ID, err, log)
	}

	req := &Request{Products: job.Products, Images: job.Images, Template: tpl, ForceUpdate: job.ForceUpdate}
	out, err := e.generator.Generate(ctx, req, func(step string, units int) {
		if err := e.tracker.Progress(ctx, job.ID, step, units); err != nil {
			log.Warn("Failed to record progress", map[string]interface{}{"step": step, "error": err.Error()})
		}
	})
	if err != nil {
		return e.fail(ctx, job.ID, err, log)
	}
	return e.Complete(ctx, job.ID, out)
}

// Complete marks a job successful with its workbook.
func (e *Executor) Complete(ctx context.Context, jobID string, out *Output) (*jobs.Status, error) {
	return e.tracker.Succeed(ctx, jobID, out.Filename, out.Workbook)
}

// Fail marks a job failed with the cause's error type.
func (e *Executor) Fail(ctx context.Context, jobID string, cause error) (*jobs.Status, error) {
	defer e.cleanup(jobID, e.logger)
	return e.fail(ctx, jobID, cause, e.logger)
}

func (e *Executor) fail(ctx context.Context, jobID string, cause error, log logger.Logger) (*jobs.Status, error) {
	log.Error("Job failed", map[string]interface{}{"error": cause.Error()})
	if _, err := e.tracker.Fail(ctx, jobID, cause); err != nil {
		log.Error("Failed to record job failure", map[string]interface{}{"error": err.Error()})
	}
	return nil, cause
}

func (e *Executor) cleanup(jobID string, log logger.Logger) {
	if err := e.artifacts.Delete(context.Background(), jobID); err != nil {
		log.Warn("Failed to delete template artifact", map[string]interface{}{"jobId": jobID, "error": err.Error()})
	}
}

// Generator exposes the pipeline steps to distributed workers.
func (e *Executor) Generator() *Generator { return e.generator }

// Artifacts exposes the template store to distributed workers.
func (e *Executor) Artifacts() jobs.ArtifactStore { return e.artifacts }

// Progress records a step reached by a distributed worker.
func (e *Executor) Progress(ctx context.Context, jobID, step string, units int) error {
	return e.tracker.Progress(ctx, jobID, step, units)
}

// Finish completes a job assembled by distributed workers and drops its template.
func (e *Executor) Finish(ctx context.Context, jobID string, out *Output) (*jobs.Status, error) {
	defer e.cleanup(jobID, e.logger)
	return e.Complete(ctx, jobID, out)
}
