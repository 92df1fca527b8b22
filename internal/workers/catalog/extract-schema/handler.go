// internal/workers/catalog/extract-schema/handler.go
package extractschema

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/metrics"
	"catalog-workers/internal/pipeline"
)

const TaskType = "catalog-extract-schema"

type Handler struct {
	config   *Config
	executor *pipeline.Executor
	logger   logger.Logger
}

func NewHandler(config *Config, executor *pipeline.Executor, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		executor: executor,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, errors.NewInvalidSubmissionError("parse input: "+err.Error()))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute opens the job's template, classifies its columns and prepares every product.
// A template problem is fatal for the whole job, so the job is marked failed here.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.JobID == "" {
		return nil, errors.NewInvalidSubmissionError("jobId is required")
	}
	if len(input.Products) == 0 {
		_, err := h.executor.Fail(ctx, input.JobID, errors.NewNoProductsError())
		return nil, err
	}

	gen := h.executor.Generator()
	if err := h.executor.Progress(ctx, input.JobID, "extract", 0); err != nil {
		h.logger.Warn("Failed to record progress", map[string]interface{}{"jobId": input.JobID, "error": err.Error()})
	}

	tpl, err := h.executor.Artifacts().Get(ctx, input.JobID)
	if err != nil {
		_, err = h.executor.Fail(ctx, input.JobID, err)
		return nil, err
	}
	f, _, plan, err := gen.Schema(tpl)
	if err != nil {
		_, err = h.executor.Fail(ctx, input.JobID, err)
		return nil, err
	}
	f.Close()

	prepared := gen.Prepare(ctx, input.Products, input.ForceUpdate)
	units := pipeline.Units(plan, len(prepared))
	if err := h.executor.Progress(ctx, input.JobID, "resolve", len(units)); err != nil {
		h.logger.Warn("Failed to record progress", map[string]interface{}{"jobId": input.JobID, "error": err.Error()})
	}

	h.logger.Info("Schema extracted", map[string]interface{}{
		"jobId":    input.JobID,
		"products": len(prepared),
		"chunks":   len(plan.Chunks),
		"units":    len(units),
	})

	return &Output{
		Plan:      plan,
		Prepared:  prepared,
		Tasks:     pipeline.Tasks(units, prepared),
		UnitCount: len(units),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	errors.NewErrorHandler(h.logger).HandleJobError(ctx, client, job, err)
}
