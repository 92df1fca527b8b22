// internal/workers/catalog/assemble-spreadsheet/handler.go
package assemblespreadsheet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/metrics"
	"catalog-workers/internal/pipeline"
)

const TaskType = "catalog-assemble-spreadsheet"

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

// Execute is the barrier: it aggregates every unit result, writes the rows into the
// template and marks the job successful.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.JobID == "" {
		return nil, errors.NewInvalidSubmissionError("jobId is required")
	}
	log := h.logger.WithFields(map[string]interface{}{"jobId": input.JobID})

	if err := h.executor.Progress(ctx, input.JobID, "write", len(input.Results)); err != nil {
		log.Warn("Failed to record progress", map[string]interface{}{"error": err.Error()})
	}

	results := make([]catalog.Result, 0, len(input.Results))
	for i, env := range input.Results {
		r, err := env.Decode()
		if err != nil {
			// The row still gets written; the missing unit just contributes nothing.
			log.Warn("Discarding undecodable unit result", map[string]interface{}{"position": i, "error": err.Error()})
			continue
		}
		results = append(results, r)
	}

	tpl, err := h.executor.Artifacts().Get(ctx, input.JobID)
	if err != nil {
		_, err = h.executor.Fail(ctx, input.JobID, err)
		return nil, err
	}

	out, err := h.executor.Generator().Assemble(ctx, tpl, input.Prepared, results, input.Images)
	if err != nil {
		_, err = h.executor.Fail(ctx, input.JobID, err)
		return nil, err
	}

	st, err := h.executor.Finish(ctx, input.JobID, out)
	if err != nil {
		return nil, err
	}

	log.Info("Spreadsheet assembled", map[string]interface{}{
		"products": out.Products,
		"rows":     out.Rows,
		"results":  len(results),
	})
	return &Output{
		JobID:    input.JobID,
		State:    st.State,
		Filename: out.Filename,
		Products: out.Products,
		Rows:     out.Rows,
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
