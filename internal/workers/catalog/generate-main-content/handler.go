// internal/workers/catalog/generate-main-content/handler.go
package generatemaincontent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/metrics"
	"catalog-workers/internal/pipeline"
)

const TaskType = "catalog-generate-main-content"

type Handler struct {
	config    *Config
	generator *pipeline.Generator
	logger    logger.Logger
}

func NewHandler(config *Config, gen *pipeline.Generator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		generator: gen,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
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

// Execute writes the title, bullets, description and keywords of one product. Model
// failures degrade to empty content, so only a misrouted task is an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Task.Unit.Kind != catalog.UnitMainContent {
		return nil, errors.NewBusinessRuleError("Unit routed to the wrong worker",
			fmt.Sprintf("expected %s, got %s", catalog.UnitMainContent, input.Task.Unit.Kind))
	}

	result := h.generator.RunUnit(ctx, nil, input.Task.Unit, input.Task.Product.Input())
	main := result.(*catalog.MainContent)

	h.logger.Debug("Main content resolved", map[string]interface{}{
		"jobId":        input.JobID,
		"productIndex": main.Index,
		"empty":        main.Empty(),
	})
	return &Output{Result: catalog.Wrap(result)}, nil
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
