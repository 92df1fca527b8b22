package jobs

import (
	"context"
	"encoding/base64"
	"time"

	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/metrics"
	"catalog-workers/internal/common/observability"
)

// Tracker moves a job through PENDING -> PROGRESS -> SUCCESS|FAILURE. Terminal states are
// never overwritten.
type Tracker struct {
	store    Store
	notifier Notifier
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
}

func NewTracker(store Store, notifier Notifier, obs *observability.Observability, log logger.Logger) *Tracker {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Tracker{store: store, notifier: notifier, obs: obs, logger: log, now: time.Now}
}

func (t *Tracker) Store() Store { return t.store }

func (t *Tracker) Start(ctx context.Context, jobID string, products int) (*Status, error) {
	now := t.now()
	st := &Status{
		JobID:     jobID,
		State:     StatePending,
		Step:      "queued",
		Products:  products,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.store.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Progress records the current step. It is a no-op once the job is terminal.
func (t *Tracker) Progress(ctx context.Context, jobID, step string, units int) error {
	st, err := t.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if st.State.Terminal() {
		return nil
	}
	st.State = StateProgress
	st.Step = step
	if units > 0 {
		st.UnitsTotal = units
	}
	st.UpdatedAt = t.now()
	return t.store.Save(ctx, st)
}

func (t *Tracker) Succeed(ctx context.Context, jobID, filename string, workbook []byte) (*Status, error) {
	return t.finish(ctx, jobID, func(st *Status) {
		st.State = StateSuccess
		st.Step = "done"
		st.Filename = filename
		st.FileContent = base64.StdEncoding.EncodeToString(workbook)
	})
}

func (t *Tracker) Fail(ctx context.Context, jobID string, cause error) (*Status, error) {
	return t.finish(ctx, jobID, func(st *Status) {
		st.State = StateFailure
		st.ErrorType = string(errors.ErrCodeInternal)
		if stdErr, ok := errors.AsStandard(cause); ok {
			st.ErrorType = string(stdErr.Code)
		}
		st.ErrorMessage = cause.Error()
	})
}

func (t *Tracker) finish(ctx context.Context, jobID string, apply func(*Status)) (*Status, error) {
	st, err := t.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if st.State.Terminal() {
		return st, nil
	}
	apply(st)
	st.UpdatedAt = t.now()
	if err := t.store.Save(ctx, st); err != nil {
		return nil, err
	}

	metrics.JobsTotal.WithLabelValues(string(st.State)).Inc()
	t.obs.RecordJob(ctx, string(st.State), st.UpdatedAt.Sub(st.CreatedAt), st.Products)

	if err := t.notifier.Notify(ctx, st); err != nil {
		t.logger.Warn("Job notification failed", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
	}
	t.logger.Info("Job finished", map[string]interface{}{
		"jobId":    jobID,
		"state":    st.State,
		"products": st.Products,
	})
	return st, nil
}
