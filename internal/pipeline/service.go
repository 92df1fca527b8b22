package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/jobs"
)

const DefaultKickoffTimeout = 20 * time.Second

// Service is the submit/poll surface consumed by callers.
type Service struct {
	tracker        *jobs.Tracker
	artifacts      jobs.ArtifactStore
	launcher       Launcher
	kickoffTimeout time.Duration
	logger         logger.Logger
	newID          func() string
}

func NewService(tracker *jobs.Tracker, artifacts jobs.ArtifactStore, launcher Launcher, kickoffTimeout time.Duration, log logger.Logger) *Service {
	if kickoffTimeout <= 0 {
		kickoffTimeout = DefaultKickoffTimeout
	}
	return &Service{
		tracker:        tracker,
		artifacts:      artifacts,
		launcher:       launcher,
		kickoffTimeout: kickoffTimeout,
		logger:         log.With(map[string]interface{}{"component": "service"}),
		newID:          uuid.NewString,
	}
}

// Submit records a job, stores its template and waits for kickoff. Fatal preconditions mark the
// job FAILURE and are returned together with the job ID.
func (s *Service) Submit(ctx context.Context, req *Request) (string, error) {
	jobID := s.newID()
	log := s.logger.WithFields(map[string]interface{}{"jobId": jobID})

	if _, err := s.tracker.Start(ctx, jobID, len(req.Products)); err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return jobID, s.reject(ctx, jobID, err, log)
	}
	if err := s.artifacts.Put(ctx, jobID, req.Template); err != nil {
		return jobID, s.reject(ctx, jobID, err, log)
	}

	kctx, cancel := context.WithTimeout(ctx, s.kickoffTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.launcher.Launch(kctx, req.Job(jobID)) }()

	select {
	case err := <-done:
		if err != nil {
			return jobID, s.reject(ctx, jobID, err, log)
		}
	case <-kctx.Done():
		return jobID, s.reject(ctx, jobID, errors.NewKickoffTimeoutError(jobID, s.kickoffTimeout), log)
	}

	log.Info("Job submitted", map[string]interface{}{
		"products":    len(req.Products),
		"forceUpdate": req.ForceUpdate,
	})
	return jobID, nil
}

// Poll returns the current status of a job.
func (s *Service) Poll(ctx context.Context, jobID string) (*jobs.Status, error) {
	return s.tracker.Store().Get(ctx, jobID)
}

// Await polls until the job is terminal or ctx ends.
func (s *Service) Await(ctx context.Context, jobID string, interval time.Duration) (*jobs.Status, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := s.Poll(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if st.State.Terminal() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) reject(ctx context.Context, jobID string, cause error, log logger.Logger) error {
	log.Warn("Job rejected", map[string]interface{}{"error": cause.Error()})
	if _, err := s.tracker.Fail(ctx, jobID, cause); err != nil {
		log.Error("Failed to record job failure", map[string]interface{}{"error": err.Error()})
	}
	if err := s.artifacts.Delete(ctx, jobID); err != nil {
		log.Warn("Failed to delete template artifact", map[string]interface{}{"error": err.Error()})
	}
	return cause
}
