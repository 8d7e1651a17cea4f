package notifications

import (
	"context"
	"log/slog"
	"time"

	"sam/internal/jobqueue"
	"sam/internal/logging"
)

// JobObserver publishes EventJobFailed for failed session jobs.
type JobObserver struct {
	svc     Service
	logger  *slog.Logger
	timeout time.Duration
}

var _ jobqueue.Observer = (*JobObserver)(nil)

// NewJobObserver wraps svc. Publishing happens off the worker goroutine.
func NewJobObserver(svc Service, logger *slog.Logger) *JobObserver {
	if svc == nil {
		svc = noopService{}
	}
	return &JobObserver{
		svc:     svc,
		logger:  logging.NewComponentLogger(logger, "notifications"),
		timeout: 15 * time.Second,
	}
}

func (o *JobObserver) JobQueued(jobqueue.JobInfo)  {}
func (o *JobObserver) JobStarted(jobqueue.JobInfo) {}

func (o *JobObserver) JobFinished(info jobqueue.JobInfo, _ time.Duration, err error) {
	if err == nil {
		return
	}
	payload := Payload{"session": info.Session, "kind": info.Kind, "error": err}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()
		if perr := o.svc.Publish(ctx, EventJobFailed, payload); perr != nil {
			logging.WarnWithContext(o.logger, "job failure notification failed", "notification_failed",
				logging.String(logging.FieldSessionID, info.Session),
				logging.String(logging.FieldJobID, info.ID),
				logging.Error(perr),
				logging.String(logging.FieldErrorHint, "check ntfy_topic and network reachability"),
				logging.String(logging.FieldImpact, "job failure alert was not delivered"),
			)
		}
	}()
}
