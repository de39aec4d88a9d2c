package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one object waiting for a pipeline run.
type Job struct {
	Ref         entity.ObjectRef
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
