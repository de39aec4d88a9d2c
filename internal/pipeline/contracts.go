package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
	"github.com/joseph-ayodele/gradebook-relay/internal/notify"
	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
	"github.com/joseph-ayodele/gradebook-relay/internal/sheets"
	"github.com/joseph-ayodele/gradebook-relay/internal/upload"
)

// SecretFetcher loads and merges the named secret documents.
type SecretFetcher interface {
	Fetch(ctx context.Context, names ...string) (secrets.Bundle, error)
}

// Notifier delivers the run summary.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, s notify.Summary, raw []byte) (notify.Report, error)
}

// Services are the clients built for one run from its secret bundle. A nil
// field means the corresponding stage is disabled.
type Services struct {
	Sheets   sheets.SheetAppender
	Uploader upload.ObjectUploader
	Notifier Notifier

	closers []io.Closer
}

// AddCloser registers c to be closed with the services.
func (s *Services) AddCloser(c io.Closer) {
	s.closers = append(s.closers, c)
}

// Close releases every registered resource.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// ServiceFactory builds the per-run services.
type ServiceFactory interface {
	Build(ctx context.Context, bundle secrets.Bundle) (*Services, error)
}

// ServiceFactoryFunc adapts a function to ServiceFactory.
type ServiceFactoryFunc func(ctx context.Context, bundle secrets.Bundle) (*Services, error)

func (f ServiceFactoryFunc) Build(ctx context.Context, bundle secrets.Bundle) (*Services, error) {
	return f(ctx, bundle)
}

// Runner runs the pipeline for one event.
type Runner interface {
	Run(ctx context.Context, ev entity.TriggerEvent) (*entity.PipelineResult, error)
}
