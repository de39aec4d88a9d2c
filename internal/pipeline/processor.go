package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gradebook-relay/constants"
	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
	"github.com/joseph-ayodele/gradebook-relay/internal/extract"
	"github.com/joseph-ayodele/gradebook-relay/internal/metrics"
	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
	"github.com/joseph-ayodele/gradebook-relay/internal/storage"
)

// Options are the per-deployment switches of a Processor.
type Options struct {
	SecretNames     []string
	SheetEnabled    bool
	UploadEnabled   bool
	NotifyEnabled   bool
	IdentifierLabel string
}

// Processor runs one event through the stage table.
type Processor struct {
	opts      Options
	secrets   SecretFetcher
	reader    storage.ObjectReader
	factory   ServiceFactory
	extractor extract.FieldExtractor
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// ProcessorOption customises a Processor.
type ProcessorOption func(*Processor)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunIDs overrides run id generation, for tests.
func WithRunIDs(newID func() string) ProcessorOption {
	return func(p *Processor) {
		if newID != nil {
			p.newID = newID
		}
	}
}

func NewProcessor(
	opts Options,
	secretFetcher SecretFetcher,
	reader storage.ObjectReader,
	factory ServiceFactory,
	extractor extract.FieldExtractor,
	logger *slog.Logger,
	options ...ProcessorOption,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.IdentifierLabel == "" {
		opts.IdentifierLabel = "NIM"
	}
	p := &Processor{
		opts:      opts,
		secrets:   secretFetcher,
		reader:    reader,
		factory:   factory,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// run is the state threaded through the stages of one invocation.
type run struct {
	event    entity.TriggerEvent
	ref      entity.ObjectRef
	bundle   secrets.Bundle
	services *Services
	raw      []byte
	record   entity.LogRecord
	upload   *entity.UploadRef
	label    string
	result   *entity.PipelineResult
}

// stage is one row of the stage table. A required stage that fails ends the
// run; a best-effort stage records the failure and the run continues. Errors
// carrying an abort code end the run from any stage.
type stage struct {
	name     constants.Stage
	required bool
	exec     func(ctx context.Context, r *run) (entity.Outcome, error)
}

// stageCodes is the abort code for a required stage whose error is not
// already an AppError.
var stageCodes = map[constants.Stage]string{
	constants.StageValidateEvent:        common.CodeInvalidEvent,
	constants.StageFetchSecrets:         common.CodeSecretFetchFailed,
	constants.StageInitServices:         common.CodeServiceInitFailed,
	constants.StageReadObject:           common.CodeObjectReadFailed,
	constants.StageValidateDestinations: common.CodeMissingConfiguration,
}

func (p *Processor) stages() []stage {
	return []stage{
		{name: constants.StageValidateEvent, required: true, exec: p.validateEvent},
		{name: constants.StageFetchSecrets, required: true, exec: p.fetchSecrets},
		{name: constants.StageInitServices, required: true, exec: p.initServices},
		{name: constants.StageReadObject, required: true, exec: p.readObject},
		{name: constants.StageExtract, required: true, exec: p.extract},
		{name: constants.StageValidateDestinations, required: true, exec: p.validateDestinations},
		{name: constants.StageAppendSheet, required: false, exec: p.appendSheet},
		{name: constants.StageUploadFile, required: false, exec: p.uploadFile},
		{name: constants.StageNotify, required: false, exec: p.notify},
	}
}

// Run processes the first record of ev. The error, when set, is always a
// *common.AppError and no result is returned with it.
func (p *Processor) Run(ctx context.Context, ev entity.TriggerEvent) (*entity.PipelineResult, error) {
	start := p.now()
	r := &run{event: ev, result: &entity.PipelineResult{RunID: p.newID()}}
	ctx = common.WithRunID(ctx, r.result.RunID)
	logger := p.logger.With("run_id", r.result.RunID)

	defer func() {
		if r.services == nil {
			return
		}
		if err := r.services.Close(); err != nil {
			logger.Warn("pipeline.services.close_failed", "error", err)
		}
	}()

	for _, st := range p.stages() {
		out, err := st.exec(ctx, r)
		if err != nil {
			out = entity.Failed(st.name, err)
			metrics.RecordStage(string(st.name), string(out.Kind))
			if st.required || common.CodeOf(err) != "" {
				var appErr *common.AppError
				if !errors.As(err, &appErr) {
					err = common.NewAppError(stageCodes[st.name], string(st.name)+" failed", err)
				}
				logger.Error("pipeline.abort", "stage", st.name, "key", r.ref.Key, "error", err)
				metrics.RecordRun(common.CodeOf(err), p.now().Sub(start))
				return nil, err
			}
			logger.Warn("pipeline.stage.failed", "stage", st.name, "error", err)
		} else {
			metrics.RecordStage(string(st.name), string(out.Kind))
			logger.Debug("pipeline.stage.done", "stage", st.name, "outcome", out.Kind)
		}
		r.result.Stages = append(r.result.Stages, out)
	}

	r.result.Timestamp = p.now().Format(constants.RecordTimeLayout)
	metrics.RecordRun(metrics.ResultOK, p.now().Sub(start))
	logger.Info("pipeline.ok",
		"key", r.ref.Key,
		"sheet_updated", r.result.SheetUpdated,
		"drive_uploaded", r.result.DriveUploaded,
		"email_sent", r.result.EmailSent,
		"elapsed_ms", p.now().Sub(start).Milliseconds(),
	)
	return r.result, nil
}
