package pipeline

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/gradebook-relay/constants"
	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
	"github.com/joseph-ayodele/gradebook-relay/internal/metrics"
	"github.com/joseph-ayodele/gradebook-relay/internal/notify"
	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
	"github.com/joseph-ayodele/gradebook-relay/internal/upload"
)

func (p *Processor) validateEvent(_ context.Context, r *run) (entity.Outcome, error) {
	if len(r.event.Records) == 0 {
		return entity.Outcome{}, common.InvalidEventError("event has no records")
	}
	ref := r.event.Records[0]
	if strings.TrimSpace(ref.Bucket) == "" || strings.TrimSpace(ref.Key) == "" {
		return entity.Outcome{}, common.InvalidEventError("first record has no bucket or key")
	}
	if len(r.event.Records) > 1 {
		p.logger.Warn("pipeline.event.extra_records", "records", len(r.event.Records), "processed", ref.Key)
	}
	r.ref = ref
	r.result.FileProcessed = ref.Key
	return entity.Succeeded(constants.StageValidateEvent), nil
}

func (p *Processor) fetchSecrets(ctx context.Context, r *run) (entity.Outcome, error) {
	bundle, err := p.secrets.Fetch(ctx, p.opts.SecretNames...)
	if err != nil {
		return entity.Outcome{}, common.SecretFetchError(err)
	}
	r.bundle = bundle
	r.label = p.opts.IdentifierLabel
	if label := bundle.String(secrets.KeyIdentifierLabel); label != "" {
		r.label = label
	}
	return entity.Succeeded(constants.StageFetchSecrets), nil
}

func (p *Processor) initServices(ctx context.Context, r *run) (entity.Outcome, error) {
	services, err := p.factory.Build(ctx, r.bundle)
	if err != nil {
		return entity.Outcome{}, common.ServiceInitError(err)
	}
	if services == nil {
		services = &Services{}
	}
	r.services = services
	return entity.Succeeded(constants.StageInitServices), nil
}

func (p *Processor) readObject(ctx context.Context, r *run) (entity.Outcome, error) {
	raw, err := p.reader.Read(common.WithObjectKey(ctx, r.ref.Key), r.ref.Bucket, r.ref.Key)
	if err != nil {
		return entity.Outcome{}, common.ObjectReadError(r.ref.Bucket, r.ref.Key, err)
	}
	r.raw = raw
	metrics.RecordFileSize(len(raw))
	return entity.Succeeded(constants.StageReadObject), nil
}

func (p *Processor) extract(_ context.Context, r *run) (entity.Outcome, error) {
	r.record = p.extractor.Extract(string(r.raw), r.ref.Key)
	r.result.DataExtracted = r.record
	return entity.Succeeded(constants.StageExtract), nil
}

func (p *Processor) validateDestinations(_ context.Context, r *run) (entity.Outcome, error) {
	d := DestinationsFrom(r.bundle, p.sheetOn(r), p.uploadOn(r), p.notifyOn(r))
	if err := d.Validate(); err != nil {
		return entity.Outcome{}, err
	}
	return entity.Succeeded(constants.StageValidateDestinations), nil
}

func (p *Processor) sheetOn(r *run) bool {
	return p.opts.SheetEnabled && r.services.Sheets != nil
}

func (p *Processor) uploadOn(r *run) bool {
	return p.opts.UploadEnabled && r.services.Uploader != nil
}

func (p *Processor) notifyOn(r *run) bool {
	return p.opts.NotifyEnabled && r.services.Notifier != nil && r.services.Notifier.Enabled()
}

func (p *Processor) appendSheet(ctx context.Context, r *run) (entity.Outcome, error) {
	if !p.sheetOn(r) {
		return entity.Skipped(constants.StageAppendSheet, "disabled"), nil
	}
	if _, err := r.services.Sheets.AppendRow(ctx, r.bundle.String(secrets.KeySheetID), r.record); err != nil {
		return entity.Outcome{}, err
	}
	r.result.SheetUpdated = true
	return entity.Succeeded(constants.StageAppendSheet), nil
}

func (p *Processor) uploadFile(ctx context.Context, r *run) (entity.Outcome, error) {
	if !p.uploadOn(r) {
		return entity.Skipped(constants.StageUploadFile, "disabled"), nil
	}
	name := upload.UniqueName(p.now(), r.ref.Key)
	ref, err := r.services.Uploader.Upload(ctx, r.bundle.String(secrets.KeyDriveFolderID), name, r.raw)
	if err != nil {
		return entity.Outcome{}, err
	}
	r.upload = ref
	r.result.DriveUploaded = true
	r.result.DriveLink = ref.Link
	return entity.Succeeded(constants.StageUploadFile), nil
}

func (p *Processor) notify(ctx context.Context, r *run) (entity.Outcome, error) {
	if !p.notifyOn(r) {
		return entity.Skipped(constants.StageNotify, "disabled"), nil
	}
	report, err := r.services.Notifier.Notify(ctx, notify.Summary{
		RunID:  r.result.RunID,
		Label:  r.label,
		Record: r.record,
		Upload: r.upload,
	}, r.raw)
	r.result.EmailSent = report.Delivered()
	if err != nil {
		if common.CodeOf(err) != "" || !report.Delivered() {
			return entity.Outcome{}, err
		}
		// one channel delivered, another failed
		out := entity.Succeeded(constants.StageNotify)
		out.Reason = "partial: " + err.Error()
		return out, nil
	}
	if report.Fallback {
		out := entity.Succeeded(constants.StageNotify)
		out.Reason = "attachment withheld, link-only email sent"
		return out, nil
	}
	return entity.Succeeded(constants.StageNotify), nil
}
