package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/gradebook-relay/constants"
	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
	"github.com/joseph-ayodele/gradebook-relay/internal/extract"
	"github.com/joseph-ayodele/gradebook-relay/internal/notify"
	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
)

var testNow = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

type fakeSecrets struct {
	bundle secrets.Bundle
	err    error
	calls  int
	names  []string
}

func (f *fakeSecrets) Fetch(_ context.Context, names ...string) (secrets.Bundle, error) {
	f.calls++
	f.names = names
	return f.bundle, f.err
}

type fakeReader struct {
	data  string
	err   error
	calls int
}

func (f *fakeReader) Read(_ context.Context, _, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.data), nil
}

type fakeSheets struct {
	err     error
	calls   int
	sheetID string
	rec     entity.LogRecord
}

func (f *fakeSheets) AppendRow(_ context.Context, sheetID string, rec entity.LogRecord) (string, error) {
	f.calls++
	f.sheetID, f.rec = sheetID, rec
	if f.err != nil {
		return "", f.err
	}
	return "Sheet1!A2:E2", nil
}

type fakeUploader struct {
	err      error
	calls    int
	folderID string
	name     string
}

func (f *fakeUploader) Upload(_ context.Context, folderID, name string, _ []byte) (*entity.UploadRef, error) {
	f.calls++
	f.folderID, f.name = folderID, name
	if f.err != nil {
		return nil, f.err
	}
	return &entity.UploadRef{FileID: "f1", FileName: name, Link: "https://drive.example/f1"}, nil
}

type fakeNotifier struct {
	disabled bool
	report   notify.Report
	err      error
	calls    int
	summary  notify.Summary
}

func (f *fakeNotifier) Enabled() bool { return !f.disabled }

func (f *fakeNotifier) Notify(_ context.Context, s notify.Summary, _ []byte) (notify.Report, error) {
	f.calls++
	f.summary = s
	return f.report, f.err
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

type harness struct {
	secrets   *fakeSecrets
	reader    *fakeReader
	sheets    *fakeSheets
	uploader  *fakeUploader
	notifier  *fakeNotifier
	builds    int
	buildErr  error
	closed    int
	opts      Options
	closeOnce sync.Mutex
}

func newHarness() *harness {
	return &harness{
		secrets: &fakeSecrets{bundle: secrets.Bundle{
			secrets.KeySheetID:        "sheet-1",
			secrets.KeyDriveFolderID:  "folder-1",
			secrets.KeySenderEmail:    "bot@example.com",
			secrets.KeyRecipientEmail: "dosen@example.com",
		}},
		reader:   &fakeReader{data: "NIM: 12345, kelas A\nScore: 85\n"},
		sheets:   &fakeSheets{},
		uploader: &fakeUploader{},
		notifier: &fakeNotifier{report: notify.Report{EmailSent: true}},
		opts: Options{
			SecretNames:     []string{"my-project-dev-app-config"},
			SheetEnabled:    true,
			UploadEnabled:   true,
			NotifyEnabled:   true,
			IdentifierLabel: "NIM",
		},
	}
}

func (h *harness) processor() *Processor {
	factory := ServiceFactoryFunc(func(context.Context, secrets.Bundle) (*Services, error) {
		h.builds++
		if h.buildErr != nil {
			return nil, h.buildErr
		}
		s := &Services{Sheets: h.sheets, Uploader: h.uploader, Notifier: h.notifier}
		s.AddCloser(closerFunc(func() error {
			h.closeOnce.Lock()
			defer h.closeOnce.Unlock()
			h.closed++
			return nil
		}))
		return s, nil
	})
	ext := extract.NewExtractor(extract.Config{}, nil, extract.WithClock(func() time.Time { return testNow }))
	return NewProcessor(h.opts, h.secrets, h.reader, factory, ext, nil,
		WithClock(func() time.Time { return testNow }),
		WithRunIDs(func() string { return "run-1" }),
	)
}

func event(key string) entity.TriggerEvent {
	return entity.TriggerEvent{Records: []entity.ObjectRef{{Bucket: "uploads", Key: key}}}
}

func kinds(res *entity.PipelineResult) map[constants.Stage]entity.OutcomeKind {
	out := map[constants.Stage]entity.OutcomeKind{}
	for _, o := range res.Stages {
		out[o.Stage] = o.Kind
	}
	return out
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()

	h := newHarness()
	res, err := h.processor().Run(context.Background(), event("logs/run.log"))
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "logs/run.log", res.FileProcessed)
	assert.Equal(t, "12345", res.DataExtracted.Identifier)
	assert.Equal(t, entity.ScoreOf(85), res.DataExtracted.Score)
	assert.Equal(t, "Lulus", res.DataExtracted.Status)
	assert.True(t, res.SheetUpdated)
	assert.True(t, res.DriveUploaded)
	assert.Equal(t, "https://drive.example/f1", res.DriveLink)
	assert.True(t, res.EmailSent)
	assert.Equal(t, "2026-10-19 08:30:00", res.Timestamp)
	require.Len(t, res.Stages, 9)
	for _, o := range res.Stages {
		assert.Equal(t, entity.OutcomeSuccess, o.Kind, o.Stage)
	}

	assert.Equal(t, []string{"my-project-dev-app-config"}, h.secrets.names)
	assert.Equal(t, "sheet-1", h.sheets.sheetID)
	assert.Equal(t, "folder-1", h.uploader.folderID)
	assert.Equal(t, "20261019_083000_run.log", h.uploader.name)
	assert.Equal(t, "NIM", h.notifier.summary.Label)
	require.NotNil(t, h.notifier.summary.Upload)
	assert.Equal(t, 1, h.closed, "services are closed after the run")
}

func TestRunInvalidEventMakesNoCalls(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   entity.TriggerEvent
	}{
		{name: "no records", ev: entity.TriggerEvent{}},
		{name: "empty key", ev: entity.TriggerEvent{Records: []entity.ObjectRef{{Bucket: "b"}}}},
		{name: "empty bucket", ev: entity.TriggerEvent{Records: []entity.ObjectRef{{Key: "k.log"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness()
			res, err := h.processor().Run(context.Background(), tt.ev)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, common.ErrInvalidEvent)
			assert.Equal(t, common.CodeInvalidEvent, common.CodeOf(err))
			assert.Zero(t, h.secrets.calls)
			assert.Zero(t, h.builds)
			assert.Zero(t, h.reader.calls)
			assert.Zero(t, h.sheets.calls+h.uploader.calls+h.notifier.calls)
		})
	}
}

func TestRunAbortErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(h *harness)
		wantCode string
		wantMsg  string
	}{
		{
			name:     "secrets",
			mutate:   func(h *harness) { h.secrets.err = errors.New("AccessDeniedException") },
			wantCode: common.CodeSecretFetchFailed,
			wantMsg:  "AccessDeniedException",
		},
		{
			name:     "service init",
			mutate:   func(h *harness) { h.buildErr = errors.New("invalid credentials") },
			wantCode: common.CodeServiceInitFailed,
			wantMsg:  "invalid credentials",
		},
		{
			name:     "object read",
			mutate:   func(h *harness) { h.reader.err = errors.New("NoSuchKey") },
			wantCode: common.CodeObjectReadFailed,
			wantMsg:  "uploads/logs/run.log",
		},
		{
			name: "missing configuration lists every key",
			mutate: func(h *harness) {
				h.secrets.bundle = secrets.Bundle{secrets.KeySenderEmail: "bot@example.com"}
			},
			wantCode: common.CodeMissingConfiguration,
			wantMsg:  "google_sheet_id, google_drive_folder_id, recipient_email",
		},
		{
			name: "oversize attachment under abort policy",
			mutate: func(h *harness) {
				h.notifier.report = notify.Report{}
				h.notifier.err = common.AttachmentTooLargeError(204801, 204800)
			},
			wantCode: common.CodeAttachmentTooLarge,
			wantMsg:  "204801",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness()
			tt.mutate(h)
			res, err := h.processor().Run(context.Background(), event("logs/run.log"))
			assert.Nil(t, res)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, common.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRunObjectReadFailureStopsBeforeLaterStages(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.reader.err = errors.New("NoSuchKey")
	_, err := h.processor().Run(context.Background(), event("logs/run.log"))
	assert.ErrorIs(t, err, common.ErrObjectRead)
	assert.Zero(t, h.sheets.calls)
	assert.Zero(t, h.uploader.calls)
	assert.Zero(t, h.notifier.calls)
	assert.Equal(t, 1, h.closed)
}

func TestRunSheetFailureIsDegraded(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.sheets.err = errors.New("quota exceeded")
	res, err := h.processor().Run(context.Background(), event("logs/run.log"))
	require.NoError(t, err)

	assert.False(t, res.SheetUpdated)
	assert.True(t, res.DriveUploaded)
	assert.True(t, res.EmailSent)
	assert.Equal(t, 1, h.uploader.calls)
	assert.Equal(t, 1, h.notifier.calls)

	out, ok := res.Outcome(constants.StageAppendSheet)
	require.True(t, ok)
	assert.Equal(t, entity.OutcomeFailed, out.Kind)
	assert.Contains(t, out.Reason, "quota exceeded")
}

func TestRunBestEffortFailures(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.uploader.err = errors.New("drive 500")
	h.notifier.report = notify.Report{}
	h.notifier.err = errors.New("MessageRejected")
	res, err := h.processor().Run(context.Background(), event("logs/run.log"))
	require.NoError(t, err)

	assert.True(t, res.SheetUpdated)
	assert.False(t, res.DriveUploaded)
	assert.Empty(t, res.DriveLink)
	assert.False(t, res.EmailSent)
	assert.Nil(t, h.notifier.summary.Upload, "no link when the upload failed")

	k := kinds(res)
	assert.Equal(t, entity.OutcomeFailed, k[constants.StageUploadFile])
	assert.Equal(t, entity.OutcomeFailed, k[constants.StageNotify])
}

func TestRunDisabledStagesAreSkipped(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.opts.UploadEnabled = false
	h.notifier.disabled = true
	// neither the folder nor the addresses are needed now
	h.secrets.bundle = secrets.Bundle{secrets.KeySheetID: "sheet-1"}

	res, err := h.processor().Run(context.Background(), event("logs/run.log"))
	require.NoError(t, err)

	k := kinds(res)
	assert.Equal(t, entity.OutcomeSuccess, k[constants.StageAppendSheet])
	assert.Equal(t, entity.OutcomeSkipped, k[constants.StageUploadFile])
	assert.Equal(t, entity.OutcomeSkipped, k[constants.StageNotify])
	assert.Zero(t, h.uploader.calls)
	assert.Zero(t, h.notifier.calls)
	assert.False(t, res.DriveUploaded)
	assert.False(t, res.EmailSent)
}

func TestRunPartialNotifyAndFallback(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.notifier.report = notify.Report{EmailSent: true}
	h.notifier.err = errors.New("publish gradebook.notifications: nats: no responders")
	res, err := h.processor().Run(context.Background(), event("logs/run.log"))
	require.NoError(t, err)
	out, _ := res.Outcome(constants.StageNotify)
	assert.Equal(t, entity.OutcomeSuccess, out.Kind)
	assert.True(t, strings.HasPrefix(out.Reason, "partial: "))
	assert.True(t, res.EmailSent)

	h = newHarness()
	h.notifier.report = notify.Report{EmailSent: true, Fallback: true}
	res, err = h.processor().Run(context.Background(), event("logs/run.log"))
	require.NoError(t, err)
	out, _ = res.Outcome(constants.StageNotify)
	assert.Equal(t, entity.OutcomeSuccess, out.Kind)
	assert.Contains(t, out.Reason, "link-only")
}

func TestRunLabelFromBundle(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.secrets.bundle[secrets.KeyIdentifierLabel] = "NRP"
	h.reader.data = "NRP: 5025211000\n"
	res, err := h.processor().Run(context.Background(), event("logs/run.log"))
	require.NoError(t, err)
	assert.Equal(t, "5025211000", res.DataExtracted.Identifier)
	assert.Equal(t, "NRP", h.notifier.summary.Label)
}

func TestRunEmptyLogYieldsSentinels(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.reader.data = ""
	res, err := h.processor().Run(context.Background(), event("logs/empty.log"))
	require.NoError(t, err)
	assert.Equal(t, entity.NewLogRecord("logs/empty.log", "2026-10-19 08:30:00"), res.DataExtracted)
	assert.Equal(t, "N/A", h.sheets.rec.Identifier)
}
