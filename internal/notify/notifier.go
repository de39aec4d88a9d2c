package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/gradebook-relay/internal/common"
)

// Notification modes and oversize policies.
const (
	ModeEmail = "email"
	ModeBus   = "bus"
	ModeBoth  = "both"
	ModeNone  = "none"

	PolicyFallback = "fallback"
	PolicyAbort    = "abort"
)

const oversizeNote = "Lampiran tidak dikirim karena ukurannya melebihi batas; gunakan tautan di atas."

// Options fixes who a notification goes to and how.
type Options struct {
	Mode           string
	OversizePolicy string
	From           string
	FromName       string
	To             string
}

func (o Options) byEmail() bool { return o.Mode == ModeEmail || o.Mode == ModeBoth }
func (o Options) byBus() bool   { return o.Mode == ModeBus || o.Mode == ModeBoth }

// Report says which channels delivered.
type Report struct {
	EmailSent    bool
	BusPublished bool
	// Fallback is set when the bus refused the attachment and a link-only
	// email went out instead.
	Fallback bool
}

// Delivered reports whether any channel took the notification.
func (r Report) Delivered() bool {
	return r.EmailSent || r.BusPublished
}

// Notifier sends the run summary over the configured channels.
type Notifier struct {
	opts   Options
	email  EmailSender
	bus    *BusPublisher
	logger *slog.Logger
}

// NewNotifier wires the channels. email or bus may be nil when the mode does
// not use them; a nil email sender also disables the oversize fallback.
func NewNotifier(opts Options, email EmailSender, bus *BusPublisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OversizePolicy == "" {
		opts.OversizePolicy = PolicyFallback
	}
	return &Notifier{opts: opts, email: email, bus: bus, logger: logger}
}

// Enabled reports whether any notification will be attempted.
func (n *Notifier) Enabled() bool {
	return n.opts.Mode != ModeNone && n.opts.Mode != ""
}

// Notify sends s and returns what was delivered. Delivery failures come back
// as plain errors; only an oversize attachment under the abort policy returns
// an ATTACHMENT_TOO_LARGE AppError.
func (n *Notifier) Notify(ctx context.Context, s Summary, raw []byte) (Report, error) {
	var (
		report Report
		errs   []error
	)
	if !n.Enabled() {
		return report, nil
	}

	if n.opts.byBus() {
		err := n.publish(ctx, s, raw)
		switch {
		case err == nil:
			report.BusPublished = true
		case errors.Is(err, common.ErrAttachmentTooLarge):
			if n.opts.OversizePolicy == PolicyAbort {
				return report, err
			}
			n.logger.Warn("notify.bus.oversize", "bytes", len(raw), "policy", n.opts.OversizePolicy)
			if n.opts.byEmail() {
				// the regular email below already carries the link
				break
			}
			if n.email == nil {
				errs = append(errs, fmt.Errorf("attachment withheld and no email fallback: %s", errorMessage(err)))
				break
			}
			s.Note = oversizeNote
			if err := n.sendEmail(ctx, s); err != nil {
				errs = append(errs, fmt.Errorf("fallback email: %w", err))
				break
			}
			report.EmailSent = true
			report.Fallback = true
		default:
			errs = append(errs, err)
		}
	}

	if n.opts.byEmail() {
		if err := n.sendEmail(ctx, s); err != nil {
			errs = append(errs, err)
		} else {
			report.EmailSent = true
		}
	}

	return report, errors.Join(errs...)
}

func (n *Notifier) sendEmail(ctx context.Context, s Summary) error {
	if n.email == nil {
		return errors.New("email sender not configured")
	}
	body, err := RenderHTML(s)
	if err != nil {
		return err
	}
	return n.email.Send(ctx, Email{
		From:     n.opts.From,
		FromName: n.opts.FromName,
		To:       n.opts.To,
		Subject:  Subject(s.Label, s.Record.Identifier),
		HTML:     body,
	})
}

func (n *Notifier) publish(ctx context.Context, s Summary, raw []byte) error {
	if n.bus == nil {
		return errors.New("bus publisher not configured")
	}
	if len(raw) > n.bus.Limit() {
		return common.AttachmentTooLargeError(len(raw), n.bus.Limit())
	}
	body, err := RenderHTML(s)
	if err != nil {
		return err
	}
	return n.bus.Publish(ctx, Envelope{
		RunID:   s.RunID,
		From:    n.opts.From,
		To:      n.opts.To,
		Subject: Subject(s.Label, s.Record.Identifier),
		HTML:    body,
		Record:  s.Record,
	}, raw)
}

// errorMessage drops the code prefix so a downgraded oversize error no longer
// reads as an abort.
func errorMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
