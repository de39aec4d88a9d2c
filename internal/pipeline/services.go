package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/gcp"
	"github.com/joseph-ayodele/gradebook-relay/internal/notify"
	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
	"github.com/joseph-ayodele/gradebook-relay/internal/sheets"
	"github.com/joseph-ayodele/gradebook-relay/internal/upload"
)

// OptionsFromConfig derives the Processor switches from configuration.
func OptionsFromConfig(cfg *common.Config) Options {
	return Options{
		SecretNames:     cfg.Secrets.SecretNames(),
		SheetEnabled:    cfg.Sheet.Enabled,
		UploadEnabled:   cfg.Upload.Enabled,
		NotifyEnabled:   cfg.Notify.Mode != notify.ModeNone,
		IdentifierLabel: cfg.Extract.IdentifierLabel,
	}
}

// Factory builds Services from configuration and one run's secret bundle.
type Factory struct {
	cfg    *common.Config
	ses    notify.SESAPI
	bus    message.Publisher
	google []option.ClientOption
	logger *slog.Logger
}

// FactoryOption customises a Factory.
type FactoryOption func(*Factory)

// WithSES sets the SES client used by the ses email backend.
func WithSES(client notify.SESAPI) FactoryOption {
	return func(f *Factory) { f.ses = client }
}

// WithBus sets a long-lived publisher used by the memory bus backend. It is
// not closed with the per-run services.
func WithBus(pub message.Publisher) FactoryOption {
	return func(f *Factory) { f.bus = pub }
}

// WithGoogleOptions appends client options to the Google services.
func WithGoogleOptions(opts ...option.ClientOption) FactoryOption {
	return func(f *Factory) { f.google = append(f.google, opts...) }
}

func NewFactory(cfg *common.Config, logger *slog.Logger, opts ...FactoryOption) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Factory) needsGoogle() bool {
	return (f.cfg.Sheet.Enabled && f.cfg.Sheet.Backend == "google") ||
		(f.cfg.Upload.Enabled && f.cfg.Upload.Backend == "drive")
}

// Build implements ServiceFactory.
func (f *Factory) Build(ctx context.Context, b secrets.Bundle) (*Services, error) {
	s := &Services{}
	fail := func(err error) (*Services, error) {
		_ = s.Close()
		return nil, err
	}

	var clients *gcp.Clients
	if f.needsGoogle() {
		creds, err := gcp.CredentialsJSON(b)
		if err != nil {
			return fail(err)
		}
		clients, err = gcp.NewClients(ctx, creds, f.google...)
		if err != nil {
			return fail(err)
		}
	}

	if f.cfg.Sheet.Enabled {
		appender, err := f.buildSheets(ctx, b, clients, s)
		if err != nil {
			return fail(fmt.Errorf("sheets: %w", err))
		}
		s.Sheets = appender
	}

	if f.cfg.Upload.Enabled {
		switch f.cfg.Upload.Backend {
		case "drive":
			s.Uploader = upload.NewDriveUploader(clients.Drive, f.logger)
		case "local":
			s.Uploader = upload.NewLocalUploader(f.cfg.Upload.LocalRoot, f.logger)
		default:
			return fail(fmt.Errorf("unknown upload backend %q", f.cfg.Upload.Backend))
		}
	}

	if f.cfg.Notify.Mode != notify.ModeNone {
		n, err := f.buildNotifier(b, s)
		if err != nil {
			return fail(fmt.Errorf("notify: %w", err))
		}
		s.Notifier = n
	}

	f.logger.Debug("pipeline.services.ready",
		"sheet_backend", f.cfg.Sheet.Backend,
		"upload_backend", f.cfg.Upload.Backend,
		"notify_mode", f.cfg.Notify.Mode,
	)
	return s, nil
}

func (f *Factory) buildSheets(ctx context.Context, b secrets.Bundle, clients *gcp.Clients, s *Services) (sheets.SheetAppender, error) {
	cfg := f.cfg.Sheet
	switch cfg.Backend {
	case "google":
		return sheets.NewGoogleAppender(clients.Sheets, cfg.Range, f.logger), nil
	case "xlsx":
		return sheets.NewXLSXAppender(cfg.WorkbookDir, cfg.SheetName, f.logger), nil
	case "sql":
		dsn := cfg.SQLDSN
		if v := b.String(secrets.KeyDatabaseDSN); v != "" {
			dsn = v
		}
		if dsn == "" {
			return nil, errors.New("no database DSN in config or secret bundle")
		}
		db, err := sheets.OpenDB(ctx, cfg.SQLDriver, dsn, f.logger)
		if err != nil {
			return nil, err
		}
		appender, err := sheets.NewSQLAppender(ctx, db, cfg.SQLDriver, cfg.SQLTable, f.logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.AddCloser(appender)
		return appender, nil
	default:
		return nil, fmt.Errorf("unknown sheet backend %q", cfg.Backend)
	}
}

func (f *Factory) buildNotifier(b secrets.Bundle, s *Services) (*notify.Notifier, error) {
	cfg := f.cfg.Notify

	var email notify.EmailSender
	switch cfg.EmailBackend {
	case "ses":
		if f.ses != nil {
			email = notify.NewSESSender(f.ses, f.logger)
		}
	case "smtp":
		email = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			UseTLS:   cfg.SMTPUseTLS,
			Username: b.String(secrets.KeySMTPUsername),
			Password: b.String(secrets.KeySMTPPassword),
		}, f.logger)
	}
	if cfg.NotifiesByEmail() && email == nil {
		return nil, fmt.Errorf("email backend %q is not available", cfg.EmailBackend)
	}

	var bus *notify.BusPublisher
	if cfg.NotifiesByBus() {
		pub, err := f.publisher(s)
		if err != nil {
			return nil, err
		}
		bus = notify.NewBusPublisher(pub, f.cfg.Bus.Topic, f.logger)
	}

	return notify.NewNotifier(notify.Options{
		Mode:           cfg.Mode,
		OversizePolicy: cfg.OversizePolicy,
		From:           b.String(secrets.KeySenderEmail),
		FromName:       cfg.FromName,
		To:             b.String(secrets.KeyRecipientEmail),
	}, email, bus, f.logger), nil
}

func (f *Factory) publisher(s *Services) (message.Publisher, error) {
	switch f.cfg.Bus.Backend {
	case "memory":
		if f.bus == nil {
			return nil, errors.New("memory bus backend has no publisher")
		}
		return f.bus, nil
	case "nats":
		pub, err := notify.NewNATSPublisher(notify.NATSConfig{URL: f.cfg.Bus.URL, JetStream: f.cfg.Bus.JetStream}, f.logger)
		if err != nil {
			return nil, err
		}
		s.AddCloser(pub)
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown bus backend %q", f.cfg.Bus.Backend)
	}
}
