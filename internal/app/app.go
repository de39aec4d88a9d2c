// Package app wires configuration into a ready Processor and Handler. Both
// commands share it so Lambda and local runs behave the same.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/extract"
	"github.com/joseph-ayodele/gradebook-relay/internal/metrics"
	"github.com/joseph-ayodele/gradebook-relay/internal/notify"
	"github.com/joseph-ayodele/gradebook-relay/internal/pipeline"
	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
	"github.com/joseph-ayodele/gradebook-relay/internal/storage"
)

// NewLogger builds the process logger from the log section.
func NewLogger(cfg common.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// App is the assembled pipeline.
type App struct {
	Config    *common.Config
	Processor *pipeline.Processor
	Handler   *pipeline.Handler
	Reader    storage.ObjectReader
	Secrets   secrets.Source

	closers []io.Closer
}

// Close releases long-lived resources such as the in-memory bus.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

type buildOptions struct {
	aws     *aws.Config
	bus     message.Publisher
	ses     notify.SESAPI
	factory []pipeline.FactoryOption
}

// Option customises Build.
type Option func(*buildOptions)

// WithAWSConfig skips loading the default AWS configuration.
func WithAWSConfig(c aws.Config) Option {
	return func(o *buildOptions) { o.aws = &c }
}

// WithBusPublisher supplies the publisher for the memory bus backend.
func WithBusPublisher(pub message.Publisher) Option {
	return func(o *buildOptions) { o.bus = pub }
}

// WithSESClient supplies the SES client instead of one built from the AWS config.
func WithSESClient(client notify.SESAPI) Option {
	return func(o *buildOptions) { o.ses = client }
}

// WithFactoryOptions passes extra options to the service factory.
func WithFactoryOptions(opts ...pipeline.FactoryOption) Option {
	return func(o *buildOptions) { o.factory = append(o.factory, opts...) }
}

// usesSES covers bus mode too: the oversize fallback email goes through the
// configured email backend.
func usesSES(cfg *common.Config) bool {
	return cfg.Notify.Mode != notify.ModeNone && cfg.Notify.EmailBackend == "ses"
}

func (o *buildOptions) needsAWS(cfg *common.Config) bool {
	return cfg.Secrets.Backend == "aws" ||
		cfg.Storage.Backend == "s3" ||
		(usesSES(cfg) && o.ses == nil)
}

// Build assembles an App. AWS clients are created only for the backends
// that use them.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}
	a := &App{Config: cfg}

	var awsCfg aws.Config
	if o.needsAWS(cfg) {
		if o.aws != nil {
			awsCfg = *o.aws
		} else {
			loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Notify.Region))
			if err != nil {
				return nil, fmt.Errorf("load AWS config: %w", err)
			}
			awsCfg = loaded
		}
	}

	var source secrets.Source
	switch cfg.Secrets.Backend {
	case "aws":
		source = secrets.NewAWSSource(secretsmanager.NewFromConfig(awsCfg))
	case "file":
		source = secrets.FileSource{Dir: cfg.Secrets.FileDir}
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Secrets.Backend)
	}

	a.Secrets = source

	switch cfg.Storage.Backend {
	case "s3":
		a.Reader = storage.NewS3Reader(s3.NewFromConfig(awsCfg))
	case "local":
		a.Reader = storage.LocalReader{Root: cfg.Storage.LocalRoot}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	factoryOpts := append([]pipeline.FactoryOption{}, o.factory...)
	if usesSES(cfg) {
		client := o.ses
		if client == nil {
			client = sesv2.NewFromConfig(awsCfg)
		}
		factoryOpts = append(factoryOpts, pipeline.WithSES(client))
	}
	if cfg.Notify.NotifiesByBus() && cfg.Bus.Backend == "memory" {
		pub := o.bus
		if pub == nil {
			mem := notify.NewMemoryPubSub(logger)
			a.closers = append(a.closers, mem)
			pub = mem
		}
		factoryOpts = append(factoryOpts, pipeline.WithBus(pub))
	}

	a.Processor = pipeline.NewProcessor(
		pipeline.OptionsFromConfig(cfg),
		secrets.NewStore(a.Secrets, logger),
		a.Reader,
		pipeline.NewFactory(cfg, logger, factoryOpts...),
		extract.NewExtractor(extract.Config{IdentifierKeywords: cfg.Extract.IdentifierKeywords}, logger),
		logger,
	)
	a.Handler = pipeline.NewHandler(a.Processor, metrics.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job), logger)

	logger.Info("app.ready",
		"secrets_backend", cfg.Secrets.Backend,
		"storage_backend", cfg.Storage.Backend,
		"sheet_backend", cfg.Sheet.Backend,
		"notify_mode", cfg.Notify.Mode,
	)
	return a, nil
}
