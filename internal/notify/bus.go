package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/joseph-ayodele/gradebook-relay/constants"
	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// Attachment carries the raw log file, base64 encoded.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Data        string `json:"data"`
}

// Envelope is the JSON payload published on the bus. A downstream mailer turns
// it into an email with the attachment.
type Envelope struct {
	MessageID  string           `json:"message_id"`
	RunID      string           `json:"run_id,omitempty"`
	From       string           `json:"from"`
	To         string           `json:"to"`
	Subject    string           `json:"subject"`
	HTML       string           `json:"html"`
	Record     entity.LogRecord `json:"record"`
	Attachment Attachment       `json:"attachment"`
}

// BusPublisher publishes envelopes with the raw file attached. Files over the
// limit are refused before anything is sent.
type BusPublisher struct {
	publisher message.Publisher
	topic     string
	limit     int
	logger    *slog.Logger
}

func NewBusPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *BusPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusPublisher{publisher: publisher, topic: topic, limit: constants.MaxBusAttachmentBytes, logger: logger}
}

// Limit is the largest raw attachment accepted, in bytes.
func (b *BusPublisher) Limit() int {
	return b.limit
}

// Publish sends env with raw attached. It returns an ATTACHMENT_TOO_LARGE
// AppError when raw exceeds the limit.
func (b *BusPublisher) Publish(ctx context.Context, env Envelope, raw []byte) error {
	if len(raw) > b.limit {
		return common.AttachmentTooLargeError(len(raw), b.limit)
	}

	if env.MessageID == "" {
		env.MessageID = uuid.NewString()
	}
	env.Attachment = Attachment{
		Filename:    path.Base(env.Record.Filename),
		ContentType: constants.LogContentType,
		Size:        len(raw),
		Data:        base64.StdEncoding.EncodeToString(raw),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := message.NewMessage(env.MessageID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("content_type", "application/json")
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	if env.RunID != "" {
		msg.Metadata.Set("run_id", env.RunID)
	}

	if err := b.publisher.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", b.topic, err)
	}
	b.logger.Info("notify.bus.ok", "topic", b.topic, "message_id", env.MessageID, "bytes", len(raw))
	return nil
}

// Close closes the underlying publisher.
func (b *BusPublisher) Close() error {
	return b.publisher.Close()
}

// NATSConfig selects the NATS server and JetStream behaviour.
type NATSConfig struct {
	URL       string
	JetStream bool
}

// NewNATSPublisher connects a watermill publisher to NATS.
func NewNATSPublisher(cfg NATSConfig, logger *slog.Logger) (message.Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pub, err := wmNats.NewPublisher(natsPublisherConfig(cfg, logger), watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return pub, nil
}

// natsPublisherConfig builds a publisher that lives for one run. Connect and
// publish are each attempted once: no reconnects and no publish retries.
func natsPublisherConfig(cfg NATSConfig, logger *slog.Logger) wmNats.PublisherConfig {
	if logger == nil {
		logger = slog.Default()
	}
	return wmNats.PublisherConfig{
		URL: cfg.URL,
		NatsOptions: []natsgo.Option{
			natsgo.Name("gradebook-relay"),
			natsgo.Timeout(5 * time.Second),
			natsgo.NoReconnect(),
			natsgo.RetryOnFailedConnect(false),
			natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
				if err != nil {
					logger.Warn("notify.nats.disconnected", "error", err)
				}
			}),
		},
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      !cfg.JetStream,
			AutoProvision: false,
			TrackMsgId:    cfg.JetStream,
		},
	}
}

// NewMemoryPubSub returns an in-process pub/sub, for local runs and tests.
func NewMemoryPubSub(logger *slog.Logger) *gochannel.GoChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 16,
		Persistent:          true,
	}, watermill.NewSlogLogger(logger))
}
