package notify

import (
	"testing"

	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSPublisherConfigAttemptsOnce(t *testing.T) {
	t.Parallel()

	for _, js := range []bool{false, true} {
		cfg := natsPublisherConfig(NATSConfig{URL: "nats://127.0.0.1:4222", JetStream: js}, nil)

		assert.Equal(t, "nats://127.0.0.1:4222", cfg.URL)
		assert.Empty(t, cfg.JetStream.PublishOptions, "publishes are not retried")
		assert.Equal(t, !js, cfg.JetStream.Disabled)
		assert.Equal(t, js, cfg.JetStream.TrackMsgId)

		opts := natsgo.GetDefaultOptions()
		for _, o := range cfg.NatsOptions {
			require.NoError(t, o(&opts))
		}
		assert.False(t, opts.AllowReconnect)
		assert.False(t, opts.RetryOnFailedConnect)
		assert.Equal(t, "gradebook-relay", opts.Name)
	}
}
