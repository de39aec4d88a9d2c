package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"

	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
	"github.com/joseph-ayodele/gradebook-relay/internal/metrics"
)

// Handler adapts a Runner to the Lambda runtime. It never returns an error:
// every failure becomes a 500 Response.
type Handler struct {
	runner Runner
	pusher *metrics.Pusher
	logger *slog.Logger
}

func NewHandler(runner Runner, pusher *metrics.Pusher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{runner: runner, pusher: pusher, logger: logger}
}

// HandleS3 is the Lambda entry point.
func (h *Handler) HandleS3(ctx context.Context, ev events.S3Event) (entity.Response, error) {
	return h.Handle(ctx, FromS3Event(ev)), nil
}

// Handle runs ev and builds the response.
// An invalid event makes no external call at all, so metrics are not pushed
// for it.
func (h *Handler) Handle(ctx context.Context, ev entity.TriggerEvent) entity.Response {
	result, err := h.runner.Run(ctx, ev)
	if common.CodeOf(err) != common.CodeInvalidEvent {
		h.push(ctx)
	}
	if err != nil {
		file := "unknown"
		if len(ev.Records) > 0 && ev.Records[0].Key != "" {
			file = ev.Records[0].Key
		}
		return h.respond(http.StatusInternalServerError, entity.FailureBody{Error: err.Error(), File: file})
	}
	return h.respond(http.StatusOK, entity.SuccessBody{
		Message: fmt.Sprintf("Proses untuk file %s berhasil diselesaikan!", result.FileProcessed),
		Results: result,
	})
}

func (h *Handler) push(ctx context.Context) {
	if err := h.pusher.Push(ctx); err != nil {
		h.logger.Warn("metrics.push.failed", "error", err)
	}
}

func (h *Handler) respond(status int, body any) entity.Response {
	raw, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("handler.encode.failed", "error", err)
		return entity.Response{StatusCode: http.StatusInternalServerError, Body: `{"error":"could not encode response","file":"unknown"}`}
	}
	return entity.Response{StatusCode: status, Body: string(raw)}
}

// FromS3Event converts the runtime event. Object keys arrive form-encoded
// ("+" for space) and are decoded; a key that fails to decode is kept verbatim.
func FromS3Event(ev events.S3Event) entity.TriggerEvent {
	out := entity.TriggerEvent{Records: make([]entity.ObjectRef, 0, len(ev.Records))}
	for _, rec := range ev.Records {
		out.Records = append(out.Records, entity.ObjectRef{
			Bucket: rec.S3.Bucket.Name,
			Key:    DecodeKey(rec.S3.Object.Key),
		})
	}
	return out
}

// DecodeKey undoes the form encoding of an event object key.
func DecodeKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}
