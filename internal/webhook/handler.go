package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/s8l/internal/messaging"
	"github.com/serroba/s8l/internal/worker"
	"go.uber.org/zap"
)

// Handler verifies inbound webhook events and dispatches one shorten
// task per candidate URL. It never performs shortening, title fetches,
// or replies itself: the platform enforces a short response-time
// ceiling, so the ingest path only validates and enqueues.
type Handler struct {
	channelSecret string
	publishTask   messaging.Publish[worker.ShortenTask]
	logger        *zap.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(
	channelSecret string,
	publishTask messaging.Publish[worker.ShortenTask],
	logger *zap.Logger,
) *Handler {
	return &Handler{
		channelSecret: channelSecret,
		publishTask:   publishTask,
		logger:        logger,
	}
}

// IngestRequest is the inbound webhook request. The body stays raw:
// the signature covers the exact bytes the platform sent.
type IngestRequest struct {
	Signature string `doc:"Signature over the raw request body" header:"X-Line-Signature"`
	RawBody   []byte
}

// IngestResponse acknowledges acceptance. It is sent before any task
// completes.
type IngestResponse struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Ingest verifies the signature, extracts candidate URLs from text
// message events, and enqueues one task per candidate.
func (h *Handler) Ingest(_ context.Context, req *IngestRequest) (*IngestResponse, error) {
	if !ValidSignature(h.channelSecret, req.RawBody, req.Signature) {
		h.logger.Warn("webhook signature rejected")

		return nil, huma.Error401Unauthorized("invalid signature")
	}

	payload, err := ParsePayload(req.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("malformed payload")
	}

	enqueued := 0

	for i := range payload.Events {
		event := &payload.Events[i]
		if !event.IsTextMessage() {
			continue
		}

		for _, candidate := range ExtractCandidates(event.Message.Text) {
			task := &worker.ShortenTask{
				ReplyToken: event.ReplyToken,
				Text:       candidate,
				ReceivedAt: time.Now(),
			}

			if err := h.publishTask(task); err != nil {
				// The response was not sent yet, so the platform will
				// retry delivery of the whole payload.
				h.logger.Error("failed to enqueue task", zap.Error(err))

				return nil, huma.Error500InternalServerError("failed to enqueue")
			}

			enqueued++
		}
	}

	h.logger.Info("webhook accepted",
		zap.Int("events", len(payload.Events)),
		zap.Int("tasks", enqueued),
	)

	resp := &IngestResponse{}
	resp.Body.Status = "ok"

	return resp, nil
}

// RegisterRoutes registers the webhook endpoint.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/webhook",
		Summary:     "Receive platform webhook events",
		Description: "Verifies the event signature and enqueues shortening tasks. Responds before processing.",
		Tags:        []string{"Webhook"},
		SkipValidateBody: true,
	}, h.Ingest)
}
