// Package line implements the reply side of the LINE Messaging API:
// sending a response back over the channel an inbound webhook event
// arrived on.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultEndpoint is the LINE reply API endpoint.
	DefaultEndpoint = "https://api.line.me/v2/bot/message/reply"

	// DefaultTimeout bounds a single reply call, independent of any retry backoff.
	DefaultTimeout = 10 * time.Second
)

// Message is one outbound message in a reply.
type Message struct {
	Type               string `json:"type"`
	Text               string `json:"text,omitempty"`
	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
}

// TextMessage builds a text message.
func TextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

// ImageMessage builds an image message from a publicly reachable URL.
func ImageMessage(url string) Message {
	return Message{Type: "image", OriginalContentURL: url, PreviewImageURL: url}
}

// APIError is a non-2xx response from the reply endpoint. Status
// decides whether a retry can help.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line api: status %d: %s", e.Status, e.Body)
}

// Retryable reports whether the failure is transient. Rate limiting
// and server errors are; other client errors (bad token, expired reply
// token) will not improve on retry.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// IsRetryable classifies a reply failure. Network-level errors are
// treated as transient; API errors defer to their status class.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	// Anything that never reached the API (dial errors, timeouts) is
	// worth another attempt.
	return true
}

// Client sends replies through the LINE Messaging API.
type Client struct {
	endpoint     string
	channelToken string
	httpClient   *http.Client
	timeout      time.Duration
	logger       *zap.Logger
}

// NewClient creates a reply client for the given channel access token.
func NewClient(channelToken string, logger *zap.Logger) *Client {
	return &Client{
		endpoint:     DefaultEndpoint,
		channelToken: channelToken,
		httpClient:   &http.Client{},
		timeout:      DefaultTimeout,
		logger:       logger,
	}
}

// NewClientWithEndpoint creates a reply client against a custom
// endpoint, used by tests.
func NewClientWithEndpoint(endpoint, channelToken string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		endpoint:     endpoint,
		channelToken: channelToken,
		httpClient:   httpClient,
		timeout:      DefaultTimeout,
		logger:       logger,
	}
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

// Reply sends messages back over the channel identified by replyToken.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []Message) error {
	payload, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("reply sent", zap.Int("messages", len(messages)))

	return nil
}
