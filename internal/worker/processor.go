// Package worker runs the asynchronous side of the pipeline: dequeued
// shorten tasks flow through the shortening engine, the title fetcher,
// and the reply dispatcher, with retry-with-backoff for transient
// failures.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serroba/s8l/internal/line"
	"github.com/serroba/s8l/internal/messaging"
	"github.com/serroba/s8l/internal/shortener"
	"go.uber.org/zap"
)

// TitleFetcher retrieves a page title, or "" when it cannot.
type TitleFetcher interface {
	Fetch(ctx context.Context, url string) string
}

// Replier sends messages back over the inbound channel.
type Replier interface {
	Reply(ctx context.Context, replyToken string, messages []line.Message) error
}

// Shortener is the engine contract the processor depends on.
type Shortener interface {
	Shorten(ctx context.Context, rawURL string) (*shortener.ShortLink, error)
}

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {}, "sup": {},
}

var helpCommands = map[string]struct{}{
	"help": {}, "usage": {}, "?": {},
}

// Processor executes one shorten task at a time: shorten, fetch title,
// reply. Failures are classified per the error taxonomy; only
// transient ones are re-enqueued, carrying the attempt counter, up to
// the policy ceiling.
type Processor struct {
	engine  Shortener
	repo    shortener.Repository
	titles  TitleFetcher
	replier Replier
	requeue messaging.Publish[ShortenTask]
	policy  RetryPolicy
	baseURL string
	logger  *zap.Logger

	// wait blocks for the backoff pacing; tests swap it out.
	wait func(ctx context.Context, d time.Duration)
}

// NewProcessor creates a task processor.
func NewProcessor(
	engine Shortener,
	repo shortener.Repository,
	titles TitleFetcher,
	replier Replier,
	requeue messaging.Publish[ShortenTask],
	policy RetryPolicy,
	baseURL string,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		engine:  engine,
		repo:    repo,
		titles:  titles,
		replier: replier,
		requeue: requeue,
		policy:  policy,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		wait: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()

			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		},
	}
}

// Handle processes one task. A nil return means the task reached a
// final state here or was handed off for a later attempt; a non-nil
// return is a terminal failure worth logging upstream.
func (p *Processor) Handle(ctx context.Context, task *ShortenTask) error {
	// Re-enqueued tasks carry their backoff as a timestamp; pace here
	// instead of holding the retry in a timer that dies with the
	// process.
	if delay := time.Until(task.NotBefore); delay > 0 {
		p.wait(ctx, delay)
	}

	link, err := p.engine.Shorten(ctx, task.Text)
	if err != nil {
		if errors.Is(err, shortener.ErrInvalidURL) {
			// Bad input stays bad on retry; answer with guidance and stop.
			return p.reply(ctx, task, []line.Message{line.TextMessage(p.guidanceFor(task.Text))})
		}

		// Store unavailable or code space exhausted; worth another attempt.
		p.retryOrGiveUp(task, err)

		return nil
	}

	p.backfillTitle(ctx, link)

	shortURL := fmt.Sprintf("%s/%s", p.baseURL, link.Code)
	messages := []line.Message{
		line.TextMessage(p.successText(shortURL, link.Title)),
		line.ImageMessage(fmt.Sprintf("%s/qr/%s", p.baseURL, link.Code)),
	}

	return p.reply(ctx, task, messages)
}

// backfillTitle attaches a page title to a freshly created record.
// Every failure here degrades silently; shortening already succeeded.
func (p *Processor) backfillTitle(ctx context.Context, link *shortener.ShortLink) {
	if link.Title != "" {
		return
	}

	fetched := p.titles.Fetch(ctx, link.OriginalURL)
	if fetched == "" {
		return
	}

	link.Title = fetched

	if err := p.repo.UpdateTitle(ctx, link.Code, fetched); err != nil {
		p.logger.Warn("title backfill failed",
			zap.String("code", string(link.Code)),
			zap.Error(err),
		)
	}
}

func (p *Processor) reply(ctx context.Context, task *ShortenTask, messages []line.Message) error {
	err := p.replier.Reply(ctx, task.ReplyToken, messages)
	if err == nil {
		return nil
	}

	if line.IsRetryable(err) {
		p.retryOrGiveUp(task, err)

		return nil
	}

	return fmt.Errorf("permanent delivery failure: %w", err)
}

// retryOrGiveUp re-enqueues the task with an incremented attempt
// counter and a not-before timestamp, or logs the terminal failure
// when the ceiling is reached. The publish happens before the current
// message is acked, so a queued retry survives worker crashes and
// restarts. No caller is waiting synchronously, so giving up surfaces
// only through the log.
func (p *Processor) retryOrGiveUp(task *ShortenTask, cause error) {
	if p.policy.Exhausted(task.Attempt) {
		p.logger.Error("task failed terminally",
			zap.Int("attempts", task.Attempt+1),
			zap.Error(cause),
		)

		return
	}

	delay := p.policy.Delay(task.Attempt)

	next := *task
	next.Attempt++
	next.NotBefore = time.Now().Add(delay)

	p.logger.Warn("task re-enqueued",
		zap.Int("attempt", next.Attempt),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)

	if err := p.requeue(&next); err != nil {
		p.logger.Error("failed to re-enqueue task", zap.Error(err))
	}
}

func (p *Processor) successText(shortURL, pageTitle string) string {
	if pageTitle != "" {
		return fmt.Sprintf("Here is your short link:\n%s\n\n%s", shortURL, pageTitle)
	}

	return "Here is your short link:\n" + shortURL
}

func (p *Processor) guidanceFor(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))

	if _, ok := greetings[lowered]; ok {
		return "Hello! Send me any link and I will shorten it for you.\n\nExample: https://www.example.com"
	}

	if _, ok := helpCommands[lowered]; ok {
		return "Send a full URL starting with http:// or https:// and I will reply with a short link and a QR code."
	}

	return "Please send a valid URL (http:// or https://).\n\nExample: https://www.example.com"
}
