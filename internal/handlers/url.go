package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/s8l/internal/clicks"
	"github.com/serroba/s8l/internal/messaging"
	"github.com/serroba/s8l/internal/shortener"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// TitleFetcher retrieves a page title, or "" when it cannot.
type TitleFetcher interface {
	Fetch(ctx context.Context, url string) string
}

// Shortener is the engine contract the HTTP surface depends on.
type Shortener interface {
	Shorten(ctx context.Context, rawURL string) (*shortener.ShortLink, error)
}

// URLHandler handles the synchronous shortening API, redirects, and QR
// images.
type URLHandler struct {
	engine       Shortener
	repo         shortener.Repository
	titles       TitleFetcher
	baseURL      string
	publishClick messaging.Publish[clicks.Event]
	logger       *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(
	engine Shortener,
	repo shortener.Repository,
	titles TitleFetcher,
	baseURL string,
	publishClick messaging.Publish[clicks.Event],
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		engine:       engine,
		repo:         repo,
		titles:       titles,
		baseURL:      strings.TrimRight(baseURL, "/"),
		publishClick: publishClick,
		logger:       logger,
	}
}

// CreateShortLink shortens a URL synchronously, bypassing the queue.
func (h *URLHandler) CreateShortLink(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	link, err := h.engine.Shorten(ctx, req.Body.URL)
	if err != nil {
		if errors.Is(err, shortener.ErrInvalidURL) {
			return nil, huma.Error422UnprocessableEntity("invalid url", err)
		}

		h.logger.Error("shorten failed", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to shorten url")
	}

	if link.Title == "" {
		if fetched := h.titles.Fetch(ctx, link.OriginalURL); fetched != "" {
			link.Title = fetched

			if updateErr := h.repo.UpdateTitle(ctx, link.Code, fetched); updateErr != nil {
				h.logger.Warn("title backfill failed",
					zap.String("code", string(link.Code)),
					zap.Error(updateErr),
				)
			}
		}
	}

	resp := &ShortenResponse{Status: http.StatusCreated}
	resp.Body.Code = string(link.Code)
	resp.Body.ShortURL = fmt.Sprintf("%s/%s", h.baseURL, link.Code)
	resp.Body.OriginalURL = link.OriginalURL
	resp.Body.Title = link.Title

	return resp, nil
}

// RedirectToURL resolves a short code and redirects. The click count
// update rides the broker; the redirect never waits for it.
func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	link, err := h.repo.GetByCode(ctx, shortener.Code(req.Code))
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("short link not found")
		}

		h.logger.Error("redirect lookup failed", zap.String("code", req.Code), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to resolve short link")
	}

	meta := RequestMetaFromContext(ctx)
	event := &clicks.Event{
		Code:       req.Code,
		OccurredAt: time.Now(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
	}

	if err = h.publishClick(event); err != nil {
		// A lost increment must never block the redirect.
		h.logger.Error("failed to publish click event",
			zap.String("code", req.Code),
			zap.Error(err),
		)
	}

	resp := &RedirectResponse{Status: http.StatusFound}
	resp.Headers.Location = link.OriginalURL

	return resp, nil
}

var qrSizes = map[string]int{
	"small":  128,
	"medium": 256,
	"large":  512,
}

// QRCode renders a PNG QR code pointing at the short URL.
func (h *URLHandler) QRCode(ctx context.Context, req *QRCodeRequest) (*QRCodeResponse, error) {
	if _, err := h.repo.GetByCode(ctx, shortener.Code(req.Code)); err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("short link not found")
		}

		return nil, huma.Error500InternalServerError("failed to resolve short link")
	}

	size, ok := qrSizes[req.Size]
	if !ok {
		size = qrSizes["medium"]
	}

	png, err := qrcode.Encode(fmt.Sprintf("%s/%s", h.baseURL, req.Code), qrcode.Medium, size)
	if err != nil {
		h.logger.Error("qr encode failed", zap.String("code", req.Code), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to render qr code")
	}

	return &QRCodeResponse{
		ContentType: "image/png",
		Body:        png,
	}, nil
}
