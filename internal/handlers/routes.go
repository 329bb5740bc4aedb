package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/s8l/internal/ratelimit"
)

// RegisterRoutes registers the URL shortener routes with per-endpoint
// rate limit configuration.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	// Write path gets strict limits; shortening is abuse-prone.
	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/api/shorten",
		Summary:     "Create short link",
		Description: "Shortens a URL synchronously, bypassing the task queue.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
				},
			},
		},
	}, urlHandler.CreateShortLink)

	// Redirects are high-traffic reads; keep limits loose.
	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL and records a click asynchronously.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, urlHandler.RedirectToURL)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/qr/{code}",
		Summary:     "Short link QR code",
		Description: "Renders a PNG QR code pointing at the short URL.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 120},
				},
			},
		},
	}, urlHandler.QRCode)
}
