package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/s8l/internal/clicks"
	"github.com/serroba/s8l/internal/handlers"
	"github.com/serroba/s8l/internal/shortener"
	"github.com/serroba/s8l/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEngine struct {
	link *shortener.ShortLink
	err  error
}

func (f *fakeEngine) Shorten(context.Context, string) (*shortener.ShortLink, error) {
	return f.link, f.err
}

type fakeTitles struct {
	title string
}

func (f *fakeTitles) Fetch(context.Context, string) string { return f.title }

type urlHandlerFixture struct {
	engine  *fakeEngine
	repo    *store.MemoryStore
	titles  *fakeTitles
	clicked []*clicks.Event
	handler *handlers.URLHandler
}

func newURLHandlerFixture() *urlHandlerFixture {
	f := &urlHandlerFixture{
		engine: &fakeEngine{},
		repo:   store.NewMemoryStore(),
		titles: &fakeTitles{},
	}

	f.handler = handlers.NewURLHandler(
		f.engine,
		f.repo,
		f.titles,
		"https://s8l.xyz/",
		func(event *clicks.Event) error {
			f.clicked = append(f.clicked, event)

			return nil
		},
		zap.NewNop(),
	)

	return f
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var statusErr huma.StatusError
	require.ErrorAs(t, err, &statusErr)

	return statusErr.GetStatus()
}

func shortenReq(url string) *handlers.ShortenRequest {
	req := &handlers.ShortenRequest{}
	req.Body.URL = url

	return req
}

func TestURLHandler_CreateShortLink(t *testing.T) {
	t.Run("creates a short link", func(t *testing.T) {
		f := newURLHandlerFixture()
		f.engine.link = &shortener.ShortLink{
			Code:        "abc123",
			OriginalURL: "https://example.com",
		}

		resp, err := f.handler.CreateShortLink(context.Background(), shortenReq("https://example.com"))

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.Status)
		assert.Equal(t, "abc123", resp.Body.Code)
		assert.Equal(t, "https://s8l.xyz/abc123", resp.Body.ShortURL)
		assert.Equal(t, "https://example.com", resp.Body.OriginalURL)
	})

	t.Run("backfills the title inline", func(t *testing.T) {
		f := newURLHandlerFixture()
		f.engine.link = &shortener.ShortLink{
			ID:          "id-1",
			Code:        "abc123",
			OriginalURL: "https://example.com",
		}
		f.titles.title = "Example Domain"
		require.NoError(t, f.repo.Create(context.Background(), f.engine.link))

		resp, err := f.handler.CreateShortLink(context.Background(), shortenReq("https://example.com"))

		require.NoError(t, err)
		assert.Equal(t, "Example Domain", resp.Body.Title)

		stored, err := f.repo.GetByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "Example Domain", stored.Title)
	})

	t.Run("rejects invalid urls as unprocessable", func(t *testing.T) {
		f := newURLHandlerFixture()
		f.engine.err = shortener.ErrInvalidURL

		_, err := f.handler.CreateShortLink(context.Background(), shortenReq("not a url"))

		assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	})

	t.Run("maps engine failures to a server error", func(t *testing.T) {
		f := newURLHandlerFixture()
		f.engine.err = errors.New("store unavailable")

		_, err := f.handler.CreateShortLink(context.Background(), shortenReq("https://example.com"))

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}

func TestURLHandler_RedirectToURL(t *testing.T) {
	t.Run("redirects and publishes a click event", func(t *testing.T) {
		f := newURLHandlerFixture()
		require.NoError(t, f.repo.Create(context.Background(), &shortener.ShortLink{
			ID:          "id-1",
			Code:        "abc123",
			OriginalURL: "https://example.com",
		}))

		ctx := handlers.ContextWithRequestMeta(context.Background(), handlers.RequestMeta{
			ClientIP:  "203.0.113.9",
			UserAgent: "curl/8.0",
			Referrer:  "https://referrer.example",
		})

		resp, err := f.handler.RedirectToURL(ctx, &handlers.RedirectRequest{Code: "abc123"})

		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.Status)
		assert.Equal(t, "https://example.com", resp.Headers.Location)

		require.Len(t, f.clicked, 1)
		assert.Equal(t, "abc123", f.clicked[0].Code)
		assert.Equal(t, "203.0.113.9", f.clicked[0].ClientIP)
		assert.Equal(t, "curl/8.0", f.clicked[0].UserAgent)
		assert.Equal(t, "https://referrer.example", f.clicked[0].Referrer)
	})

	t.Run("returns 404 for unknown codes", func(t *testing.T) {
		f := newURLHandlerFixture()

		_, err := f.handler.RedirectToURL(context.Background(), &handlers.RedirectRequest{Code: "missing"})

		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
		assert.Empty(t, f.clicked)
	})

	t.Run("still redirects when the click publish fails", func(t *testing.T) {
		repo := store.NewMemoryStore()
		require.NoError(t, repo.Create(context.Background(), &shortener.ShortLink{
			ID:          "id-1",
			Code:        "abc123",
			OriginalURL: "https://example.com",
		}))

		handler := handlers.NewURLHandler(
			&fakeEngine{},
			repo,
			&fakeTitles{},
			"https://s8l.xyz",
			func(*clicks.Event) error { return errors.New("broker down") },
			zap.NewNop(),
		)

		resp, err := handler.RedirectToURL(context.Background(), &handlers.RedirectRequest{Code: "abc123"})

		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.Status)
	})
}

func TestURLHandler_QRCode(t *testing.T) {
	pngMagic := []byte{0x89, 0x50, 0x4E, 0x47}

	t.Run("renders a png", func(t *testing.T) {
		f := newURLHandlerFixture()
		require.NoError(t, f.repo.Create(context.Background(), &shortener.ShortLink{
			ID:          "id-1",
			Code:        "abc123",
			OriginalURL: "https://example.com",
		}))

		resp, err := f.handler.QRCode(context.Background(), &handlers.QRCodeRequest{Code: "abc123"})

		require.NoError(t, err)
		assert.Equal(t, "image/png", resp.ContentType)
		assert.True(t, bytes.HasPrefix(resp.Body, pngMagic))
	})

	t.Run("honors the size parameter", func(t *testing.T) {
		f := newURLHandlerFixture()
		require.NoError(t, f.repo.Create(context.Background(), &shortener.ShortLink{
			ID:          "id-1",
			Code:        "abc123",
			OriginalURL: "https://example.com",
		}))

		small, err := f.handler.QRCode(context.Background(), &handlers.QRCodeRequest{Code: "abc123", Size: "small"})
		require.NoError(t, err)

		large, err := f.handler.QRCode(context.Background(), &handlers.QRCodeRequest{Code: "abc123", Size: "large"})
		require.NoError(t, err)

		assert.Less(t, len(small.Body), len(large.Body))
	})

	t.Run("returns 404 for unknown codes", func(t *testing.T) {
		f := newURLHandlerFixture()

		_, err := f.handler.QRCode(context.Background(), &handlers.QRCodeRequest{Code: "missing"})

		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})
}
