package store_test

import (
	"context"
	"testing"

	"github.com/serroba/s8l/internal/shortener"
	"github.com/serroba/s8l/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLink(id, code, url string) *shortener.ShortLink {
	return &shortener.ShortLink{
		ID:          id,
		Code:        shortener.Code(code),
		OriginalURL: url,
	}
}

func TestMemoryStore_Create(t *testing.T) {
	t.Run("creates a link", func(t *testing.T) {
		s := store.NewMemoryStore()

		err := s.Create(context.Background(), newLink("id-1", "abc123", "https://example.com"))

		require.NoError(t, err)
	})

	t.Run("rejects duplicate code", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Create(context.Background(), newLink("id-1", "abc123", "https://example.com"))

		err := s.Create(context.Background(), newLink("id-2", "abc123", "https://other.com"))

		assert.ErrorIs(t, err, shortener.ErrCodeTaken)
	})

	t.Run("rejects duplicate original url", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Create(context.Background(), newLink("id-1", "abc123", "https://example.com"))

		err := s.Create(context.Background(), newLink("id-2", "xyz789", "https://example.com"))

		assert.ErrorIs(t, err, shortener.ErrURLTaken)
	})

	t.Run("reports url conflict before code conflict", func(t *testing.T) {
		// Both constraints violated at once happens when the same
		// submission raced itself; the engine must see the url
		// conflict to converge instead of regenerating codes.
		s := store.NewMemoryStore()
		_ = s.Create(context.Background(), newLink("id-1", "abc123", "https://example.com"))

		err := s.Create(context.Background(), newLink("id-2", "abc123", "https://example.com"))

		assert.ErrorIs(t, err, shortener.ErrURLTaken)
	})
}

func TestMemoryStore_Get(t *testing.T) {
	t.Run("finds by code and by original url", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Create(context.Background(), newLink("id-1", "abc123", "https://example.com"))

		byCode, err := s.GetByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "id-1", byCode.ID)

		byURL, err := s.GetByOriginalURL(context.Background(), "https://example.com")
		require.NoError(t, err)
		assert.Equal(t, "id-1", byURL.ID)
	})

	t.Run("returns ErrNotFound for unknown keys", func(t *testing.T) {
		s := store.NewMemoryStore()

		_, err := s.GetByCode(context.Background(), "missing")
		assert.ErrorIs(t, err, shortener.ErrNotFound)

		_, err = s.GetByOriginalURL(context.Background(), "https://missing.example")
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("returned links are copies", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Create(context.Background(), newLink("id-1", "abc123", "https://example.com"))

		link, _ := s.GetByCode(context.Background(), "abc123")
		link.Title = "mutated"

		again, _ := s.GetByCode(context.Background(), "abc123")
		assert.Empty(t, again.Title)
	})
}

func TestMemoryStore_IncrementClicks(t *testing.T) {
	t.Run("increments the counter", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Create(context.Background(), newLink("id-1", "abc123", "https://example.com"))

		require.NoError(t, s.IncrementClicks(context.Background(), "abc123"))
		require.NoError(t, s.IncrementClicks(context.Background(), "abc123"))

		link, _ := s.GetByCode(context.Background(), "abc123")
		assert.Equal(t, int64(2), link.ClickCount)
	})

	t.Run("returns ErrNotFound for unknown code", func(t *testing.T) {
		s := store.NewMemoryStore()

		err := s.IncrementClicks(context.Background(), "missing")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestMemoryStore_UpdateTitle(t *testing.T) {
	t.Run("backfills the title", func(t *testing.T) {
		s := store.NewMemoryStore()
		_ = s.Create(context.Background(), newLink("id-1", "abc123", "https://example.com"))

		require.NoError(t, s.UpdateTitle(context.Background(), "abc123", "Example Domain"))

		link, _ := s.GetByCode(context.Background(), "abc123")
		assert.Equal(t, "Example Domain", link.Title)
	})

	t.Run("returns ErrNotFound for unknown code", func(t *testing.T) {
		s := store.NewMemoryStore()

		err := s.UpdateTitle(context.Background(), "missing", "title")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}
