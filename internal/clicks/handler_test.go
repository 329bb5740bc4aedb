package clicks_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/s8l/internal/clicks"
	"github.com/serroba/s8l/internal/shortener"
	"github.com/serroba/s8l/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandler(t *testing.T) {
	t.Run("increments the click counter", func(t *testing.T) {
		repo := store.NewMemoryStore()
		require.NoError(t, repo.Create(context.Background(), &shortener.ShortLink{
			ID:          "id-1",
			Code:        "abc123",
			OriginalURL: "https://example.com",
		}))

		handler := clicks.NewHandler(repo, zap.NewNop())

		err := handler(context.Background(), &clicks.Event{Code: "abc123", OccurredAt: time.Now()})

		require.NoError(t, err)

		link, err := repo.GetByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(1), link.ClickCount)
	})

	t.Run("tolerates clicks for unknown codes", func(t *testing.T) {
		handler := clicks.NewHandler(store.NewMemoryStore(), zap.NewNop())

		err := handler(context.Background(), &clicks.Event{Code: "missing", OccurredAt: time.Now()})

		assert.NoError(t, err)
	})
}
