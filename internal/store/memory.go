package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/s8l/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
// It enforces the same uniqueness semantics as the Postgres store so
// engine collision and race behavior can be exercised without a
// database.
type MemoryStore struct {
	mu     sync.RWMutex
	byCode map[shortener.Code]*shortener.ShortLink
	byURL  map[string]*shortener.ShortLink
}

// NewMemoryStore creates a new in-memory short link store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode: make(map[shortener.Code]*shortener.ShortLink),
		byURL:  make(map[string]*shortener.ShortLink),
	}
}

func (m *MemoryStore) Create(_ context.Context, link *shortener.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byURL[link.OriginalURL]; exists {
		return shortener.ErrURLTaken
	}

	if _, exists := m.byCode[link.Code]; exists {
		return shortener.ErrCodeTaken
	}

	stored := *link
	m.byCode[stored.Code] = &stored
	m.byURL[stored.OriginalURL] = &stored

	return nil
}

func (m *MemoryStore) GetByCode(_ context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.byCode[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	copied := *link

	return &copied, nil
}

func (m *MemoryStore) GetByOriginalURL(_ context.Context, originalURL string) (*shortener.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.byURL[originalURL]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	copied := *link

	return &copied, nil
}

func (m *MemoryStore) IncrementClicks(_ context.Context, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byCode[code]
	if !ok {
		return shortener.ErrNotFound
	}

	link.ClickCount++
	link.UpdatedAt = time.Now()

	return nil
}

func (m *MemoryStore) UpdateTitle(_ context.Context, code shortener.Code, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byCode[code]
	if !ok {
		return shortener.ErrNotFound
	}

	link.Title = title
	link.UpdatedAt = time.Now()

	return nil
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
