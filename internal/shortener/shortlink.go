package shortener

import (
	"context"
	"errors"
	"time"
)

// Code represents a short link code.
type Code string

// ShortLink represents a shortened URL record.
type ShortLink struct {
	ID          string
	Code        Code
	OriginalURL string
	Title       string // empty when the title fetch degraded or has not run
	ClickCount  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("short link not found")

	// ErrCodeTaken signals a uniqueness violation on the code column.
	ErrCodeTaken = errors.New("short code already taken")

	// ErrURLTaken signals a uniqueness violation on the original URL column.
	// The engine treats it as a lost race, not a failure.
	ErrURLTaken = errors.New("original url already shortened")
)

// Repository defines the storage contract for short links.
//
// Create must rely on the store's uniqueness constraints and report
// which one was violated; that is the only cross-worker synchronization
// point in the system.
type Repository interface {
	Create(ctx context.Context, link *ShortLink) error
	GetByCode(ctx context.Context, code Code) (*ShortLink, error)
	GetByOriginalURL(ctx context.Context, originalURL string) (*ShortLink, error)
	IncrementClicks(ctx context.Context, code Code) error
	UpdateTitle(ctx context.Context, code Code, title string) error
}

// CodeGenerator generates short code candidates. Candidates are not
// guaranteed unique; the engine resolves collisions against the store.
type CodeGenerator func() string
