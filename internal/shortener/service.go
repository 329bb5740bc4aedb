package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxCollisionRetries bounds code regeneration when the store
// keeps reporting code collisions. At 6-character cardinality this
// never triggers in practice, but near-exhaustion must fail cleanly
// instead of looping.
const DefaultMaxCollisionRetries = 5

// ErrCodeSpaceExhausted is returned when every candidate code collided
// within the retry ceiling.
var ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")

// Service is the shortening engine. It owns the create-or-fetch
// decision for a submitted URL: normalization, dedup, collision
// retries, and converging concurrent duplicate submissions onto a
// single record.
type Service struct {
	repo         Repository
	generateCode CodeGenerator
	maxRetries   int
	blockedHosts map[string]struct{}
}

// NewService creates a shortening engine. blockedHosts lists hostnames
// that must not be shortened (the service's own domain, to prevent
// recursive short links).
func NewService(repo Repository, generator CodeGenerator, blockedHosts []string) *Service {
	blocked := make(map[string]struct{}, len(blockedHosts))
	for _, h := range blockedHosts {
		blocked[strings.ToLower(h)] = struct{}{}
	}

	return &Service{
		repo:         repo,
		generateCode: generator,
		maxRetries:   DefaultMaxCollisionRetries,
		blockedHosts: blocked,
	}
}

// Shorten returns the short link for rawURL, creating it if necessary.
// Re-submitting a known URL returns the existing record unchanged.
// Invalid input fails with ErrInvalidURL; storage trouble surfaces as
// a wrapped repository error.
func (s *Service) Shorten(ctx context.Context, rawURL string) (*ShortLink, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	if err = s.checkHost(normalized); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByOriginalURL(ctx, normalized)
	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	return s.create(ctx, normalized)
}

func (s *Service) create(ctx context.Context, normalized string) (*ShortLink, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		now := time.Now()
		link := &ShortLink{
			ID:          uuid.NewString(),
			Code:        Code(s.generateCode()),
			OriginalURL: normalized,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err := s.repo.Create(ctx, link)
		if err == nil {
			return link, nil
		}

		if errors.Is(err, ErrCodeTaken) {
			// Candidate collided with an existing code; draw again.
			continue
		}

		if errors.Is(err, ErrURLTaken) {
			// A concurrent request won the insert between dedup check
			// and create. Converge on the winner's record.
			winner, getErr := s.repo.GetByOriginalURL(ctx, normalized)
			if getErr != nil {
				return nil, fmt.Errorf("re-fetch after url conflict: %w", getErr)
			}

			return winner, nil
		}

		return nil, fmt.Errorf("create short link: %w", err)
	}

	return nil, ErrCodeSpaceExhausted
}

func (s *Service) checkHost(normalized string) error {
	u, err := url.Parse(normalized)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidURL, err)
	}

	if _, blocked := s.blockedHosts[strings.ToLower(u.Hostname())]; blocked {
		return fmt.Errorf("%w: refusing to shorten own domain", ErrInvalidURL)
	}

	return nil
}
