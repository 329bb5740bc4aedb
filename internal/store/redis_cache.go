package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/s8l/internal/shortener"
)

// RedisCacheRepository wraps a Repository with Redis caching for
// redirect reads. Writes go through to the underlying store first;
// cache updates are best-effort.
type RedisCacheRepository struct {
	store  shortener.Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:  store,
		client: client,
		prefix: "link:",
		ttl:    ttl,
	}
}

// Create stores a short link in the underlying store and updates the cache.
func (r *RedisCacheRepository) Create(ctx context.Context, link *shortener.ShortLink) error {
	if err := r.store.Create(ctx, link); err != nil {
		return err
	}

	r.cacheLink(ctx, link)

	return nil
}

// GetByCode retrieves a short link by its code, checking cache first.
func (r *RedisCacheRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	if link, err := r.getFromCache(ctx, code); err == nil {
		return link, nil
	}

	link, err := r.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheLink(ctx, link)

	return link, nil
}

// GetByOriginalURL goes straight to the store: the dedup lookup feeds
// the engine's constraint handling and must not see stale entries.
func (r *RedisCacheRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*shortener.ShortLink, error) {
	return r.store.GetByOriginalURL(ctx, originalURL)
}

// IncrementClicks passes through. The cached copy keeps its stale
// counter until it expires; redirects only need the original URL.
func (r *RedisCacheRepository) IncrementClicks(ctx context.Context, code shortener.Code) error {
	return r.store.IncrementClicks(ctx, code)
}

// UpdateTitle updates the store and drops the cached copy.
func (r *RedisCacheRepository) UpdateTitle(ctx context.Context, code shortener.Code, title string) error {
	if err := r.store.UpdateTitle(ctx, code, title); err != nil {
		return err
	}

	_ = r.client.Del(ctx, r.prefix+string(code)).Err()

	return nil
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	result, err := r.client.HGetAll(ctx, r.prefix+string(code)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, shortener.ErrNotFound
	}

	link := &shortener.ShortLink{
		ID:          result["id"],
		Code:        shortener.Code(result["code"]),
		OriginalURL: result["original_url"],
		Title:       result["title"],
	}

	if ts, ok := result["created_at"]; ok {
		if nanos, parseErr := strconv.ParseInt(ts, 10, 64); parseErr == nil {
			link.CreatedAt = time.Unix(0, nanos)
		}
	}

	return link, nil
}

func (r *RedisCacheRepository) cacheLink(ctx context.Context, link *shortener.ShortLink) {
	pipe := r.client.Pipeline()
	key := r.prefix + string(link.Code)

	pipe.HSet(ctx, key, map[string]interface{}{
		"id":           link.ID,
		"code":         string(link.Code),
		"original_url": link.OriginalURL,
		"title":        link.Title,
		"created_at":   link.CreatedAt.UnixNano(),
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)
