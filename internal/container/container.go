// Package container assembles the application object graph. Each
// *Package function registers one concern with the injector; binaries
// pick the packages they need.
package container

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/s8l/internal/clicks"
	"github.com/serroba/s8l/internal/handlers"
	"github.com/serroba/s8l/internal/health"
	"github.com/serroba/s8l/internal/line"
	"github.com/serroba/s8l/internal/messaging"
	"github.com/serroba/s8l/internal/middleware"
	"github.com/serroba/s8l/internal/ratelimit"
	"github.com/serroba/s8l/internal/shortener"
	"github.com/serroba/s8l/internal/store"
	"github.com/serroba/s8l/internal/title"
	"github.com/serroba/s8l/internal/webhook"
	"github.com/serroba/s8l/internal/worker"
	"go.uber.org/zap"
)

// Options configures the service. humacli fills it from flags and
// SERVICE_-prefixed environment variables for the server binary; the
// worker binary maps its viper config onto it.
type Options struct {
	Port          int    `default:"8888"                          help:"Port to listen on"                        short:"p"`
	BaseURL       string `default:"http://localhost:8888"         help:"Public base URL for short links"`
	ChannelSecret string `help:"Webhook channel secret"`
	ChannelToken  string `help:"Messaging API channel access token"`
	DatabaseURL   string `default:"postgres://localhost:5432/s8l" help:"Postgres connection string"`
	RedisAddr     string `default:"localhost:6379"                help:"Redis server address"                     short:"r"`
	CodeLength    int    `default:"6"                             help:"Length of generated short codes"          short:"c"`
	LogFormat     string `default:"console"                       help:"Log format: console or json"`
}

const (
	cacheTTL      = 10 * time.Minute
	consumerGroup = "s8l-worker"
)

// LoggerPackage registers the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage registers the Redis client shared by the broker
// transport, the cache decorator, and the rate limit store.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: options.RedisAddr,
		}), nil
	})
}

// PostgresPackage registers the pgx connection pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		options := do.MustInvoke[*Options](i)

		pool, err := pgxpool.New(context.Background(), options.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return pool, nil
	})
}

// RepositoryPackage registers the short link repository: Postgres
// behind a Redis read cache.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*store.PostgresStore, error) {
		return store.NewPostgresStore(do.MustInvoke[*pgxpool.Pool](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		pg := do.MustInvoke[*store.PostgresStore](i)
		client := do.MustInvoke[*redis.Client](i)

		return store.NewRedisCacheRepository(pg, client, cacheTTL), nil
	})
}

// EnginePackage registers the shortening engine.
func EnginePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		options := do.MustInvoke[*Options](i)
		repo := do.MustInvoke[shortener.Repository](i)

		generator, err := nanoid.Standard(options.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("code generator: %w", err)
		}

		return shortener.NewService(repo, generator, blockedHosts(options.BaseURL)), nil
	})
}

// RateLimitPackage registers the Redis-backed sliding window limiter.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.SlidingWindowLimiter, error) {
		client := do.MustInvoke[*redis.Client](i)

		defaults := []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 300},
		}

		return ratelimit.NewSlidingWindowLimiter(store.NewRateLimitRedisStore(client), defaults), nil
	})
}

// PublisherPackage registers the broker publisher and the typed
// publish functions used by ingest and the redirect handler.
func PublisherPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: client,
		}, watermill.NopLogger{})
		if err != nil {
			return nil, fmt.Errorf("broker publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[worker.ShortenTask], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[worker.ShortenTask](group.Publisher(), worker.TopicShortenRequested), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[clicks.Event], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[clicks.Event](group.Publisher(), clicks.TopicLinkClicked), nil
	})
}

// SubscriberPackage registers the broker subscriber used by the worker
// binary. The consumer group makes queued tasks durable across worker
// restarts.
func SubscriberPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (message.Subscriber, error) {
		client := do.MustInvoke[*redis.Client](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: consumerGroup,
		}, watermill.NopLogger{})
		if err != nil {
			return nil, fmt.Errorf("broker subscriber: %w", err)
		}

		return subscriber, nil
	})
}

// TitleFetcherPackage registers the page title fetcher.
func TitleFetcherPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*title.Fetcher, error) {
		return title.NewFetcher(do.MustInvoke[*zap.Logger](i)), nil
	})
}

// ReplyPackage registers the messaging platform reply client.
func ReplyPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*line.Client, error) {
		options := do.MustInvoke[*Options](i)

		return line.NewClient(options.ChannelToken, do.MustInvoke[*zap.Logger](i)), nil
	})
}

// HTTPPackage registers the router and the huma API with all routes
// and middlewares.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		api := humachi.New(router, huma.DefaultConfig("s8l", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.RateLimiter(api, do.MustInvoke[*ratelimit.SlidingWindowLimiter](i), logger))

		urlHandler := handlers.NewURLHandler(
			do.MustInvoke[*shortener.Service](i),
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[*title.Fetcher](i),
			options.BaseURL,
			do.MustInvoke[messaging.Publish[clicks.Event]](i),
			logger,
		)

		webhookHandler := webhook.NewHandler(
			options.ChannelSecret,
			do.MustInvoke[messaging.Publish[worker.ShortenTask]](i),
			logger,
		)

		healthHandler := health.NewHandler(
			health.NewRedisChecker(do.MustInvoke[*redis.Client](i)),
			do.MustInvoke[*store.PostgresStore](i),
		)

		handlers.RegisterRoutes(api, urlHandler)
		webhook.RegisterRoutes(api, webhookHandler)
		health.RegisterRoutes(api, healthHandler)

		return api, nil
	})
}

// WorkerPackage registers the task processor and the consumer group
// running the shorten and click pipelines.
func WorkerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*worker.Processor, error) {
		options := do.MustInvoke[*Options](i)

		return worker.NewProcessor(
			do.MustInvoke[*shortener.Service](i),
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[*title.Fetcher](i),
			do.MustInvoke[*line.Client](i),
			do.MustInvoke[messaging.Publish[worker.ShortenTask]](i),
			worker.DefaultRetryPolicy(),
			options.BaseURL,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		subscriber := do.MustInvoke[message.Subscriber](i)
		processor := do.MustInvoke[*worker.Processor](i)
		repo := do.MustInvoke[shortener.Repository](i)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, worker.TopicShortenRequested, processor.Handle, logger))
		group.Add(messaging.NewConsumer(subscriber, clicks.TopicLinkClicked, clicks.NewHandler(repo, logger), logger))

		return group, nil
	})
}

func blockedHosts(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}

	host := u.Hostname()

	return []string{host, "www." + host}
}
