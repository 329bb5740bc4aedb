package clicks

import (
	"context"
	"errors"

	"github.com/serroba/s8l/internal/messaging"
	"github.com/serroba/s8l/internal/shortener"
	"go.uber.org/zap"
)

// NewHandler returns the consumer handler that applies a click event
// to the store. Increments are commutative; a lost one is tolerable,
// so failures are logged and never retried past the broker.
func NewHandler(repo shortener.Repository, logger *zap.Logger) messaging.Handler[Event] {
	return func(ctx context.Context, event *Event) error {
		err := repo.IncrementClicks(ctx, shortener.Code(event.Code))
		if err != nil {
			if errors.Is(err, shortener.ErrNotFound) {
				// Link disappeared between redirect and increment; nothing to count.
				logger.Debug("click for unknown code", zap.String("code", event.Code))

				return nil
			}

			return err
		}

		logger.Debug("click recorded", zap.String("code", event.Code))

		return nil
	}
}
