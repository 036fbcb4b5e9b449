package worker

import (
	"context"
	"time"

	"storefront-client/internal/store"
	"storefront-client/internal/util"

	"go.uber.org/zap"
)

// CartSyncWorker periodically re-attempts cart write-backs that failed
// against the server, so a transient outage does not strand the user's
// cart in memory.
type CartSyncWorker struct {
	cart     *store.CartStore
	interval time.Duration
	logger   *zap.Logger
}

// NewCartSyncWorker creates a worker flushing the cart at the given interval.
func NewCartSyncWorker(cart *store.CartStore, interval time.Duration) *CartSyncWorker {
	return &CartSyncWorker{
		cart:     cart,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start runs the flush loop until the context is cancelled.
func (w *CartSyncWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cart sync worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Cart sync worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.cart.Flush(ctx); err != nil {
				w.logger.Warn("Cart flush attempt failed", zap.Error(err))
			}
		}
	}
}
