package store

import (
	"context"

	"storefront-client/internal/apperr"
	"storefront-client/internal/broker"
	"storefront-client/internal/retry"
	"storefront-client/internal/scratch"
	"storefront-client/internal/util"

	"go.uber.org/zap"
)

// App wires the stores together: catalog caches, the working cart, orders,
// and the session controller that drives cart reconciliation.
type App struct {
	Products   *ProductStore
	Categories *CategoryStore
	Orders     *OrderStore
	Cart       *CartStore
	Session    *SessionController

	logger *zap.Logger
}

// Options configures the app assembly.
type Options struct {
	Gateway  Gateway
	Scratch  scratch.Store
	Retry    retry.Policy
	Activity *broker.ActivityPublisher
}

// NewApp assembles the stores against a single gateway and scratch store.
func NewApp(opts Options) *App {
	policy := opts.Retry
	if policy.MaxAttempts == 0 {
		policy = retry.Default(apperr.IsTransient)
	}

	products := NewProductStore(opts.Gateway, policy)
	categories := NewCategoryStore(opts.Gateway, policy)
	cart := NewCartStore(opts.Gateway, opts.Scratch, policy)
	orders := NewOrderStore(opts.Gateway, products, opts.Activity, policy)
	reconciler := NewReconciler(cart, opts.Activity)
	session := NewSessionController(opts.Gateway, opts.Scratch, reconciler, orders, opts.Activity)

	return &App{
		Products:   products,
		Categories: categories,
		Orders:     orders,
		Cart:       cart,
		Session:    session,
		logger:     util.GetLogger(),
	}
}

// Start restores the persisted session and warms the catalog caches.
// Catalog load failures are not fatal at startup; consumers observe them
// through each store's fetch state.
func (a *App) Start(ctx context.Context) {
	a.Session.Restore(ctx)

	if err := a.Products.Load(ctx); err != nil {
		a.logger.Warn("Initial product load failed", zap.Error(err))
	}
	if err := a.Categories.Load(ctx); err != nil {
		a.logger.Warn("Initial category load failed", zap.Error(err))
	}
}

// Close flushes any cart write-back still owed to the server.
func (a *App) Close(ctx context.Context) error {
	return a.Cart.Flush(ctx)
}
