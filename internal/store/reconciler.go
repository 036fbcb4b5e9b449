package store

import (
	"context"

	"storefront-client/internal/broker"
	"storefront-client/internal/util"

	"go.uber.org/zap"
)

// Reconciler migrates the working cart across the anonymous/authenticated
// boundary so that exactly one cart is authoritative at any instant.
type Reconciler struct {
	cart     *CartStore
	activity *broker.ActivityPublisher
	logger   *zap.Logger
}

// NewReconciler creates a reconciler for the given cart store.
func NewReconciler(cart *CartStore, activity *broker.ActivityPublisher) *Reconciler {
	return &Reconciler{
		cart:     cart,
		activity: activity,
		logger:   util.GetLogger(),
	}
}

// OnLogin merges the guest working set into the authenticated user's
// server-side cart. Quantities for the same product add; they are never
// overwritten or taken as the maximum. Stock limits are not enforced here,
// only at checkout. Once the merged cart is the server's, the guest
// snapshot is cleared.
func (r *Reconciler) OnLogin(ctx context.Context, userID int64) error {
	ctx, span := util.StartSpan(ctx, "Reconciler.OnLogin")
	defer span.End()

	server, guestLines, err := r.cart.attachSession(ctx, userID)
	if err != nil {
		r.logger.Error("Cart reconciliation failed",
			zap.Int64("user_id", userID), zap.Error(err))
		return err
	}

	util.CartMergesTotal.Inc()
	r.logger.Info("Cart reconciled",
		zap.Int64("user_id", userID),
		zap.Int64("cart_id", server.ID),
		zap.Int("guest_lines", guestLines),
		zap.Int("merged_lines", len(server.Items)))
	r.activity.CartReconciled(ctx, userID, server.ID, guestLines, len(server.Items))
	return nil
}

// OnLogout discards the authenticated cart and restores the guest
// snapshot from the scratch store, empty if none exists.
func (r *Reconciler) OnLogout() {
	r.cart.detachSession()
}
