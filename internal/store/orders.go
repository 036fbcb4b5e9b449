package store

import (
	"context"
	"strconv"
	"time"

	"storefront-client/internal/apperr"
	"storefront-client/internal/broker"
	"storefront-client/internal/cache"
	"storefront-client/internal/models"
	"storefront-client/internal/retry"
	"storefront-client/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// statusPatch is the only field a status transition may touch; totals and
// line items are immutable once the order exists.
type statusPatch struct {
	Status string `json:"status"`
}

// OrderStore is the observable state container for orders. It owns order
// creation (price freezing, total computation) and the status state
// machine.
type OrderStore struct {
	gw       Gateway
	products *ProductStore
	cache    *cache.Cache[models.Order]
	coord    *Coordinator
	applier  *Applier[models.Order]
	activity *broker.ActivityPublisher
	logger   *zap.Logger
}

// NewOrderStore creates an order store backed by the given gateway.
func NewOrderStore(gw Gateway, products *ProductStore, activity *broker.ActivityPublisher, policy retry.Policy) *OrderStore {
	c := cache.New[models.Order]()
	return &OrderStore{
		gw:       gw,
		products: products,
		cache:    c,
		coord:    NewCoordinator("orders", policy),
		applier:  NewApplier("orders", c),
		activity: activity,
		logger:   util.GetLogger(),
	}
}

// Load fetches every order, for administration views.
func (s *OrderStore) Load(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "OrderStore.Load")
	defer span.End()

	return s.coord.Run(ctx, "all", func(ctx context.Context) (func(), error) {
		var orders []models.Order
		if err := s.gw.List(ctx, collectionOrders, &orders); err != nil {
			return nil, err
		}
		return func() { s.cache.ReplaceAll(orders) }, nil
	})
}

// LoadForUser fetches the orders owned by one user.
func (s *OrderStore) LoadForUser(ctx context.Context, userID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderStore.LoadForUser")
	defer span.End()

	key := "user:" + strconv.FormatInt(userID, 10)
	return s.coord.Run(ctx, key, func(ctx context.Context) (func(), error) {
		var orders []models.Order
		if err := s.gw.Filter(ctx, collectionOrders, "userId", strconv.FormatInt(userID, 10), &orders); err != nil {
			return nil, err
		}
		return func() { s.cache.ReplaceAll(orders) }, nil
	})
}

// Orders returns the cached collection.
func (s *OrderStore) Orders() []models.Order { return s.cache.All() }

// Find returns a cached order by id without suspending.
func (s *OrderStore) Find(id int64) (models.Order, bool) { return s.cache.Find(id) }

// Stale reports whether no successful fetch has completed yet.
func (s *OrderStore) Stale() bool { return s.cache.Stale() }

// Count returns the cached collection size.
func (s *OrderStore) Count() int { return s.cache.Len() }

// Select focuses an order for a detail view, fetching it when not cached.
func (s *OrderStore) Select(ctx context.Context, id int64) (models.Order, error) {
	if o, ok := s.cache.Select(id); ok {
		return o, nil
	}
	var o models.Order
	if err := s.gw.Get(ctx, collectionOrders, id, &o); err != nil {
		return models.Order{}, err
	}
	s.cache.Upsert(o)
	s.cache.Select(o.ID)
	return o, nil
}

// State returns the fetch state and any carried message.
func (s *OrderStore) State() (FetchState, string) { return s.coord.State() }

// Retry acknowledges an unavailable cache and refetches it.
func (s *OrderStore) Retry(ctx context.Context) error {
	s.coord.Retry()
	return s.Load(ctx)
}

// Reset clears the per-identity order cache, used on logout.
func (s *OrderStore) Reset() {
	s.cache.Clear()
	s.coord.Reset()
}

// Place freezes the cart lines into order items at the product's current
// effective price and submits the order. The total is computed here by
// summation and never taken from any input object.
func (s *OrderStore) Place(ctx context.Context, userID int64, lines []models.CartLine, shipping models.ShippingInfo) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderStore.Place")
	defer span.End()

	if len(lines) == 0 {
		return models.Order{}, apperr.New(apperr.KindValidation, "cannot place an order with an empty cart")
	}

	items := make([]models.OrderItem, 0, len(lines))
	var total float64
	for _, line := range lines {
		if line.Quantity <= 0 {
			return models.Order{}, apperr.Newf(apperr.KindValidation,
				"invalid quantity %d for product %d", line.Quantity, line.ProductID)
		}
		product, ok := s.products.Find(line.ProductID)
		if !ok {
			if err := s.gw.Get(ctx, collectionProducts, line.ProductID, &product); err != nil {
				if apperr.IsNotFound(err) {
					return models.Order{}, apperr.Newf(apperr.KindValidation,
						"product %d is no longer available", line.ProductID)
				}
				return models.Order{}, err
			}
		}
		unit := product.EffectivePrice()
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: unit,
		})
		total += unit * float64(line.Quantity)
	}

	order := models.Order{
		UserID:         userID,
		Items:          items,
		Total:          total,
		Status:         models.OrderStatusPending,
		Shipping:       shipping,
		IdempotencyKey: uuid.New().String(),
		CreatedAt:      time.Now().UTC(),
	}

	order.ID = s.applier.TempID()
	intentID := s.applier.Stage(MutationCreate, order)

	body := order
	body.ID = 0
	var created models.Order
	if err := s.gw.Create(ctx, collectionOrders, body, &created); err != nil {
		return models.Order{}, s.applier.Confirm(intentID, nil, err)
	}
	if err := s.applier.Confirm(intentID, &created, nil); err != nil {
		return models.Order{}, err
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", created.ID),
		zap.Int64("user_id", userID),
		zap.Float64("total", created.Total),
		zap.Int("items", len(created.Items)))
	s.activity.OrderPlaced(ctx, created)
	return created, nil
}

// UpdateStatus applies a status transition. The order's existence is
// re-validated server-side first, so an update against a locally cached
// but already deleted order fails with a conflict and purges the phantom
// copy instead of silently succeeding.
func (s *OrderStore) UpdateStatus(ctx context.Context, id int64, next string) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderStore.UpdateStatus")
	defer span.End()

	var current models.Order
	if err := s.gw.Get(ctx, collectionOrders, id, &current); err != nil {
		if apperr.IsNotFound(err) {
			s.cache.Remove(id)
			return models.Order{}, apperr.Wrap(apperr.KindConflict,
				"order no longer exists server-side", err)
		}
		return models.Order{}, err
	}

	if !models.CanTransition(current.Status, next) {
		return models.Order{}, apperr.Newf(apperr.KindValidation,
			"order %d cannot transition from %s to %s", id, current.Status, next)
	}

	optimistic := current
	optimistic.Status = next
	intentID := s.applier.Stage(MutationUpdate, optimistic)

	var updated models.Order
	if err := s.gw.Patch(ctx, collectionOrders, id, statusPatch{Status: next}, &updated); err != nil {
		return models.Order{}, s.applier.Confirm(intentID, nil, err)
	}
	if err := s.applier.Confirm(intentID, &updated, nil); err != nil {
		return models.Order{}, err
	}

	s.logger.Info("Order status updated",
		zap.Int64("order_id", id),
		zap.String("from", current.Status),
		zap.String("to", next))
	return updated, nil
}

// Cancel cancels an order, permitted from pending or processing only.
func (s *OrderStore) Cancel(ctx context.Context, id int64) (models.Order, error) {
	return s.UpdateStatus(ctx, id, models.OrderStatusCancelled)
}
