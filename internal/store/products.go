package store

import (
	"context"
	"strconv"

	"storefront-client/internal/apperr"
	"storefront-client/internal/cache"
	"storefront-client/internal/models"
	"storefront-client/internal/retry"
	"storefront-client/internal/util"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const recentlyViewedSize = 8

// ProductStore is the observable state container for the product catalog.
type ProductStore struct {
	gw      Gateway
	cache   *cache.Cache[models.Product]
	coord   *Coordinator
	applier *Applier[models.Product]
	recent  *lru.Cache[int64, models.Product]
	logger  *zap.Logger
}

// NewProductStore creates a product store backed by the given gateway.
func NewProductStore(gw Gateway, policy retry.Policy) *ProductStore {
	c := cache.New[models.Product]()
	recent, _ := lru.New[int64, models.Product](recentlyViewedSize)
	return &ProductStore{
		gw:      gw,
		cache:   c,
		coord:   NewCoordinator("products", policy),
		applier: NewApplier("products", c),
		recent:  recent,
		logger:  util.GetLogger(),
	}
}

// Load fetches the full catalog into the cache.
func (s *ProductStore) Load(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "ProductStore.Load")
	defer span.End()

	return s.coord.Run(ctx, "all", func(ctx context.Context) (func(), error) {
		var products []models.Product
		if err := s.gw.List(ctx, collectionProducts, &products); err != nil {
			return nil, err
		}
		return func() { s.cache.ReplaceAll(products) }, nil
	})
}

// LoadByCategory fetches the products of one category as the working
// collection. Rapid navigation between categories is safe: a superseded
// response is discarded by the coordinator.
func (s *ProductStore) LoadByCategory(ctx context.Context, categoryID int64) error {
	ctx, span := util.StartSpan(ctx, "ProductStore.LoadByCategory")
	defer span.End()

	key := "category:" + strconv.FormatInt(categoryID, 10)
	return s.coord.Run(ctx, key, func(ctx context.Context) (func(), error) {
		var products []models.Product
		if err := s.gw.Filter(ctx, collectionProducts, "categoryId", strconv.FormatInt(categoryID, 10), &products); err != nil {
			return nil, err
		}
		return func() { s.cache.ReplaceAll(products) }, nil
	})
}

// Products returns the cached working collection.
func (s *ProductStore) Products() []models.Product { return s.cache.All() }

// Find returns a cached product by id without suspending.
func (s *ProductStore) Find(id int64) (models.Product, bool) { return s.cache.Find(id) }

// Stale reports whether no successful catalog fetch has completed yet.
func (s *ProductStore) Stale() bool { return s.cache.Stale() }

// Count returns the cached collection size.
func (s *ProductStore) Count() int { return s.cache.Len() }

// Select focuses a product for a detail view, fetching it when it is not
// cached. A not-found is terminal for this lookup only and leaves the
// cache-wide fetch state untouched.
func (s *ProductStore) Select(ctx context.Context, id int64) (models.Product, error) {
	if p, ok := s.cache.Select(id); ok {
		s.recent.Add(id, p)
		return p, nil
	}

	var p models.Product
	if err := s.gw.Get(ctx, collectionProducts, id, &p); err != nil {
		return models.Product{}, err
	}
	s.cache.Upsert(p)
	s.cache.Select(p.ID)
	s.recent.Add(p.ID, p)
	return p, nil
}

// Selected returns the focused product, if any.
func (s *ProductStore) Selected() (models.Product, bool) { return s.cache.Selected() }

// RecentlyViewed returns the most recently selected products, newest first.
func (s *ProductStore) RecentlyViewed() []models.Product {
	keys := s.recent.Keys()
	out := make([]models.Product, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if p, ok := s.recent.Get(keys[i]); ok {
			out = append(out, p)
		}
	}
	return out
}

// State returns the fetch state and any carried message.
func (s *ProductStore) State() (FetchState, string) { return s.coord.State() }

// Retry acknowledges an unavailable catalog and refetches it.
func (s *ProductStore) Retry(ctx context.Context) error {
	s.coord.Retry()
	return s.Load(ctx)
}

// Create adds a product optimistically and confirms it against the server.
func (s *ProductStore) Create(ctx context.Context, p models.Product) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductStore.Create")
	defer span.End()

	if err := validateProduct(p); err != nil {
		return models.Product{}, err
	}

	p.ID = s.applier.TempID()
	intentID := s.applier.Stage(MutationCreate, p)

	body := p
	body.ID = 0
	var created models.Product
	if err := s.gw.Create(ctx, collectionProducts, body, &created); err != nil {
		return models.Product{}, s.applier.Confirm(intentID, nil, err)
	}
	if err := s.applier.Confirm(intentID, &created, nil); err != nil {
		return models.Product{}, err
	}
	s.logger.Info("Product created", zap.Int64("product_id", created.ID))
	return created, nil
}

// Update replaces a product optimistically and confirms it against the
// server. A conflict or not-found invalidates the local copy.
func (s *ProductStore) Update(ctx context.Context, p models.Product) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductStore.Update")
	defer span.End()

	if err := validateProduct(p); err != nil {
		return models.Product{}, err
	}

	intentID := s.applier.Stage(MutationUpdate, p)

	body := p
	body.ID = 0
	var updated models.Product
	if err := s.gw.Patch(ctx, collectionProducts, p.ID, body, &updated); err != nil {
		return models.Product{}, s.applier.Confirm(intentID, nil, err)
	}
	if err := s.applier.Confirm(intentID, &updated, nil); err != nil {
		return models.Product{}, err
	}
	return updated, nil
}

// Delete removes a product optimistically and confirms the removal.
func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "ProductStore.Delete")
	defer span.End()

	intentID := s.applier.StageDelete(id)
	err := s.gw.Delete(ctx, collectionProducts, id)
	return s.applier.Confirm(intentID, nil, err)
}

func validateProduct(p models.Product) error {
	if p.Name == "" {
		return apperr.New(apperr.KindValidation, "product name is required")
	}
	if p.Price < 0 {
		return apperr.New(apperr.KindValidation, "product price must be non-negative")
	}
	if p.Discount < 0 || p.Discount > 100 {
		return apperr.New(apperr.KindValidation, "product discount must be between 0 and 100")
	}
	if p.Stock < 0 {
		return apperr.New(apperr.KindValidation, "product stock must be non-negative")
	}
	return nil
}
