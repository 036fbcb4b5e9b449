package store

import (
	"context"

	"storefront-client/internal/apperr"
	"storefront-client/internal/cache"
	"storefront-client/internal/models"
	"storefront-client/internal/retry"
	"storefront-client/internal/util"
)

// CategoryStore is the observable state container for product categories.
// Categories are stable and rarely mutated client-side, so it carries no
// recently-viewed tracking.
type CategoryStore struct {
	gw      Gateway
	cache   *cache.Cache[models.Category]
	coord   *Coordinator
	applier *Applier[models.Category]
}

// NewCategoryStore creates a category store backed by the given gateway.
func NewCategoryStore(gw Gateway, policy retry.Policy) *CategoryStore {
	c := cache.New[models.Category]()
	return &CategoryStore{
		gw:      gw,
		cache:   c,
		coord:   NewCoordinator("categories", policy),
		applier: NewApplier("categories", c),
	}
}

// Load fetches all categories into the cache.
func (s *CategoryStore) Load(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "CategoryStore.Load")
	defer span.End()

	return s.coord.Run(ctx, "all", func(ctx context.Context) (func(), error) {
		var categories []models.Category
		if err := s.gw.List(ctx, collectionCategories, &categories); err != nil {
			return nil, err
		}
		return func() { s.cache.ReplaceAll(categories) }, nil
	})
}

// Categories returns the cached collection.
func (s *CategoryStore) Categories() []models.Category { return s.cache.All() }

// Find returns a cached category by id without suspending.
func (s *CategoryStore) Find(id int64) (models.Category, bool) { return s.cache.Find(id) }

// Stale reports whether no successful fetch has completed yet.
func (s *CategoryStore) Stale() bool { return s.cache.Stale() }

// Count returns the cached collection size.
func (s *CategoryStore) Count() int { return s.cache.Len() }

// Select focuses a category, fetching it when it is not cached.
func (s *CategoryStore) Select(ctx context.Context, id int64) (models.Category, error) {
	if c, ok := s.cache.Select(id); ok {
		return c, nil
	}
	var c models.Category
	if err := s.gw.Get(ctx, collectionCategories, id, &c); err != nil {
		return models.Category{}, err
	}
	s.cache.Upsert(c)
	s.cache.Select(c.ID)
	return c, nil
}

// Selected returns the focused category, if any.
func (s *CategoryStore) Selected() (models.Category, bool) { return s.cache.Selected() }

// State returns the fetch state and any carried message.
func (s *CategoryStore) State() (FetchState, string) { return s.coord.State() }

// Retry acknowledges an unavailable cache and refetches it.
func (s *CategoryStore) Retry(ctx context.Context) error {
	s.coord.Retry()
	return s.Load(ctx)
}

// Create adds a category optimistically and confirms it against the server.
func (s *CategoryStore) Create(ctx context.Context, c models.Category) (models.Category, error) {
	if c.Name == "" {
		return models.Category{}, apperr.New(apperr.KindValidation, "category name is required")
	}

	c.ID = s.applier.TempID()
	intentID := s.applier.Stage(MutationCreate, c)

	body := c
	body.ID = 0
	var created models.Category
	if err := s.gw.Create(ctx, collectionCategories, body, &created); err != nil {
		return models.Category{}, s.applier.Confirm(intentID, nil, err)
	}
	if err := s.applier.Confirm(intentID, &created, nil); err != nil {
		return models.Category{}, err
	}
	return created, nil
}

// Update replaces a category optimistically and confirms it.
func (s *CategoryStore) Update(ctx context.Context, c models.Category) (models.Category, error) {
	if c.Name == "" {
		return models.Category{}, apperr.New(apperr.KindValidation, "category name is required")
	}

	intentID := s.applier.Stage(MutationUpdate, c)

	body := c
	body.ID = 0
	var updated models.Category
	if err := s.gw.Patch(ctx, collectionCategories, c.ID, body, &updated); err != nil {
		return models.Category{}, s.applier.Confirm(intentID, nil, err)
	}
	if err := s.applier.Confirm(intentID, &updated, nil); err != nil {
		return models.Category{}, err
	}
	return updated, nil
}

// Delete removes a category optimistically and confirms the removal.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	intentID := s.applier.StageDelete(id)
	err := s.gw.Delete(ctx, collectionCategories, id)
	return s.applier.Confirm(intentID, nil, err)
}
