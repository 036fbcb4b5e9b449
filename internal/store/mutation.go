package store

import (
	"sync"

	"storefront-client/internal/apperr"
	"storefront-client/internal/cache"
	"storefront-client/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MutationKind tags an optimistic mutation intent.
type MutationKind int

const (
	MutationCreate MutationKind = iota
	MutationUpdate
	MutationDelete
)

func (k MutationKind) String() string {
	switch k {
	case MutationCreate:
		return "create"
	case MutationUpdate:
		return "update"
	case MutationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Intent is one staged mutation awaiting its confirmation.
type Intent[T cache.Record] struct {
	ID       string
	Kind     MutationKind
	TargetID int64
	Next     T
	Prev     T
	HadPrev  bool
}

// Applier applies local mutation intents to a cache immediately, then
// confirms or rolls them back against the gateway response. Staging is
// synchronous and ordered; confirmations are matched back to their intent
// by id, never by arrival order.
type Applier[T cache.Record] struct {
	mu      sync.Mutex
	name    string
	cache   *cache.Cache[T]
	pending map[string]Intent[T]
	tempSeq int64
	logger  *zap.Logger
}

// NewApplier creates an applier for the named cache.
func NewApplier[T cache.Record](name string, c *cache.Cache[T]) *Applier[T] {
	return &Applier[T]{
		name:    name,
		cache:   c,
		pending: make(map[string]Intent[T]),
		logger:  util.GetLogger(),
	}
}

// TempID returns a placeholder id for an optimistic create. Server ids are
// positive, placeholders negative, so the two can never collide.
func (a *Applier[T]) TempID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tempSeq--
	return a.tempSeq
}

// Stage is phase one: the mutation's effect is applied to the cache
// synchronously and reversibly, and the returned intent id identifies it
// for confirmation.
func (a *Applier[T]) Stage(kind MutationKind, rec T) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := rec.Key()
	prev, had := a.cache.Find(id)
	intent := Intent[T]{
		ID:       uuid.New().String(),
		Kind:     kind,
		TargetID: id,
		Next:     rec,
		Prev:     prev,
		HadPrev:  had,
	}

	switch kind {
	case MutationCreate, MutationUpdate:
		a.cache.UpsertPending(rec)
	case MutationDelete:
		a.cache.RemovePending(id)
	}
	a.pending[intent.ID] = intent
	return intent.ID
}

// StageDelete stages an optimistic delete of the record with the given id.
func (a *Applier[T]) StageDelete(id int64) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev, had := a.cache.Find(id)
	intent := Intent[T]{
		ID:       uuid.New().String(),
		Kind:     MutationDelete,
		TargetID: id,
		Prev:     prev,
		HadPrev:  had,
	}
	a.cache.RemovePending(id)
	a.pending[intent.ID] = intent
	return intent.ID
}

// Confirm is phase two: the intent is resolved against the gateway
// outcome. On success the confirmed server record replaces the optimistic
// one. A conflict or not-found means the target no longer exists
// server-side, so the local copy is purged rather than restored. Any other
// failure restores the pre-mutation snapshot.
func (a *Applier[T]) Confirm(intentID string, confirmed *T, opErr error) error {
	a.mu.Lock()
	intent, ok := a.pending[intentID]
	if !ok {
		a.mu.Unlock()
		return apperr.Newf(apperr.KindConflict, "unknown mutation intent %s", intentID)
	}
	delete(a.pending, intentID)
	a.mu.Unlock()

	defer a.cache.ResolvePending(intent.TargetID)

	if opErr == nil {
		if confirmed != nil {
			if (*confirmed).Key() != intent.TargetID {
				// the server assigned the real id; drop the placeholder
				a.cache.Remove(intent.TargetID)
			}
			a.cache.Upsert(*confirmed)
		}
		return nil
	}

	util.OptimisticRollbacksTotal.WithLabelValues(a.name).Inc()

	if apperr.IsConflict(opErr) || apperr.IsNotFound(opErr) {
		a.cache.Remove(intent.TargetID)
		a.logger.Warn("Mutation target gone server-side, local copy invalidated",
			zap.String("cache", a.name),
			zap.String("kind", intent.Kind.String()),
			zap.Int64("id", intent.TargetID))
		return opErr
	}

	switch intent.Kind {
	case MutationCreate:
		a.cache.Remove(intent.TargetID)
	case MutationUpdate, MutationDelete:
		if intent.HadPrev {
			a.cache.Upsert(intent.Prev)
		} else {
			a.cache.Remove(intent.TargetID)
		}
	}
	a.logger.Warn("Optimistic mutation rolled back",
		zap.String("cache", a.name),
		zap.String("kind", intent.Kind.String()),
		zap.Int64("id", intent.TargetID),
		zap.Error(opErr))
	return opErr
}

// PendingCount reports how many staged mutations await confirmation.
func (a *Applier[T]) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
