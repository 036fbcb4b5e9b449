package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"storefront-client/internal/apperr"
	"storefront-client/internal/models"
	"storefront-client/internal/retry"
	"storefront-client/internal/scratch"
	"storefront-client/internal/util"

	"go.uber.org/zap"
)

// guestCartKey is the scratch key holding the guest snapshot. The cart
// store is its single writer.
const guestCartKey = "guest-cart"

// cartItemsPatch updates only the items of a server-side cart.
type cartItemsPatch struct {
	Items []models.CartLine `json:"items"`
}

// CartStore is the working cart. While no session exists it is sourced
// from and written through to the scratch store; while a session is active
// it is written back to the server-side cart. Exactly one of the two is
// authoritative at any instant.
type CartStore struct {
	mu      sync.Mutex
	wmu     sync.Mutex // serializes server write-backs so they land in order
	gw      Gateway
	scratch scratch.Store
	policy  retry.Policy
	logger  *zap.Logger

	lines    map[int64]int
	userID   int64
	serverID int64
	dirty    bool
	syncErr  error
}

// NewCartStore creates the cart store and restores the guest snapshot.
func NewCartStore(gw Gateway, sc scratch.Store, policy retry.Policy) *CartStore {
	s := &CartStore{
		gw:      gw,
		scratch: sc,
		policy:  policy,
		logger:  util.GetLogger(),
	}
	s.mu.Lock()
	s.restoreGuestLocked()
	s.mu.Unlock()
	return s
}

func (s *CartStore) restoreGuestLocked() {
	s.lines = make(map[int64]int)
	blob, ok := s.scratch.Get(guestCartKey)
	if !ok {
		return
	}
	var stored []models.CartLine
	if err := json.Unmarshal(blob, &stored); err != nil {
		s.logger.Warn("Discarding unreadable guest cart snapshot", zap.Error(err))
		s.scratch.Remove(guestCartKey)
		return
	}
	for _, line := range stored {
		if line.Quantity > 0 {
			s.lines[line.ProductID] = line.Quantity
		}
	}
}

// Add merges quantity into the product's line. An already-present product
// increments its quantity rather than duplicating the line.
func (s *CartStore) Add(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return apperr.New(apperr.KindValidation, "quantity must be positive")
	}
	s.mu.Lock()
	s.lines[productID] += quantity
	s.mu.Unlock()
	return s.persist(ctx)
}

// SetQuantity pins the product's line to an exact quantity. Zero or less
// removes the line entirely; the cart never holds a line with quantity
// below one.
func (s *CartStore) SetQuantity(ctx context.Context, productID int64, quantity int) error {
	s.mu.Lock()
	if quantity <= 0 {
		delete(s.lines, productID)
	} else {
		s.lines[productID] = quantity
	}
	s.mu.Unlock()
	return s.persist(ctx)
}

// Remove drops the product's line.
func (s *CartStore) Remove(ctx context.Context, productID int64) error {
	return s.SetQuantity(ctx, productID, 0)
}

// Clear empties the cart.
func (s *CartStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.lines = make(map[int64]int)
	s.mu.Unlock()
	return s.persist(ctx)
}

// Lines returns the cart lines ordered by product id.
func (s *CartStore) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Quantity returns the quantity for one product, zero when absent.
func (s *CartStore) Quantity(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[productID]
}

// TotalItems returns the summed quantity across all lines.
func (s *CartStore) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int
	for _, q := range s.lines {
		total += q
	}
	return total
}

// TotalPrice prices the cart at current effective prices; resolve looks up
// products by id. Unresolvable products contribute nothing, matching a
// catalog that has not loaded yet.
func (s *CartStore) TotalPrice(resolve func(int64) (models.Product, bool)) float64 {
	lines := s.Lines()
	var total float64
	for _, line := range lines {
		if p, ok := resolve(line.ProductID); ok {
			total += p.EffectivePrice() * float64(line.Quantity)
		}
	}
	return total
}

// SyncError returns the last cart write-back failure, distinct from any
// catalog load failure because it risks silent loss of the user's cart.
func (s *CartStore) SyncError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncErr
}

// Flush re-attempts a failed authenticated write-back, if one is owed.
func (s *CartStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	owed := s.dirty && s.userID != 0
	s.mu.Unlock()
	if !owed {
		return nil
	}
	return s.persist(ctx)
}

func (s *CartStore) snapshotLocked() []models.CartLine {
	lines := make([]models.CartLine, 0, len(s.lines))
	for id, q := range s.lines {
		lines = append(lines, models.CartLine{ProductID: id, Quantity: q})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

// persist writes the working set to whichever side is authoritative:
// write-through to the scratch store as a guest, write-back to the server
// cart while authenticated. A failed write-back is retried by the policy
// and, if it still fails, surfaced via SyncError rather than dropped.
// Write-backs are serialized and each snapshots the lines only once it
// holds the write lock, so an older snapshot can never land after a newer
// one and silently drop its lines.
func (s *CartStore) persist(ctx context.Context) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	authed := s.userID != 0
	lines := s.snapshotLocked()
	serverID := s.serverID
	s.mu.Unlock()

	if !authed {
		blob, err := json.Marshal(lines)
		if err != nil {
			return fmt.Errorf("failed to encode guest cart: %w", err)
		}
		s.scratch.Set(guestCartKey, blob)
		return nil
	}

	err := s.policy.Do(ctx, func(ctx context.Context) error {
		return s.gw.Patch(ctx, collectionCart, serverID, cartItemsPatch{Items: lines}, nil)
	})

	s.mu.Lock()
	if err != nil {
		s.dirty = true
		s.syncErr = fmt.Errorf("cart write-back failed: %w", err)
		s.mu.Unlock()
		util.CartSyncFailuresTotal.Inc()
		s.logger.Error("Cart write-back failed",
			zap.Int64("cart_id", serverID), zap.Error(err))
		return err
	}
	s.dirty = false
	s.syncErr = nil
	s.mu.Unlock()
	return nil
}

// attachSession switches the authoritative working set to the server-side
// cart: guest lines merge into it additively by product id, the merged
// result becomes the server cart, and the guest snapshot is cleared. It
// returns the server cart and the number of guest lines merged.
func (s *CartStore) attachSession(ctx context.Context, userID int64) (models.Cart, int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	guest := s.snapshotLocked()
	s.mu.Unlock()

	var carts []models.Cart
	if err := s.gw.Filter(ctx, collectionCart, "userId", strconv.FormatInt(userID, 10), &carts); err != nil {
		return models.Cart{}, 0, err
	}

	merged := make(map[int64]int)
	var server models.Cart
	if len(carts) > 0 {
		server = carts[0]
		for _, line := range server.Items {
			if line.Quantity > 0 {
				merged[line.ProductID] += line.Quantity
			}
		}
	}
	for _, line := range guest {
		merged[line.ProductID] += line.Quantity
	}

	items := linesFromMap(merged)
	if len(carts) == 0 {
		body := models.Cart{UserID: userID, Items: items}
		var created models.Cart
		if err := s.gw.Create(ctx, collectionCart, body, &created); err != nil {
			return models.Cart{}, 0, err
		}
		server = created
	} else {
		if err := s.gw.Patch(ctx, collectionCart, server.ID, cartItemsPatch{Items: items}, nil); err != nil {
			return models.Cart{}, 0, err
		}
		server.Items = items
	}

	s.mu.Lock()
	s.userID = userID
	s.serverID = server.ID
	s.lines = merged
	s.dirty = false
	s.syncErr = nil
	s.mu.Unlock()

	s.scratch.Remove(guestCartKey)
	return server, len(guest), nil
}

// detachSession discards the in-memory cart and restores whatever guest
// snapshot currently exists in the scratch store.
func (s *CartStore) detachSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = 0
	s.serverID = 0
	s.dirty = false
	s.syncErr = nil
	s.restoreGuestLocked()
}

func linesFromMap(m map[int64]int) []models.CartLine {
	lines := make([]models.CartLine, 0, len(m))
	for id, q := range m {
		lines = append(lines, models.CartLine{ProductID: id, Quantity: q})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}
