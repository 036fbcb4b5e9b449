package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront-client/internal/apperr"
	"storefront-client/internal/models"
	"storefront-client/internal/scratch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartStoreAddMergesQuantities(t *testing.T) {
	cart := NewCartStore(newFakeGateway(), scratch.NewMemoryStore(), testPolicy())

	require.NoError(t, cart.Add(context.Background(), 1, 2))
	require.NoError(t, cart.Add(context.Background(), 1, 3))
	require.NoError(t, cart.Add(context.Background(), 2, 1))

	assert.Equal(t, 5, cart.Quantity(1))
	assert.Equal(t, 6, cart.TotalItems())
	assert.Len(t, cart.Lines(), 2, "one line per product")
}

func TestCartStoreAddRejectsNonPositiveQuantity(t *testing.T) {
	cart := NewCartStore(newFakeGateway(), scratch.NewMemoryStore(), testPolicy())

	err := cart.Add(context.Background(), 1, 0)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, cart.TotalItems())
}

func TestCartStoreSetQuantityZeroRemovesLine(t *testing.T) {
	cart := NewCartStore(newFakeGateway(), scratch.NewMemoryStore(), testPolicy())

	require.NoError(t, cart.Add(context.Background(), 1, 2))
	require.NoError(t, cart.SetQuantity(context.Background(), 1, 0))

	assert.Zero(t, cart.Quantity(1))
	assert.Empty(t, cart.Lines())
}

func TestCartStoreGuestSnapshotSurvivesRestart(t *testing.T) {
	sc := scratch.NewMemoryStore()

	cart := NewCartStore(newFakeGateway(), sc, testPolicy())
	require.NoError(t, cart.Add(context.Background(), 1, 2))
	require.NoError(t, cart.Add(context.Background(), 3, 1))

	// a new store over the same scratch backend sees the same cart
	restarted := NewCartStore(newFakeGateway(), sc, testPolicy())
	assert.Equal(t, 2, restarted.Quantity(1))
	assert.Equal(t, 1, restarted.Quantity(3))
}

func TestCartStoreDiscardsUnreadableSnapshot(t *testing.T) {
	sc := scratch.NewMemoryStore()
	sc.Set("guest-cart", []byte("not json"))

	cart := NewCartStore(newFakeGateway(), sc, testPolicy())
	assert.Zero(t, cart.TotalItems())
	_, ok := sc.Get("guest-cart")
	assert.False(t, ok, "the unreadable snapshot is dropped")
}

func TestCartStoreTotalPrice(t *testing.T) {
	g := newFakeGateway()
	seedCatalog(g)
	products := NewProductStore(g, testPolicy())
	require.NoError(t, products.Load(context.Background()))

	cart := NewCartStore(g, scratch.NewMemoryStore(), testPolicy())
	require.NoError(t, cart.Add(context.Background(), 1, 2)) // 90 each
	require.NoError(t, cart.Add(context.Background(), 2, 1)) // 40
	require.NoError(t, cart.Add(context.Background(), 99, 5))

	total := cart.TotalPrice(products.Find)
	assert.InDelta(t, 220.0, total, 1e-9, "unresolvable products contribute nothing")
}

func TestCartStoreAuthenticatedWriteBack(t *testing.T) {
	g := newFakeGateway()
	g.seed(collectionCart, models.Cart{ID: 10, UserID: 7, Items: nil})

	cart := NewCartStore(g, scratch.NewMemoryStore(), testPolicy())
	_, _, err := cart.attachSession(context.Background(), 7)
	require.NoError(t, err)

	require.NoError(t, cart.Add(context.Background(), 1, 2))

	var server models.Cart
	require.NoError(t, g.Get(context.Background(), collectionCart, 10, &server))
	require.Len(t, server.Items, 1)
	assert.Equal(t, 2, server.Items[0].Quantity)
}

func TestCartStoreSyncFailureIsSurfaced(t *testing.T) {
	g := newFakeGateway()
	g.seed(collectionCart, models.Cart{ID: 10, UserID: 7})

	cart := NewCartStore(g, scratch.NewMemoryStore(), testPolicy())
	_, _, err := cart.attachSession(context.Background(), 7)
	require.NoError(t, err)

	g.failWith(apperr.New(apperr.KindNetworkUnreachable, "connection refused"), 1)
	err = cart.Add(context.Background(), 1, 1)
	require.Error(t, err)

	// the local mutation stands, the failure is visible, and a later flush
	// repairs the server copy
	assert.Equal(t, 1, cart.Quantity(1))
	require.Error(t, cart.SyncError())

	require.NoError(t, cart.Flush(context.Background()))
	assert.NoError(t, cart.SyncError())

	var server models.Cart
	require.NoError(t, g.Get(context.Background(), collectionCart, 10, &server))
	require.Len(t, server.Items, 1)
}

// gatedGateway holds every Patch at the door until the test releases it,
// so overlapping write-backs can be sequenced deterministically.
type gatedGateway struct {
	*fakeGateway
	mu      sync.Mutex
	gating  bool
	entered chan struct{}
	release chan struct{}
}

func newGatedGateway(g *fakeGateway) *gatedGateway {
	return &gatedGateway{
		fakeGateway: g,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedGateway) gate() {
	g.mu.Lock()
	g.gating = true
	g.mu.Unlock()
}

func (g *gatedGateway) Patch(ctx context.Context, collection string, id int64, body, out interface{}) error {
	g.mu.Lock()
	gating := g.gating
	g.mu.Unlock()
	if gating {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.fakeGateway.Patch(ctx, collection, id, body, out)
}

func TestCartStoreOverlappingWriteBacksKeepNewestLines(t *testing.T) {
	fg := newFakeGateway()
	fg.seed(collectionCart, models.Cart{ID: 10, UserID: 7})
	g := newGatedGateway(fg)

	cart := NewCartStore(g, scratch.NewMemoryStore(), testPolicy())
	_, _, err := cart.attachSession(context.Background(), 7)
	require.NoError(t, err)

	g.gate()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, cart.Add(context.Background(), 1, 1))
	}()
	<-g.entered

	// a second mutation lands while the first write-back is in flight
	go func() {
		defer wg.Done()
		assert.NoError(t, cart.Add(context.Background(), 2, 1))
	}()
	for cart.Quantity(2) != 1 {
		time.Sleep(time.Millisecond)
	}

	g.release <- struct{}{}
	<-g.entered
	g.release <- struct{}{}
	wg.Wait()

	// the server cart must hold both lines; the earlier write-back must
	// not clobber the later mutation
	var server models.Cart
	require.NoError(t, fg.Get(context.Background(), collectionCart, 10, &server))
	assert.ElementsMatch(t, []models.CartLine{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
	}, server.Items)
	assert.NoError(t, cart.SyncError())
}

func TestCartStoreFlushNoopWhenClean(t *testing.T) {
	g := newFakeGateway()
	cart := NewCartStore(g, scratch.NewMemoryStore(), testPolicy())

	require.NoError(t, cart.Flush(context.Background()))
	assert.Zero(t, g.callCount("patch"))
}
