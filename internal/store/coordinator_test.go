package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront-client/internal/apperr"
	"storefront-client/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 1}
}

func TestCoordinatorSuccess(t *testing.T) {
	c := NewCoordinator("test", testPolicy())

	committed := false
	err := c.Run(context.Background(), "all", func(ctx context.Context) (func(), error) {
		return func() { committed = true }, nil
	})

	require.NoError(t, err)
	assert.True(t, committed)
	state, msg := c.State()
	assert.Equal(t, FetchReady, state)
	assert.Empty(t, msg)
}

func TestCoordinatorEscalatesToUnavailable(t *testing.T) {
	c := NewCoordinator("test", testPolicy())

	netErr := apperr.New(apperr.KindNetworkUnreachable, "connection refused")
	fetch := func(ctx context.Context) (func(), error) { return nil, netErr }

	for i := 0; i < 2; i++ {
		require.Error(t, c.Run(context.Background(), "all", fetch))
		state, _ := c.State()
		assert.Equal(t, FetchFailed, state, "failure %d should not yet escalate", i+1)
	}

	require.Error(t, c.Run(context.Background(), "all", fetch))
	state, msg := c.State()
	assert.Equal(t, FetchUnavailable, state)
	assert.NotEmpty(t, msg)

	// once unavailable no fetch runs until an explicit retry
	calls := 0
	err := c.Run(context.Background(), "all", func(ctx context.Context) (func(), error) {
		calls++
		return nil, nil
	})
	require.Error(t, err)
	assert.True(t, apperr.IsTransient(err))
	assert.Zero(t, calls)

	c.Retry()
	state, _ = c.State()
	assert.Equal(t, FetchIdle, state)

	require.NoError(t, c.Run(context.Background(), "all", func(ctx context.Context) (func(), error) {
		return nil, nil
	}))
	state, _ = c.State()
	assert.Equal(t, FetchReady, state)
}

func TestCoordinatorSuccessResetsFailureStreak(t *testing.T) {
	c := NewCoordinator("test", testPolicy())

	netErr := apperr.New(apperr.KindTimeout, "timed out")
	fail := func(ctx context.Context) (func(), error) { return nil, netErr }
	ok := func(ctx context.Context) (func(), error) { return nil, nil }

	require.Error(t, c.Run(context.Background(), "all", fail))
	require.Error(t, c.Run(context.Background(), "all", fail))
	require.NoError(t, c.Run(context.Background(), "all", ok))

	// two more transient failures must not escalate: the streak was broken
	require.Error(t, c.Run(context.Background(), "all", fail))
	require.Error(t, c.Run(context.Background(), "all", fail))
	state, _ := c.State()
	assert.Equal(t, FetchFailed, state)
}

func TestCoordinatorAppErrorResolvesReady(t *testing.T) {
	c := NewCoordinator("test", testPolicy())

	appErr := apperr.New(apperr.KindServerError, "GET products returned 500")
	err := c.Run(context.Background(), "all", func(ctx context.Context) (func(), error) {
		return nil, appErr
	})
	require.Error(t, err)

	state, msg := c.State()
	assert.Equal(t, FetchReady, state)
	assert.Contains(t, msg, "500")
}

func TestCoordinatorCoalescesIdenticalFetches(t *testing.T) {
	c := NewCoordinator("test", testPolicy())

	started := make(chan struct{})
	release := make(chan struct{})
	var fetches int
	var mu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.Run(context.Background(), "all", func(ctx context.Context) (func(), error) {
			mu.Lock()
			fetches++
			mu.Unlock()
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	go func() {
		defer wg.Done()
		_ = c.Run(context.Background(), "all", func(ctx context.Context) (func(), error) {
			mu.Lock()
			fetches++
			mu.Unlock()
			return nil, nil
		})
	}()

	// wait for the second fetch to register as a waiter before releasing
	for {
		c.mu.Lock()
		n := len(c.waiters[c.seq])
		c.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, fetches)
}

func TestCoordinatorDiscardsSupersededResponse(t *testing.T) {
	c := NewCoordinator("test", testPolicy())

	started := make(chan struct{})
	release := make(chan struct{})
	var result string
	var mu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Run(context.Background(), "category:1", func(ctx context.Context) (func(), error) {
			close(started)
			<-release
			return func() {
				mu.Lock()
				result = "category:1"
				mu.Unlock()
			}, nil
		})
	}()
	<-started

	// a different key supersedes the in-flight fetch
	err := c.Run(context.Background(), "category:2", func(ctx context.Context) (func(), error) {
		return func() {
			mu.Lock()
			result = "category:2"
			mu.Unlock()
		}, nil
	})
	require.NoError(t, err)

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "category:2", result, "the superseded response must not overwrite newer data")

	state, _ := c.State()
	assert.Equal(t, FetchReady, state)
}

func TestCoordinatorResetInvalidatesInFlight(t *testing.T) {
	c := NewCoordinator("test", testPolicy())

	started := make(chan struct{})
	release := make(chan struct{})
	committed := false

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Run(context.Background(), "all", func(ctx context.Context) (func(), error) {
			close(started)
			<-release
			return func() { committed = true }, nil
		})
	}()
	<-started

	c.Reset()
	close(release)
	wg.Wait()

	assert.False(t, committed)
	state, _ := c.State()
	assert.Equal(t, FetchIdle, state)
}
