package store

import (
	"context"
	"sync"

	"storefront-client/internal/apperr"
	"storefront-client/internal/retry"
	"storefront-client/internal/util"

	"go.uber.org/zap"
)

// FetchState is the externally visible state of a cache's fetch machine.
type FetchState string

const (
	FetchIdle    FetchState = "idle"
	FetchPending FetchState = "pending"
	FetchReady   FetchState = "ready"
	FetchFailed  FetchState = "failed"
	// FetchUnavailable is entered after consecutive transport failures.
	// Unlike FetchFailed it blocks automatic fetching until Retry is
	// called explicitly.
	FetchUnavailable FetchState = "unavailable"
)

const defaultMaxNetFailures = 3

// Coordinator orchestrates one logical fetch at a time for a single cache.
// Identical concurrent fetches coalesce onto the in-flight one; a fetch
// with a different key supersedes it, and the superseded response is
// discarded by sequence number so it can never overwrite newer data.
type Coordinator struct {
	mu       sync.Mutex
	name     string
	policy   retry.Policy
	state    FetchState
	message  string
	netFails int
	maxFails int
	seq      uint64
	key      string
	waiters  map[uint64][]chan error
	logger   *zap.Logger
}

// NewCoordinator creates a coordinator for the named cache.
func NewCoordinator(name string, policy retry.Policy) *Coordinator {
	return &Coordinator{
		name:     name,
		policy:   policy,
		state:    FetchIdle,
		maxFails: defaultMaxNetFailures,
		waiters:  make(map[uint64][]chan error),
		logger:   util.GetLogger(),
	}
}

// Run executes one logical fetch identified by key. fetch performs the
// network call and returns a commit closure; Run invokes the closure only
// if the response is still the latest issued for this cache.
func (c *Coordinator) Run(ctx context.Context, key string, fetch func(context.Context) (func(), error)) error {
	c.mu.Lock()
	if c.state == FetchUnavailable {
		c.mu.Unlock()
		return apperr.Newf(apperr.KindNetworkUnreachable,
			"%s cache is unavailable, explicit retry required", c.name)
	}
	if c.state == FetchPending && key == c.key {
		// coalesce onto the in-flight fetch
		ch := make(chan error, 1)
		c.waiters[c.seq] = append(c.waiters[c.seq], ch)
		c.mu.Unlock()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return apperr.Wrap(apperr.KindTimeout, "fetch wait cancelled", ctx.Err())
		}
	}
	c.seq++
	seq := c.seq
	c.key = key
	c.state = FetchPending
	c.mu.Unlock()

	util.FetchesTotal.WithLabelValues(c.name).Inc()

	var commit func()
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var attemptErr error
		commit, attemptErr = fetch(ctx)
		return attemptErr
	})
	return c.finish(seq, commit, err)
}

func (c *Coordinator) finish(seq uint64, commit func(), err error) error {
	c.mu.Lock()
	waiters := c.waiters[seq]
	delete(c.waiters, seq)

	if seq != c.seq {
		// superseded by a newer fetch; the response must not overwrite
		// newer data
		c.mu.Unlock()
		util.StaleResponsesDiscardedTotal.WithLabelValues(c.name).Inc()
		c.logger.Debug("Discarded superseded fetch response",
			zap.String("cache", c.name), zap.Uint64("seq", seq))
		notify(waiters, err)
		return err
	}

	switch {
	case err == nil:
		if commit != nil {
			commit()
		}
		c.state = FetchReady
		c.message = ""
		c.netFails = 0

	case apperr.IsTransient(err):
		c.netFails++
		c.message = err.Error()
		util.FetchFailuresTotal.WithLabelValues(c.name, string(apperr.KindOf(err))).Inc()
		if c.netFails >= c.maxFails {
			if c.state != FetchUnavailable {
				util.CacheUnavailableTotal.WithLabelValues(c.name).Inc()
				c.logger.Error("Cache escalated to unavailable",
					zap.String("cache", c.name), zap.Int("consecutive_failures", c.netFails))
			}
			c.state = FetchUnavailable
		} else {
			c.state = FetchFailed
		}

	default:
		// application-level failure: the fetch resolves with an empty or
		// partial result and a carried message, and the transport failure
		// streak is broken
		c.state = FetchReady
		c.message = err.Error()
		c.netFails = 0
		util.FetchFailuresTotal.WithLabelValues(c.name, string(apperr.KindOf(err))).Inc()
	}
	c.mu.Unlock()

	notify(waiters, err)
	return err
}

func notify(waiters []chan error, err error) {
	for _, ch := range waiters {
		ch <- err
	}
}

// Retry acknowledges the unavailable state and re-arms automatic fetching.
// It is the explicit user-initiated action required to leave
// FetchUnavailable.
func (c *Coordinator) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == FetchUnavailable {
		c.state = FetchIdle
		c.netFails = 0
		c.message = ""
	}
}

// Reset returns the machine to idle and invalidates any in-flight fetch.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.state = FetchIdle
	c.netFails = 0
	c.message = ""
}

// State returns the current fetch state and any carried message.
func (c *Coordinator) State() (FetchState, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.message
}
