package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_fetches_total",
		Help: "Total number of collection fetches per cache",
	}, []string{"cache"})

	FetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_fetch_failures_total",
		Help: "Total number of failed fetches per cache and failure kind",
	}, []string{"cache", "kind"})

	CacheUnavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_cache_unavailable_total",
		Help: "Total number of transitions into the unavailable state",
	}, []string{"cache"})

	StaleResponsesDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_stale_responses_discarded_total",
		Help: "Total number of fetch responses discarded for being superseded",
	}, []string{"cache"})

	OptimisticRollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_optimistic_rollbacks_total",
		Help: "Total number of optimistic mutations rolled back",
	}, []string{"cache"})

	CartMergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_cart_merges_total",
		Help: "Total number of guest cart reconciliations at login",
	})

	CartSyncFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_cart_sync_failures_total",
		Help: "Total number of cart write-backs that exhausted their retries",
	})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_orders_placed_total",
		Help: "Total number of orders placed",
	})

	SessionLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_session_logins_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Latency of gateway requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "collection"})

	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total number of gateway requests by method, collection and outcome",
	}, []string{"method", "collection", "outcome"})
)
