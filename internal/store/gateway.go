// Package store implements the client-side state synchronization layer:
// observable state containers that cache server-fetched collections, apply
// optimistic mutations, reconcile the guest cart at the session boundary
// and degrade visibly under network failure.
package store

import "context"

// Collection names on the remote data source
const (
	collectionProducts   = "products"
	collectionCategories = "categories"
	collectionOrders     = "orders"
	collectionCart       = "cart"
	collectionUsers      = "users"
)

// Gateway is the slice of the REST resource gateway consumed by the state
// containers. Implementations classify every failure into the apperr
// taxonomy before returning it.
type Gateway interface {
	List(ctx context.Context, collection string, out interface{}) error
	Filter(ctx context.Context, collection, field, value string, out interface{}) error
	Get(ctx context.Context, collection string, id int64, out interface{}) error
	Create(ctx context.Context, collection string, body, out interface{}) error
	Patch(ctx context.Context, collection string, id int64, body, out interface{}) error
	Delete(ctx context.Context, collection string, id int64) error
}
