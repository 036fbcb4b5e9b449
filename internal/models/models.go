package models

import "time"

// Product represents a catalog product. Rating and Reviews are derived
// server-side and read-only from the client's perspective.
type Product struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Discount    float64 `json:"discount"`
	Stock       int     `json:"stock"`
	CategoryID  int64   `json:"categoryId"`
	Image       string  `json:"image"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
}

// Key returns the cache key for the product.
func (p Product) Key() int64 { return p.ID }

// EffectivePrice returns the unit price after the discount percentage is
// applied.
func (p Product) EffectivePrice() float64 {
	return p.Price * (1 - p.Discount/100)
}

// Category represents a product category.
type Category struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Key returns the cache key for the category.
func (c Category) Key() int64 { return c.ID }

// CartLine is one cart entry: a product reference plus a quantity.
// A cart holds at most one line per product.
type CartLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Cart is the server-side cart record for an authenticated user.
type Cart struct {
	ID     int64      `json:"id,omitempty"`
	UserID int64      `json:"userId"`
	Items  []CartLine `json:"items"`
}

// OrderItem is a cart line frozen into an order. UnitPrice is the effective
// product price at submission time and never changes afterwards.
type OrderItem struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// ShippingInfo is a snapshot of the buyer's contact details, copied from
// the profile at submission time rather than referenced.
type ShippingInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// Order represents a placed order. Total always equals the sum of
// UnitPrice*Quantity over Items and is recomputed client-side on creation.
type Order struct {
	ID             int64        `json:"id,omitempty"`
	UserID         int64        `json:"userId"`
	Items          []OrderItem  `json:"items"`
	Total          float64      `json:"totalAmount"`
	Status         string       `json:"status"`
	Shipping       ShippingInfo `json:"shippingDetails"`
	IdempotencyKey string       `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Key returns the cache key for the order.
func (o Order) Key() int64 { return o.ID }

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// CanTransition reports whether an order may move from one status to the
// next. Cancellation is reachable from pending and processing only; shipped
// and delivered orders can never be cancelled.
func CanTransition(from, to string) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusProcessing || to == OrderStatusCancelled
	case OrderStatusProcessing:
		return to == OrderStatusShipped || to == OrderStatusCancelled
	case OrderStatusShipped:
		return to == OrderStatusDelivered
	default:
		return false
	}
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account record. Password is an opaque credential hash
// and must be stripped before the record enters any shared state.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role"`
	Active   bool   `json:"isActive"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	Postal   string `json:"postalCode,omitempty"`
}

// Key returns the cache key for the user.
func (u User) Key() int64 { return u.ID }

// Sanitized returns a copy of the user with the credential stripped.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}

// ShippingSnapshot copies the profile contact fields into a shipping
// snapshot for order submission.
func (u User) ShippingSnapshot() ShippingInfo {
	return ShippingInfo{
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Address:    u.Address,
		City:       u.City,
		PostalCode: u.Postal,
	}
}
