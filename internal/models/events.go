package models

import "time"

// Activity event types
const (
	EventTypeSessionStarted = "SESSION_STARTED"
	EventTypeSessionEnded   = "SESSION_ENDED"
	EventTypeCartReconciled = "CART_RECONCILED"
	EventTypeOrderPlaced    = "ORDER_PLACED"
)

// BaseEvent contains common fields for all activity events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionStartedEvent published when a login succeeds
type SessionStartedEvent struct {
	BaseEvent
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// SessionEndedEvent published on logout
type SessionEndedEvent struct {
	BaseEvent
	UserID int64 `json:"user_id"`
}

// CartReconciledEvent published when the guest cart is merged into the
// server-side cart at login
type CartReconciledEvent struct {
	BaseEvent
	UserID       int64 `json:"user_id"`
	GuestLines   int   `json:"guest_lines"`
	MergedLines  int   `json:"merged_lines"`
	ServerCartID int64 `json:"server_cart_id"`
}

// OrderPlacedEvent published when an order is created
type OrderPlacedEvent struct {
	BaseEvent
	OrderID int64       `json:"order_id"`
	UserID  int64       `json:"user_id"`
	Total   float64     `json:"total"`
	Items   []OrderItem `json:"items"`
}
