package broker

import (
	"context"
	"fmt"
	"time"

	"storefront-client/internal/models"
	"storefront-client/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityPublisher emits storefront activity events for downstream
// analytics. Publishing is best-effort: failures are logged, never
// propagated into the sync layer. A nil publisher is a no-op, so callers
// do not have to guard every emission site.
type ActivityPublisher struct {
	producer *Producer
}

// NewActivityPublisher creates a new activity publisher.
func NewActivityPublisher(producer *Producer) *ActivityPublisher {
	return &ActivityPublisher{producer: producer}
}

func baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func (ap *ActivityPublisher) publish(ctx context.Context, key string, event interface{}) {
	if ap == nil || ap.producer == nil {
		return
	}
	if err := ap.producer.PublishEvent(ctx, key, event); err != nil {
		util.GetLogger().Warn("Failed to publish activity event",
			zap.String("key", key), zap.Error(err))
	}
}

// SessionStarted emits a SESSION_STARTED event.
func (ap *ActivityPublisher) SessionStarted(ctx context.Context, userID int64, role string) {
	ap.publish(ctx, fmt.Sprintf("user-%d", userID), &models.SessionStartedEvent{
		BaseEvent: baseEvent(models.EventTypeSessionStarted),
		UserID:    userID,
		Role:      role,
	})
}

// SessionEnded emits a SESSION_ENDED event.
func (ap *ActivityPublisher) SessionEnded(ctx context.Context, userID int64) {
	ap.publish(ctx, fmt.Sprintf("user-%d", userID), &models.SessionEndedEvent{
		BaseEvent: baseEvent(models.EventTypeSessionEnded),
		UserID:    userID,
	})
}

// CartReconciled emits a CART_RECONCILED event after a login merge.
func (ap *ActivityPublisher) CartReconciled(ctx context.Context, userID, serverCartID int64, guestLines, mergedLines int) {
	ap.publish(ctx, fmt.Sprintf("user-%d", userID), &models.CartReconciledEvent{
		BaseEvent:    baseEvent(models.EventTypeCartReconciled),
		UserID:       userID,
		GuestLines:   guestLines,
		MergedLines:  mergedLines,
		ServerCartID: serverCartID,
	})
}

// OrderPlaced emits an ORDER_PLACED event.
func (ap *ActivityPublisher) OrderPlaced(ctx context.Context, order models.Order) {
	ap.publish(ctx, fmt.Sprintf("order-%d", order.ID), &models.OrderPlacedEvent{
		BaseEvent: baseEvent(models.EventTypeOrderPlaced),
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Items:     order.Items,
	})
}
