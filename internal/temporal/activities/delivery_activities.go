package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/notify"
)

// DeliveryActivities publishes case lifecycle events to the message broker.
// Methods on this struct are registered as Temporal activities via the worker.
type DeliveryActivities struct {
	publisher notify.Publisher
}

// NewDeliveryActivities creates a new DeliveryActivities instance.
func NewDeliveryActivities(publisher notify.Publisher) *DeliveryActivities {
	return &DeliveryActivities{publisher: publisher}
}

// PublishEvent publishes a case lifecycle event. Event delivery is
// best-effort: the workflow invokes this activity fire-and-forget and case
// processing never blocks on the broker.
func (a *DeliveryActivities) PublishEvent(ctx context.Context, input PublishEventInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("publishing case event", "caseID", input.CaseID, "eventType", input.EventType)

	event, err := domain.NewCaseEvent(input.EventType, input.CaseID, input.Payload)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	if err := a.publisher.PublishCaseEvent(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}
