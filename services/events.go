package services

import (
	"context"
	"encoding/json"
	"time"

	aws_pkg "storefront-service/pkg/aws"

	"go.uber.org/zap"
)

const (
	EventProductCreated = "product_created"
	EventProductUpdated = "product_updated"
	EventProductDeleted = "product_deleted"
	EventReviewChanged  = "review_changed"
)

// CatalogEvent is published to the catalog SNS topic after a successful write.
type CatalogEvent struct {
	EventType  string    `json:"event_type"`
	ProductID  string    `json:"product_id"`
	Slug       string    `json:"slug,omitempty"`
	ReviewID   string    `json:"review_id,omitempty"`
	Rating     float64   `json:"rating"`
	NumReviews int       `json:"num_reviews"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventPublisher sends catalog events to SNS. A publisher without a client or
// topic only logs, so local setups run without SNS.
type EventPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewEventPublisher(client aws_pkg.SNSPublisher, topicArn string, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{client: client, topicArn: topicArn, logger: logger}
}

// Publish never fails the caller: the write it reports has already happened.
func (p *EventPublisher) Publish(ctx context.Context, event CatalogEvent) {
	if p == nil {
		return
	}
	if p.client == nil || p.topicArn == "" {
		p.logger.Debug("SNS client not configured, skipping catalog event", zap.String("event_type", event.EventType))
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal catalog event", zap.Error(err))
		return
	}
	if err := p.client.Publish(context.WithoutCancel(ctx), p.topicArn, body); err != nil {
		p.logger.Error("Failed to publish catalog event",
			zap.String("event_type", event.EventType),
			zap.String("product_id", event.ProductID),
			zap.Error(err),
		)
		return
	}
	p.logger.Info("Published catalog event",
		zap.String("event_type", event.EventType),
		zap.String("product_id", event.ProductID),
	)
}
