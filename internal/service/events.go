// Package service holds the catalog's business rules on top of the repositories.
package service

import (
	"context"

	"whereismypet/internal/models"
)

// EventPublisher fans changes out to live subscribers. Delivery is best
// effort: implementations log failures instead of returning them.
type EventPublisher interface {
	PublishCatalogEvent(ctx context.Context, event models.CatalogEvent)
	PublishUser(ctx context.Context, userID string, payload []byte)
}

type noopPublisher struct{}

func (noopPublisher) PublishCatalogEvent(context.Context, models.CatalogEvent) {}
func (noopPublisher) PublishUser(context.Context, string, []byte)             {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
