package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CollectionRepository interface {
	// created_at の新しい順
	ListByStore(ctx context.Context, storeID string) ([]model.Collection, error)
	FindByID(ctx context.Context, storeID string, collectionID string) (model.Collection, error)
}
