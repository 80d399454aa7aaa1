package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CheckoutEventPublisher interface {
	PublishCheckoutCompleted(ctx context.Context, ev model.CheckoutCompleted) error
}
