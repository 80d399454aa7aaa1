package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 外部の注文サービス
type OrderService interface {
	CreateOrder(ctx context.Context, req model.OrderRequest) (model.Order, error)
}
