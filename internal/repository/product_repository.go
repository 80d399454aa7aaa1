package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	StoreID string
	// nilなら絞り込みなし（空スライスは0件）
	Handles []string
	Limit   int
}

// カタログ（商品）の取得だけを約束。書き込みはしない。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, error)
	FindByID(ctx context.Context, storeID string, productID string) (model.Product, error)
	FindVariant(ctx context.Context, productID string, variantID string) (model.Variant, error)
}
