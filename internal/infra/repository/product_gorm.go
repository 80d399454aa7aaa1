package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

const defaultProductLimit = 100

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 公開商品を新しい順で返す。Handlesがあればその中だけ。
func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	var products []model.Product

	tx := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Where("store_id = ? AND is_active = ?", q.StoreID, true)

	//コレクションで絞り込み
	if q.Handles != nil {
		if len(q.Handles) == 0 {
			return []model.Product{}, nil
		}
		tx = tx.Where("handle IN ?", q.Handles)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultProductLimit
	}

	if err := tx.Order("created_at desc").Order("id desc").Limit(limit).Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// 公開商品を1件取得
func (r *ProductGormRepository) FindByID(ctx context.Context, storeID string, productID string) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ? AND store_id = ? AND is_active = ?", productID, storeID, true).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 商品に属するバリエーションを取得
func (r *ProductGormRepository) FindVariant(ctx context.Context, productID string, variantID string) (model.Variant, error) {
	var v model.Variant
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Variant{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Variant{}, err
	}
	return v, nil
}
