package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type CollectionGormRepository struct {
	db *gorm.DB
}

// DI
func NewCollectionGormRepository(db *gorm.DB) *CollectionGormRepository {
	return &CollectionGormRepository{db: db}
}

// 店舗のコレクションを新しい順で
func (r *CollectionGormRepository) ListByStore(ctx context.Context, storeID string) ([]model.Collection, error) {
	var cs []model.Collection
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at desc").
		Find(&cs).Error; err != nil {
		return []model.Collection{}, err
	}
	return cs, nil
}

func (r *CollectionGormRepository) FindByID(ctx context.Context, storeID string, collectionID string) (model.Collection, error) {
	var c model.Collection
	err := r.db.WithContext(ctx).
		Where("id = ? AND store_id = ?", collectionID, storeID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Collection{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Collection{}, err
	}
	return c, nil
}
