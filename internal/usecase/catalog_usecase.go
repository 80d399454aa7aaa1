package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// カタログの読み取り（商品・コレクション）
type CatalogUsecase struct {
	productRepo    repo.ProductRepository
	collectionRepo repo.CollectionRepository
	storeID        string
}

// DI
func NewCatalogUsecase(productRepo repo.ProductRepository, collectionRepo repo.CollectionRepository, storeID string) *CatalogUsecase {
	return &CatalogUsecase{
		productRepo:    productRepo,
		collectionRepo: collectionRepo,
		storeID:        storeID,
	}
}

// GET /products の入力
type ListProductsInput struct {
	CollectionID string // 空なら全件
	Limit        int
}

type ProductListOutput struct {
	Items      []model.Product   `json:"items"`
	Collection *model.Collection `json:"collection,omitempty"`
}

func (u *CatalogUsecase) ListCollections(ctx context.Context) ([]model.Collection, error) {
	cs, err := u.collectionRepo.ListByStore(ctx, u.storeID)
	if err != nil {
		return []model.Collection{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return cs, nil
}

// コレクション指定時はそのproduct_handlesに含まれる商品だけ返す
func (u *CatalogUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Limit < 0 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	q := repo.ProductListQuery{StoreID: u.storeID, Limit: in.Limit}

	var col *model.Collection
	if id := strings.TrimSpace(in.CollectionID); id != "" {
		c, err := u.collectionRepo.FindByID(ctx, u.storeID, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ProductListOutput{}, NewHTTPError(http.StatusNotFound, "collection not found")
		}
		if err != nil {
			return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		col = &c
		//nilだと「絞り込みなし」になるので必ず非nil
		q.Handles = append([]string{}, c.ProductHandles...)
	}

	items, err := u.productRepo.ListPublic(ctx, q)
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ProductListOutput{Items: items, Collection: col}, nil
}

func (u *CatalogUsecase) GetProduct(ctx context.Context, productID string) (model.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, u.storeID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}
