package usecase

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// バッジの上限表示
const badgeLimit = 99

// CartUsecase は /cart の業務ロジックです。
// カートの変更は必ず cart.Store の4操作を通す。
type CartUsecase struct {
	registry    *SessionRegistry
	productRepo repo.ProductRepository
	recorder    Recorder
	storeID     string
}

func NewCartUsecase(
	registry *SessionRegistry,
	productRepo repo.ProductRepository,
	recorder Recorder,
	storeID string,
) *CartUsecase {
	return &CartUsecase{
		registry:    registry,
		productRepo: productRepo,
		recorder:    recorder,
		storeID:     storeID,
	}
}

// 表示用の明細。金額は小数2桁の文字列。
type CartItemResponse struct {
	Key       string `json:"key"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Price     string `json:"price"`
	LineTotal string `json:"line_total"`
	Quantity  int64  `json:"quantity"`
}

type CartResponse struct {
	Items           []CartItemResponse `json:"items"`
	Total           string             `json:"total"`
	ItemCount       int64              `json:"item_count"`
	Badge           string             `json:"badge"`
	CheckoutEnabled bool               `json:"checkout_enabled"`
}

type AddCartInput struct {
	ProductID string
	VariantID string
	Quantity  *int64 // 未指定なら1
}

type UpdateCartItemInput struct {
	Quantity int64
}

func (u *CartUsecase) GetCart(ctx context.Context, sessionID string) (CartResponse, error) {
	if sessionID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "no session")
	}
	e := u.registry.get(ctx, sessionID)
	return u.buildCartResponse(e, e.cart.State()), nil
}

// カートに追加（同一商品＋同一バリエーションは数量加算）
func (u *CartUsecase) AddToCart(ctx context.Context, sessionID string, in AddCartInput) (CartResponse, error) {
	if sessionID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "no session")
	}
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	qty := int64(1)
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	if qty < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, u.storeID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var variant *model.VariantRef
	if vid := strings.TrimSpace(in.VariantID); vid != "" {
		v, err := u.productRepo.FindVariant(ctx, p.ID, vid)
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid variant_id")
		}
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		ref := v.Ref()
		variant = &ref
	}

	e := u.registry.get(ctx, sessionID)
	state, err := e.cart.AddItem(p.Ref(), variant, qty)
	if err != nil {
		if errors.Is(err, cart.ErrInvalidQuantity) {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	u.recorder.CartOp("add")

	return u.buildCartResponse(e, state), nil
}

// 数量変更（0以下は削除、無いキーは何もしない）
func (u *CartUsecase) UpdateCartItem(ctx context.Context, sessionID string, key string, in UpdateCartItemInput) (CartResponse, error) {
	if sessionID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "no session")
	}
	e := u.registry.get(ctx, sessionID)
	state := e.cart.UpdateQuantity(key, in.Quantity)
	u.recorder.CartOp("update")
	return u.buildCartResponse(e, state), nil
}

// 明細削除（無いキーは何もしない）
func (u *CartUsecase) DeleteCartItem(ctx context.Context, sessionID string, key string) (CartResponse, error) {
	if sessionID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "no session")
	}
	e := u.registry.get(ctx, sessionID)
	state := e.cart.RemoveItem(key)
	u.recorder.CartOp("remove")
	return u.buildCartResponse(e, state), nil
}

func (u *CartUsecase) ClearCart(ctx context.Context, sessionID string) (CartResponse, error) {
	if sessionID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "no session")
	}
	e := u.registry.get(ctx, sessionID)
	state := e.cart.Clear()
	u.recorder.CartOp("clear")
	return u.buildCartResponse(e, state), nil
}

func (u *CartUsecase) buildCartResponse(e *sessionEntry, state model.CartState) CartResponse {
	items := make([]CartItemResponse, 0, len(state.Items))
	for _, it := range state.Items {
		r := CartItemResponse{
			Key:       it.Key,
			ProductID: it.Product.ID,
			Title:     it.DisplayTitle(),
			Image:     it.DisplayImage(),
			Price:     it.EffectivePrice().StringFixed(2),
			LineTotal: it.LineTotal().StringFixed(2),
			Quantity:  it.Quantity,
		}
		if it.Variant != nil {
			r.VariantID = it.Variant.ID
		}
		items = append(items, r)
	}

	count := state.ItemCount()
	return CartResponse{
		Items:           items,
		Total:           state.Total.StringFixed(2),
		ItemCount:       count,
		Badge:           badgeLabel(count),
		CheckoutEnabled: count > 0 && !e.checkout.Busy(),
	}
}

// 0なら空、99超は "99+"
func badgeLabel(n int64) string {
	if n <= 0 {
		return ""
	}
	if n > badgeLimit {
		return strconv.Itoa(badgeLimit) + "+"
	}
	return strconv.FormatInt(n, 10)
}
