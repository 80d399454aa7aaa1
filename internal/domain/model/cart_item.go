package model

import "github.com/shopspring/decimal"

// カートの明細
// Keyは (商品ID, バリエーションID) から決まる。
type CartItem struct {
	Key      string      `json:"key"`
	Product  ProductRef  `json:"product"`
	Variant  *VariantRef `json:"variant,omitempty"`
	Quantity int64       `json:"quantity"`
}

// 実効単価: バリエーション価格 → 商品価格 → 0
func (it CartItem) EffectivePrice() decimal.Decimal {
	if it.Variant != nil && it.Variant.Price.Valid {
		return it.Variant.Price.Decimal
	}
	if it.Product.Price.Valid {
		return it.Product.Price.Decimal
	}
	return decimal.Zero
}

func (it CartItem) LineTotal() decimal.Decimal {
	return it.EffectivePrice().Mul(decimal.NewFromInt(it.Quantity))
}

// 表示用タイトル（"商品 - バリエーション"）
func (it CartItem) DisplayTitle() string {
	if it.Variant != nil && it.Variant.Title != "" {
		return it.Product.Title + " - " + it.Variant.Title
	}
	return it.Product.Title
}

// 表示用画像（バリエーション優先）
func (it CartItem) DisplayImage() string {
	if it.Variant != nil && it.Variant.Image != "" {
		return it.Variant.Image
	}
	return it.Product.FirstImage()
}

// 深いコピー（Variantのポインタを共有しない）
func (it CartItem) Clone() CartItem {
	out := it
	out.Product.Images = append([]string(nil), it.Product.Images...)
	if it.Variant != nil {
		v := *it.Variant
		out.Variant = &v
	}
	return out
}
