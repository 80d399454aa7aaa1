package model

import "github.com/shopspring/decimal"

// カートの状態。Totalは常にItemsから導出する。
// Versionは変更のたびに増える（同じVersionなら中身も同じ）。
type CartState struct {
	Items   []CartItem      `json:"items"`
	Total   decimal.Decimal `json:"total"`
	Version uint64          `json:"version"`
}

// 商品数（バッジ表示用）
func (s CartState) ItemCount() int64 {
	var n int64
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// チェックアウト開始時点のカートのコピー
type CheckoutSnapshot struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}
