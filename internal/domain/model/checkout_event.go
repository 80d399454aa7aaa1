package model

import "github.com/shopspring/decimal"

// checkout.completed のペイロード
type CheckoutCompleted struct {
	OrderID      string          `json:"order_id"`
	SessionID    string          `json:"session_id"`
	Total        decimal.Decimal `json:"total"`
	CurrencyCode string          `json:"currency_code"`
	ItemCount    int64           `json:"item_count"`
}
