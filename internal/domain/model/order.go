package model

import "encoding/json"

// 注文サービスに送る明細
type OrderLineItem struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int64   `json:"quantity"`
}

// 注文作成リクエスト
type OrderRequest struct {
	LineItems      []OrderLineItem `json:"lineItems"`
	CurrencyCode   string          `json:"currencyCode"`
	IdempotencyKey string          `json:"-"`
}

// 注文サービスの結果。order_id以外は中身を解釈しない。
type Order struct {
	ID      string
	Payload json.RawMessage
}
