package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 商品のバリエーション（サイズ・径など）
type Variant struct {
	ID        string              `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProductID string              `gorm:"type:varchar(64);not null;index" json:"product_id"`
	Title     string              `gorm:"type:varchar(255);not null" json:"title"`
	Price     decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"price"`
	Image     string              `gorm:"type:text" json:"image"`
	CreatedAt time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 価格・画像・タイトルの上書き分だけ持つ
type VariantRef struct {
	ID    string              `json:"id"`
	Title string              `json:"title"`
	Price decimal.NullDecimal `json:"price"`
	Image string              `json:"image,omitempty"`
}

func (v Variant) Ref() VariantRef {
	return VariantRef{
		ID:    v.ID,
		Title: v.Title,
		Price: v.Price,
		Image: v.Image,
	}
}
