package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 店舗の商品（カタログ側が正）
type Product struct {
	ID          string              `gorm:"primaryKey;type:varchar(64)" json:"id"`
	StoreID     string              `gorm:"type:varchar(64);not null;index" json:"-"`
	Handle      string              `gorm:"type:varchar(255);not null;index" json:"handle"`
	Title       string              `gorm:"type:varchar(255);not null" json:"title"`
	Description string              `gorm:"type:text" json:"description"`
	Price       decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"price"`
	Images      pq.StringArray      `gorm:"type:text[]" json:"images"`
	IsActive    bool                `gorm:"not null;default:false" json:"-"`
	Variants    []Variant           `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt   time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt      `gorm:"index" json:"-"`
}

// カートに入れた時点の商品情報。以降は変わらない。
type ProductRef struct {
	ID     string              `json:"id"`
	Title  string              `json:"title"`
	Price  decimal.NullDecimal `json:"price"`
	Images []string            `json:"images,omitempty"`
}

// Ref はカート用のスナップショットを作る。
func (p Product) Ref() ProductRef {
	images := make([]string, len(p.Images))
	copy(images, p.Images)
	return ProductRef{
		ID:     p.ID,
		Title:  p.Title,
		Price:  p.Price,
		Images: images,
	}
}

// 最初の画像（無ければ空）
func (r ProductRef) FirstImage() string {
	if len(r.Images) == 0 {
		return ""
	}
	return r.Images[0]
}
