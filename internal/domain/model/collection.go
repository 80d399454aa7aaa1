package model

import (
	"time"

	"github.com/lib/pq"
)

// コレクション（商品handleの束）
type Collection struct {
	ID             string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	StoreID        string         `gorm:"type:varchar(64);not null;index" json:"-"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	Handle         string         `gorm:"type:varchar(255);not null" json:"handle"`
	Image          string         `gorm:"type:text" json:"image"`
	ProductHandles pq.StringArray `gorm:"type:text[]" json:"product_handles"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

// handleがこのコレクションに含まれるか
func (c Collection) Contains(handle string) bool {
	for _, h := range c.ProductHandles {
		if h == handle {
			return true
		}
	}
	return false
}
