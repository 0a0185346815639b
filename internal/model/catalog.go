package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the top level of the catalog hierarchy
type Category struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Subcategory groups products inside a category. Names are unique per category.
type Subcategory struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_subcategory_category_name"`
	Description string    `json:"description" gorm:"type:text"`
	CategoryID  uint      `json:"category_id" gorm:"not null;index;uniqueIndex:idx_subcategory_category_name"`
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a sellable item. SubcategoryID must always belong to CategoryID.
type Product struct {
	ID            uint            `json:"id" gorm:"primarykey"`
	Name          string          `json:"name" gorm:"type:varchar(200);not null"`
	Description   string          `json:"description" gorm:"type:text"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Stock         int             `json:"stock" gorm:"not null;default:0"`
	ImageRef      string          `json:"image_ref,omitempty" gorm:"type:varchar(255)"`
	ImageURL      string          `json:"image_url,omitempty" gorm:"-"`
	SubcategoryID uint            `json:"subcategory_id" gorm:"not null;index"`
	CategoryID    uint            `json:"category_id" gorm:"not null;index"`
	Active        bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// HasStock reports whether qty units can be taken from the current stock
func (p *Product) HasStock(qty int) bool {
	return qty > 0 && p.Stock >= qty
}

// InventoryValue is price times units on hand
func (p *Product) InventoryValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}
