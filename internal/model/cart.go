package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product in a user's cart. There is at most one line per (user, product).
type CartLine struct {
	ID        uint            `json:"id" gorm:"primarykey"`
	UserID    uint            `json:"user_id" gorm:"not null;uniqueIndex:idx_cart_user_product"`
	ProductID uint            `json:"product_id" gorm:"not null;index;uniqueIndex:idx_cart_user_product"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Subtotal is the snapshot price times quantity
func (l *CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
