// Package cart keeps one priced line per user and product. Adding and updating check
// availability but reserve nothing; stock is only taken at checkout.
package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/internal/validation"
	"github.com/suteetoe/storecore/pkg/logger"
	"github.com/suteetoe/storecore/prometheus"
)

// Service is the cart component
type Service struct {
	store   repository.Store
	metrics *prometheus.Metrics
}

// NewService returns a cart service on store
func NewService(store repository.Store, metrics *prometheus.Metrics) *Service {
	return &Service{store: store, metrics: metrics}
}

// AddItemInput adds Quantity units of a product. RefreshPrice replaces the price
// snapshot of an existing line with the current price.
type AddItemInput struct {
	ProductID    uint `json:"product_id" validate:"required"`
	Quantity     int  `json:"quantity" validate:"required,min=1"`
	RefreshPrice bool `json:"refresh_price"`
}

// Line is a cart line with its subtotal
type Line struct {
	model.CartLine
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Cart is the content of a user's cart
type Cart struct {
	UserID uint            `json:"user_id"`
	Lines  []Line          `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

// Summary is the short form of a cart
type Summary struct {
	Lines    int             `json:"lines"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// sellable loads a product and checks it can supply qty units right now
func sellable(ctx context.Context, tx repository.Store, productID uint, qty int) (*model.Product, error) {
	p, err := tx.Products().Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperr.ProductInactive(productID)
	}
	if !p.HasStock(qty) {
		return nil, apperr.InsufficientStock(productID, p.Stock, qty)
	}
	return p, nil
}

// AddItem adds units to the cart. An existing line for the product is merged and the
// merged quantity must be in stock; its price snapshot is kept unless RefreshPrice.
func (s *Service) AddItem(ctx context.Context, userID uint, in AddItemInput) (*model.CartLine, error) {
	log := logger.FromContext(ctx)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var out *model.CartLine
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		existing, err := tx.CartLines().Get(ctx, userID, in.ProductID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		if existing == nil {
			p, err := sellable(ctx, tx, in.ProductID, in.Quantity)
			if err != nil {
				return err
			}
			out = &model.CartLine{UserID: userID, ProductID: p.ID, Quantity: in.Quantity, UnitPrice: p.Price}
			return tx.CartLines().Create(ctx, out)
		}

		merged := existing.Quantity + in.Quantity
		p, err := sellable(ctx, tx, in.ProductID, merged)
		if err != nil {
			return err
		}
		existing.Quantity = merged
		if in.RefreshPrice {
			existing.UnitPrice = p.Price
		}
		out = existing
		return tx.CartLines().Update(ctx, existing)
	})
	if err != nil {
		log.Warn("Item not added to cart",
			zap.Uint("user_id", userID),
			zap.Uint("product_id", in.ProductID),
			zap.Int("quantity", in.Quantity),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordCartOperation("add")
	log.Info("Item added to cart",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", in.ProductID),
		zap.Int("line_quantity", out.Quantity))
	return out, nil
}

// UpdateQuantity replaces the quantity of a line after checking it against current stock
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID uint, qty int) (*model.CartLine, error) {
	if qty < 1 {
		return nil, apperr.Invalid("quantity", "min", "quantity must be at least 1")
	}

	var out *model.CartLine
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		line, err := tx.CartLines().Get(ctx, userID, productID)
		if err != nil {
			return err
		}
		if _, err := sellable(ctx, tx, productID, qty); err != nil {
			return err
		}
		line.Quantity = qty
		out = line
		return tx.CartLines().Update(ctx, line)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCartOperation("update")
	logger.FromContext(ctx).Info("Cart quantity updated",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", productID),
		zap.Int("quantity", qty))
	return out, nil
}

// RemoveItem deletes the line of a product
func (s *Service) RemoveItem(ctx context.Context, userID, productID uint) error {
	if err := s.store.CartLines().Delete(ctx, userID, productID); err != nil {
		return err
	}
	s.metrics.RecordCartOperation("remove")
	logger.FromContext(ctx).Info("Item removed from cart", zap.Uint("user_id", userID), zap.Uint("product_id", productID))
	return nil
}

// Clear empties the cart and returns the number of lines removed
func (s *Service) Clear(ctx context.Context, userID uint) (int64, error) {
	n, err := s.store.CartLines().DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordCartOperation("clear")
	logger.FromContext(ctx).Info("Cart cleared", zap.Uint("user_id", userID), zap.Int64("lines", n))
	return n, nil
}

// GetCart returns the lines of a user's cart in insertion order
func (s *Service) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	lines, err := s.store.CartLines().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c := &Cart{UserID: userID, Lines: make([]Line, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		sub := l.Subtotal()
		c.Lines = append(c.Lines, Line{CartLine: l, Subtotal: sub})
		c.Total = c.Total.Add(sub)
	}
	return c, nil
}

// Total is the sum of price snapshot times quantity over the cart
func (s *Service) Total(ctx context.Context, userID uint) (decimal.Decimal, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Total, nil
}

// Summary counts lines and units of the cart
func (s *Service) Summary(ctx context.Context, userID uint) (*Summary, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Lines: len(c.Lines), Total: c.Total}
	for _, l := range c.Lines {
		sum.Quantity += l.Quantity
	}
	return sum, nil
}
