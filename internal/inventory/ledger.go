// Package inventory owns every stock mutation. Stock only moves through Reserve,
// Restock and SetStock, and never drops below zero.
package inventory

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/pkg/logger"
	"github.com/suteetoe/storecore/prometheus"
)

// Item is a quantity of one product
type Item struct {
	ProductID uint
	Quantity  int
}

// Ledger applies stock changes through a repository.Store. A Ledger bound to an
// atomic unit with WithTx takes part in that unit.
type Ledger struct {
	store   repository.Store
	metrics *prometheus.Metrics
	inTx    bool
}

// NewLedger returns a Ledger that runs each call on its own
func NewLedger(store repository.Store, metrics *prometheus.Metrics) *Ledger {
	return &Ledger{store: store, metrics: metrics}
}

// WithTx returns a Ledger whose calls join tx
func (l *Ledger) WithTx(tx repository.Store) *Ledger {
	return &Ledger{store: tx, metrics: l.metrics, inTx: true}
}

// Reserve takes qty units of a product. The check and the decrement are one
// conditional write, so two reservations can never both take the last unit.
func (l *Ledger) Reserve(ctx context.Context, productID uint, qty int) error {
	log := logger.FromContext(ctx)
	if qty < 1 {
		return apperr.Invalid("quantity", "min", "quantity must be at least 1")
	}

	ok, err := l.store.Products().DecrementStock(ctx, productID, qty)
	if err != nil {
		return err
	}
	if !ok {
		available, err := l.Available(ctx, productID)
		if err != nil {
			return err
		}
		log.Warn("Insufficient stock",
			zap.Uint("product_id", productID),
			zap.Int("available", available),
			zap.Int("requested", qty))
		return apperr.InsufficientStock(productID, available, qty)
	}

	log.Debug("Stock reserved", zap.Uint("product_id", productID), zap.Int("quantity", qty))
	l.committed(ctx, "out", qty, productID)
	return nil
}

// Restock returns qty units to a product
func (l *Ledger) Restock(ctx context.Context, productID uint, qty int) error {
	if qty < 1 {
		return apperr.Invalid("quantity", "min", "quantity must be at least 1")
	}
	if err := l.store.Products().IncrementStock(ctx, productID, qty); err != nil {
		return err
	}

	logger.FromContext(ctx).Debug("Stock restocked", zap.Uint("product_id", productID), zap.Int("quantity", qty))
	l.committed(ctx, "in", qty, productID)
	return nil
}

// SetStock overwrites the units on hand of a product
func (l *Ledger) SetStock(ctx context.Context, productID uint, qty int) error {
	if qty < 0 {
		return apperr.Invalid("stock", "gte", "stock must be greater than or equal to 0")
	}
	if err := l.store.Products().SetStock(ctx, productID, qty); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("Stock set", zap.Uint("product_id", productID), zap.Int("stock", qty))
	l.committed(ctx, "", 0, productID)
	return nil
}

// Available returns the units on hand of a product
func (l *Ledger) Available(ctx context.Context, productID uint) (int, error) {
	p, err := l.store.Products().Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// ReserveAll reserves every item in ascending product order and stops at the first
// failure. Callers run it inside an atomic unit so earlier reservations roll back.
func (l *Ledger) ReserveAll(ctx context.Context, items []Item) error {
	for _, it := range byProduct(items) {
		if err := l.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// RestockAll restocks every item in ascending product order
func (l *Ledger) RestockAll(ctx context.Context, items []Item) error {
	for _, it := range byProduct(items) {
		if err := l.Restock(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Observe refreshes the inventory gauge of the products, typically after the
// atomic unit that changed them committed
func (l *Ledger) Observe(ctx context.Context, productIDs ...uint) {
	if l.metrics == nil {
		return
	}
	for _, id := range productIDs {
		stock, err := l.Available(ctx, id)
		if err != nil {
			continue
		}
		l.metrics.UpdateProductInventory(id, stock)
	}
}

// committed records the movement right away when the change is already durable.
// Inside an atomic unit the caller reports after commit through Observe.
func (l *Ledger) committed(ctx context.Context, direction string, qty int, productID uint) {
	if l.inTx {
		return
	}
	if direction != "" {
		l.metrics.RecordStockMovement(direction, qty)
	}
	l.Observe(ctx, productID)
}

// RecordMovements counts the units of a committed unit of work
func (l *Ledger) RecordMovements(direction string, items []Item) {
	for _, it := range items {
		l.metrics.RecordStockMovement(direction, it.Quantity)
	}
}

func byProduct(items []Item) []Item {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})
	return sorted
}

// ProductIDs lists the distinct products of items in ascending order
func ProductIDs(items []Item) []uint {
	ids := make([]uint, 0, len(items))
	for _, it := range byProduct(items) {
		if n := len(ids); n > 0 && ids[n-1] == it.ProductID {
			continue
		}
		ids = append(ids, it.ProductID)
	}
	return ids
}
