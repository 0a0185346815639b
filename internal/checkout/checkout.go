// Package checkout turns a user's cart into a pending order in one atomic unit.
package checkout

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/inventory"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/internal/validation"
	"github.com/suteetoe/storecore/pkg/logger"
	"github.com/suteetoe/storecore/prometheus"
)

// Input is the delivery information of an order
type Input struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=500"`
	ContactPhone    string `json:"contact_phone" validate:"required,min=6,max=20"`
	Notes           string `json:"notes" validate:"max=1000"`
}

// Service is the checkout component
type Service struct {
	store   repository.Store
	ledger  *inventory.Ledger
	metrics *prometheus.Metrics
}

// NewService returns a checkout service that debits stock through ledger
func NewService(store repository.Store, ledger *inventory.Ledger, metrics *prometheus.Metrics) *Service {
	return &Service{store: store, ledger: ledger, metrics: metrics}
}

// validateLines checks every line against current catalog state and reports all
// failing lines together
func validateLines(ctx context.Context, tx repository.Store, lines []model.CartLine) ([]*model.Product, error) {
	products := make([]*model.Product, len(lines))
	failed := &apperr.CheckoutFailedError{}

	for i, l := range lines {
		p, err := tx.Products().GetForUpdate(ctx, l.ProductID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return nil, err
		case !p.Active:
			err = apperr.ProductInactive(p.ID)
		case !p.HasStock(l.Quantity):
			err = apperr.InsufficientStock(p.ID, p.Stock, l.Quantity)
		}
		if err != nil {
			failed.Lines = append(failed.Lines, apperr.LineFailure{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Reason:    err.Error(),
				Err:       err,
			})
			continue
		}
		products[i] = p
	}

	if len(failed.Lines) > 0 {
		return nil, failed
	}
	return products, nil
}

// Checkout validates the cart against current stock and state, then creates the
// order with fresh prices, reserves every line and empties the cart. Either all of
// it commits or none of it does.
func (s *Service) Checkout(ctx context.Context, userID uint, in Input) (*model.Order, error) {
	log := logger.FromContext(ctx).With(zap.Uint("user_id", userID))
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var (
		order *model.Order
		items []inventory.Item
	)
	start := time.Now()
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		lines, err := tx.CartLines().ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.EmptyCart(userID)
		}
		// lock products in ascending id order so concurrent checkouts cannot deadlock
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		products, err := validateLines(ctx, tx, lines)
		if err != nil {
			return err
		}

		order = &model.Order{
			UserID:          userID,
			Status:          model.OrderPending,
			ShippingAddress: in.ShippingAddress,
			ContactPhone:    in.ContactPhone,
			Notes:           in.Notes,
			Lines:           make([]model.OrderLine, 0, len(lines)),
		}
		items = make([]inventory.Item, 0, len(lines))
		for i, l := range lines {
			order.Lines = append(order.Lines, model.NewOrderLine(l.ProductID, l.Quantity, products[i].Price))
			items = append(items, inventory.Item{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		order.Recalculate()

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if err := s.ledger.WithTx(tx).ReserveAll(ctx, items); err != nil {
			return err
		}
		_, err = tx.CartLines().DeleteByUser(ctx, userID)
		return err
	})
	s.metrics.TrackDBOperation("checkout")(start)

	if err != nil {
		s.metrics.RecordCheckout(apperr.Kind(err))
		log.Warn("Checkout failed", zap.String("kind", apperr.Kind(err)), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordCheckout("success")
	s.ledger.RecordMovements("out", items)
	s.ledger.Observe(ctx, inventory.ProductIDs(items)...)
	log.Info("Checkout completed",
		zap.Uint("order_id", order.ID),
		zap.Int("lines", len(order.Lines)),
		zap.String("total", order.Total.StringFixed(2)))
	return order, nil
}
