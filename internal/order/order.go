// Package order moves orders through their lifecycle:
//
//	pending -> paid | cancelled
//	paid    -> shipped | cancelled
//	shipped -> delivered
//
// Cancelling returns every line's quantity to stock in the same atomic unit as the
// status change. Orders are never deleted.
package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/clock"
	"github.com/suteetoe/storecore/internal/inventory"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/pkg/logger"
	"github.com/suteetoe/storecore/prometheus"
)

// Service is the order lifecycle component
type Service struct {
	store   repository.Store
	ledger  *inventory.Ledger
	clock   clock.Clock
	metrics *prometheus.Metrics
}

// NewService returns an order service. Timestamps come from clk.
func NewService(store repository.Store, ledger *inventory.Ledger, clk clock.Clock, metrics *prometheus.Metrics) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{store: store, ledger: ledger, clock: clk, metrics: metrics}
}

func lineItems(o *model.Order) []inventory.Item {
	items := make([]inventory.Item, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, inventory.Item{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return items
}

// stamp sets the timestamp owned by status, keeping the first value
func stamp(o *model.Order, status model.OrderStatus, now time.Time) {
	var field **time.Time
	switch status {
	case model.OrderPaid:
		field = &o.PaidAt
	case model.OrderShipped:
		field = &o.ShippedAt
	case model.OrderDelivered:
		field = &o.DeliveredAt
	default:
		return
	}
	if *field == nil {
		t := now
		*field = &t
	}
}

// transition moves an order to next; a non-zero owner must own the order
func (s *Service) transition(ctx context.Context, orderID, owner uint, next model.OrderStatus) (*model.Order, error) {
	log := logger.FromContext(ctx).With(zap.Uint("order_id", orderID))

	var (
		out      *model.Order
		from     model.OrderStatus
		restored []inventory.Item
	)
	start := time.Now()
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if owner != 0 && o.UserID != owner {
			return apperr.NotFound("order", orderID)
		}
		from = o.Status
		if !o.Status.CanTransitionTo(next) {
			return apperr.IllegalTransition(orderID, string(o.Status), string(next))
		}

		if next == model.OrderCancelled {
			restored = lineItems(o)
			if err := s.ledger.WithTx(tx).RestockAll(ctx, restored); err != nil {
				return err
			}
		}
		o.Status = next
		stamp(o, next, s.clock.Now())
		if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	s.metrics.TrackDBOperation("order_transition")(start)
	if err != nil {
		log.Warn("Order transition rejected",
			zap.String("from", string(from)),
			zap.String("to", string(next)),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordOrderTransition(string(from), string(next))
	if len(restored) > 0 {
		s.ledger.RecordMovements("in", restored)
		s.ledger.Observe(ctx, inventory.ProductIDs(restored)...)
	}
	log.Info("Order status changed",
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.Int("lines_restocked", len(restored)))
	return out, nil
}

// Transition moves an order to next following the lifecycle table
func (s *Service) Transition(ctx context.Context, orderID uint, next model.OrderStatus) (*model.Order, error) {
	return s.transition(ctx, orderID, 0, next)
}

// Cancel lets a user cancel one of their own orders. Other users' orders are reported
// as not found.
func (s *Service) Cancel(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	return s.transition(ctx, orderID, userID, model.OrderCancelled)
}

// Delete always fails: orders are cancelled, never removed
func (s *Service) Delete(ctx context.Context, orderID uint) error {
	logger.FromContext(ctx).Warn("Order deletion rejected", zap.Uint("order_id", orderID))
	return apperr.UseCancelInstead(orderID)
}

// Get returns an order with its lines
func (s *Service) Get(ctx context.Context, orderID uint) (*model.Order, error) {
	return s.store.Orders().Get(ctx, orderID)
}

// GetForUser returns an order owned by userID
func (s *Service) GetForUser(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	o, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, apperr.NotFound("order", orderID)
	}
	return o, nil
}

// ListForUser returns the order history of a user, newest first
func (s *Service) ListForUser(ctx context.Context, userID uint, status *model.OrderStatus) ([]model.Order, error) {
	return s.store.Orders().List(ctx, repository.OrderFilter{UserID: &userID, Status: status})
}

// List returns every order matching f, newest first
func (s *Service) List(ctx context.Context, f repository.OrderFilter) ([]model.Order, error) {
	return s.store.Orders().List(ctx, f)
}
