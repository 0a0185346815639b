package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/cart"
	"github.com/suteetoe/storecore/internal/inventory"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/internal/repository/memstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var delivery = Input{ShippingAddress: "1 Main St", ContactPhone: "555-0100"}

type env struct {
	store    *memstore.Store
	cart     *cart.Service
	checkout *Service
	ledger   *inventory.Ledger
}

func newEnv(store repository.Store, mem *memstore.Store) env {
	ledger := inventory.NewLedger(store, nil)
	return env{
		store:    mem,
		cart:     cart.NewService(store, nil),
		checkout: NewService(store, ledger, nil),
		ledger:   ledger,
	}
}

func seedProduct(t *testing.T, s repository.Store, name, price string, stock int) *model.Product {
	t.Helper()
	ctx := context.Background()
	c := &model.Category{Name: "Beverages " + name, Active: true}
	require.NoError(t, s.Categories().Create(ctx, c))
	sub := &model.Subcategory{Name: "Soda", CategoryID: c.ID, Active: true}
	require.NoError(t, s.Subcategories().Create(ctx, sub))
	p := &model.Product{
		Name: name, Price: decimal.RequireFromString(price), Stock: stock,
		SubcategoryID: sub.ID, CategoryID: c.ID, Active: true,
	}
	require.NoError(t, s.Products().Create(ctx, p))
	return p
}

func stockOf(t *testing.T, s repository.Store, id uint) int {
	t.Helper()
	p, err := s.Products().Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestCheckout_SingleLine(t *testing.T) {
	mem := memstore.New()
	e := newEnv(mem, mem)
	cola := seedProduct(t, mem, "Cola", "1.50", 10)
	ctx := context.Background()

	_, err := e.cart.AddItem(ctx, 1, cart.AddItemInput{ProductID: cola.ID, Quantity: 3})
	require.NoError(t, err)

	order, err := e.checkout.Checkout(ctx, 1, delivery)
	require.NoError(t, err)

	assert.Equal(t, model.OrderPending, order.Status)
	assert.True(t, decimal.RequireFromString("4.50").Equal(order.Total), order.Total.String())
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 3, order.Lines[0].Quantity)
	assert.Equal(t, 7, stockOf(t, mem, cola.ID))

	c, err := e.cart.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)

	stored, err := mem.Orders().Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Total, stored.Total)
}

func TestCheckout_TotalsAndReservationsMatchCart(t *testing.T) {
	mem := memstore.New()
	e := newEnv(mem, mem)
	cola := seedProduct(t, mem, "Cola", "1.50", 10)
	tonic := seedProduct(t, mem, "Tonic", "0.75", 10)
	ctx := context.Background()

	_, err := e.cart.AddItem(ctx, 1, cart.AddItemInput{ProductID: tonic.ID, Quantity: 4})
	require.NoError(t, err)
	_, err = e.cart.AddItem(ctx, 1, cart.AddItemInput{ProductID: cola.ID, Quantity: 2})
	require.NoError(t, err)

	order, err := e.checkout.Checkout(ctx, 1, delivery)
	require.NoError(t, err)

	sum := decimal.Zero
	reserved := 0
	for _, l := range order.Lines {
		assert.True(t, l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Equal(l.Subtotal))
		sum = sum.Add(l.Subtotal)
		reserved += l.Quantity
	}
	assert.True(t, sum.Equal(order.Total))
	assert.Equal(t, 6, reserved)
	assert.Equal(t, 8, stockOf(t, mem, cola.ID))
	assert.Equal(t, 6, stockOf(t, mem, tonic.ID))
}

func TestCheckout_UsesFreshPrice(t *testing.T) {
	mem := memstore.New()
	e := newEnv(mem, mem)
	cola := seedProduct(t, mem, "Cola", "1.50", 10)
	ctx := context.Background()

	_, err := e.cart.AddItem(ctx, 1, cart.AddItemInput{ProductID: cola.ID, Quantity: 2})
	require.NoError(t, err)

	cola.Price = decimal.RequireFromString("2.00")
	require.NoError(t, mem.Products().Update(ctx, cola))

	order, err := e.checkout.Checkout(ctx, 1, delivery)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("4.00").Equal(order.Total), order.Total.String())
}

func TestCheckout_ConcurrentOnlyOneWins(t *testing.T) {
	mem := memstore.New()
	e := newEnv(mem, mem)
	cola := seedProduct(t, mem, "Cola", "1.50", 10)
	ctx := context.Background()

	for _, user := range []uint{1, 2} {
		_, err := e.cart.AddItem(ctx, user, cart.AddItemInput{ProductID: cola.ID, Quantity: 6})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []uint{1, 2} {
		wg.Add(1)
		go func(i int, user uint) {
			defer wg.Done()
			_, errs[i] = e.checkout.Checkout(ctx, user, delivery)
		}(i, user)
	}
	wg.Wait()

	var succeeded, failed int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
		assert.ErrorIs(t, err, apperr.ErrCheckoutFailed)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 4, stockOf(t, mem, cola.ID))

	orders, err := mem.Orders().List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCheckout_EmptyCart(t *testing.T) {
	mem := memstore.New()
	e := newEnv(mem, mem)

	_, err := e.checkout.Checkout(context.Background(), 1, delivery)
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)
}

func TestCheckout_InvalidInput(t *testing.T) {
	mem := memstore.New()
	e := newEnv(mem, mem)

	_, err := e.checkout.Checkout(context.Background(), 1, Input{ShippingAddress: "  "})
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
}

func TestCheckout_ReportsEveryFailingLine(t *testing.T) {
	mem := memstore.New()
	e := newEnv(mem, mem)
	cola := seedProduct(t, mem, "Cola", "1.50", 10)
	tonic := seedProduct(t, mem, "Tonic", "0.75", 10)
	water := seedProduct(t, mem, "Water", "0.50", 10)
	ctx := context.Background()

	for _, p := range []*model.Product{cola, tonic, water} {
		_, err := e.cart.AddItem(ctx, 1, cart.AddItemInput{ProductID: p.ID, Quantity: 5})
		require.NoError(t, err)
	}

	require.NoError(t, e.ledger.SetStock(ctx, tonic.ID, 2))
	water.Active = false
	require.NoError(t, mem.Products().Update(ctx, water))

	_, err := e.checkout.Checkout(ctx, 1, delivery)
	var failed *apperr.CheckoutFailedError
	require.True(t, errors.As(err, &failed))
	require.Len(t, failed.Lines, 2)
	assert.Equal(t, tonic.ID, failed.Lines[0].ProductID)
	assert.ErrorIs(t, failed.Lines[0].Err, apperr.ErrInsufficientStock)
	assert.Equal(t, water.ID, failed.Lines[1].ProductID)
	assert.ErrorIs(t, failed.Lines[1].Err, apperr.ErrProductInactive)

	assert.Equal(t, 10, stockOf(t, mem, cola.ID))
	assert.Equal(t, 2, stockOf(t, mem, tonic.ID))
	c, err := e.cart.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 3)
	orders, err := mem.Orders().List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

// raceProducts simulates a competing debit landing between validation and reservation
type raceProducts struct {
	repository.ProductRepository
	victim uint
}

func (r raceProducts) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	if id == r.victim {
		return false, nil
	}
	return r.ProductRepository.DecrementStock(ctx, id, qty)
}

type raceStore struct {
	repository.Store
	victim uint
}

func (r raceStore) Products() repository.ProductRepository {
	return raceProducts{ProductRepository: r.Store.Products(), victim: r.victim}
}

func (r raceStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	return r.Store.Atomic(ctx, func(tx repository.Store) error {
		return fn(raceStore{Store: tx, victim: r.victim})
	})
}

func TestCheckout_ReservationFailureRollsBackEverything(t *testing.T) {
	mem := memstore.New()
	cola := seedProduct(t, mem, "Cola", "1.50", 10)
	tonic := seedProduct(t, mem, "Tonic", "0.75", 10)
	e := newEnv(raceStore{Store: mem, victim: tonic.ID}, mem)
	ctx := context.Background()

	for _, p := range []*model.Product{cola, tonic} {
		_, err := e.cart.AddItem(ctx, 1, cart.AddItemInput{ProductID: p.ID, Quantity: 2})
		require.NoError(t, err)
	}

	_, err := e.checkout.Checkout(ctx, 1, delivery)
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	assert.Equal(t, 10, stockOf(t, mem, cola.ID), "cola was reserved first and must be restored")
	orders, err := mem.Orders().List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	lines, err := mem.CartLines().ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestCheckout_CancelledContextLeavesNothing(t *testing.T) {
	mem := memstore.New()
	e := newEnv(mem, mem)
	cola := seedProduct(t, mem, "Cola", "1.50", 10)

	_, err := e.cart.AddItem(context.Background(), 1, cart.AddItemInput{ProductID: cola.ID, Quantity: 3})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.checkout.Checkout(ctx, 1, delivery)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, stockOf(t, mem, cola.ID))
}
