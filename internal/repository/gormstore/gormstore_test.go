package gormstore

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models()...))
	return New(db)
}

type fixture struct {
	category    *model.Category
	subcategory *model.Subcategory
	product     *model.Product
}

func seed(t *testing.T, s *Store, stock int) fixture {
	t.Helper()
	ctx := context.Background()
	c := &model.Category{Name: "Beverages", Active: true}
	require.NoError(t, s.Categories().Create(ctx, c))
	sub := &model.Subcategory{Name: "Soda", CategoryID: c.ID, Active: true}
	require.NoError(t, s.Subcategories().Create(ctx, sub))
	p := &model.Product{
		Name: "Cola", Price: decimal.RequireFromString("1.50"), Stock: stock,
		SubcategoryID: sub.ID, CategoryID: c.ID, Active: true,
	}
	require.NoError(t, s.Products().Create(ctx, p))
	return fixture{category: c, subcategory: sub, product: p}
}

func TestProducts_DecrementStockIsConditional(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s, 5)
	ctx := context.Background()

	ok, err := s.Products().DecrementStock(ctx, f.product.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Products().DecrementStock(ctx, f.product.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Products().Get(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	_, err = s.Products().DecrementStock(ctx, 999, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProducts_UpdateDoesNotTouchStock(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s, 5)
	ctx := context.Background()

	stale := *f.product
	require.NoError(t, s.Products().IncrementStock(ctx, f.product.ID, 5))

	stale.Name = "Cola Zero"
	stale.Stock = 0
	require.NoError(t, s.Products().Update(ctx, &stale))

	got, err := s.Products().Get(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cola Zero", got.Name)
	assert.Equal(t, 10, got.Stock)
}

func TestProducts_ListFiltersAndPages(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s, 5)
	ctx := context.Background()

	for _, p := range []model.Product{
		{Name: "Root Beer", Stock: 2},
		{Name: "Ginger Ale", Stock: 0},
		{Name: "Tonic", Stock: 9},
	} {
		p.Price = decimal.NewFromInt(1)
		p.SubcategoryID, p.CategoryID, p.Active = f.subcategory.ID, f.category.ID, true
		require.NoError(t, s.Products().Create(ctx, &p))
	}

	page, total, err := s.Products().List(ctx, repository.ProductFilter{InStock: true, Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Root Beer", page[0].Name)
}

func TestCatalog_DeactivateCascadeCounts(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s, 5)
	ctx := context.Background()

	n, err := s.Subcategories().DeactivateByCategory(ctx, f.category.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ids, err := s.Subcategories().IDsByCategory(ctx, f.category.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.subcategory.ID}, ids)

	n, err = s.Products().DeactivateBySubcategories(ctx, ids)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	counts, err := s.Products().CountByCategory(ctx, f.category.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.ActiveCount{Total: 1, Active: 0}, counts)

	taken, err := s.Categories().NameTaken(ctx, "Beverages", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.Categories().NameTaken(ctx, "Beverages", f.category.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestAtomic_RollsBackEveryWrite(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s, 10)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(tx repository.Store) error {
		ok, err := tx.Products().DecrementStock(ctx, f.product.ID, 4)
		require.NoError(t, err)
		require.True(t, ok)
		o := &model.Order{UserID: 1, Status: model.OrderPending, ShippingAddress: "x", ContactPhone: "1",
			Lines: []model.OrderLine{model.NewOrderLine(f.product.ID, 4, f.product.Price)}}
		o.Recalculate()
		require.NoError(t, tx.Orders().Create(ctx, o))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products().Get(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
	orders, err := s.Orders().List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrders_CreateWithLinesAndUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s, 10)
	ctx := context.Background()

	o := &model.Order{UserID: 7, Status: model.OrderPending, ShippingAddress: "1 Main St", ContactPhone: "555",
		Lines: []model.OrderLine{model.NewOrderLine(f.product.ID, 2, f.product.Price)}}
	o.Recalculate()
	require.NoError(t, s.Orders().Create(ctx, o))
	require.NotZero(t, o.ID)

	got, err := s.Orders().Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("3.00").Equal(got.Total), got.Total.String())

	now := got.CreatedAt
	got.Status = model.OrderPaid
	got.PaidAt = &now
	require.NoError(t, s.Orders().UpdateStatus(ctx, got))

	paid := model.OrderPaid
	list, err := s.Orders().List(ctx, repository.OrderFilter{Status: &paid})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].PaidAt)

	n, err := s.Orders().CountLinesByProduct(ctx, f.product.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.Orders().Get(ctx, 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCartLines_CRUD(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s, 10)
	ctx := context.Background()

	l := &model.CartLine{UserID: 1, ProductID: f.product.ID, Quantity: 2, UnitPrice: f.product.Price}
	require.NoError(t, s.CartLines().Create(ctx, l))
	assert.Error(t, s.CartLines().Create(ctx, &model.CartLine{UserID: 1, ProductID: f.product.ID, Quantity: 1, UnitPrice: f.product.Price}))

	l.Quantity = 5
	require.NoError(t, s.CartLines().Update(ctx, l))
	got, err := s.CartLines().Get(ctx, 1, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	n, err := s.CartLines().DeleteByProduct(ctx, f.product.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.ErrorIs(t, s.CartLines().Delete(ctx, 1, f.product.ID), apperr.ErrNotFound)
}
