// Package memstore is an in-memory repository.Store.
//
// Atomic units run one at a time on a private copy of the data which replaces the
// live copy only on success, so a failed or cancelled unit leaves no trace.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

type data struct {
	categories    map[uint]model.Category
	subcategories map[uint]model.Subcategory
	products      map[uint]model.Product
	cartLines     map[uint]model.CartLine
	orders        map[uint]model.Order
	orderLines    map[uint]model.OrderLine

	nextCategoryID    uint
	nextSubcategoryID uint
	nextProductID     uint
	nextCartLineID    uint
	nextOrderID       uint
	nextOrderLineID   uint
}

func newData() *data {
	return &data{
		categories:    make(map[uint]model.Category),
		subcategories: make(map[uint]model.Subcategory),
		products:      make(map[uint]model.Product),
		cartLines:     make(map[uint]model.CartLine),
		orders:        make(map[uint]model.Order),
		orderLines:    make(map[uint]model.OrderLine),
	}
}

func cloneMap[V any](m map[uint]V) map[uint]V {
	out := make(map[uint]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies every table. Rows are values and Order rows are stored without
// lines, so a shallow map copy is a full snapshot.
func (d *data) clone() *data {
	c := *d
	c.categories = cloneMap(d.categories)
	c.subcategories = cloneMap(d.subcategories)
	c.products = cloneMap(d.products)
	c.cartLines = cloneMap(d.cartLines)
	c.orders = cloneMap(d.orders)
	c.orderLines = cloneMap(d.orderLines)
	return &c
}

// Store is safe for concurrent use
type Store struct {
	mu    sync.Mutex
	state *data
	now   func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{state: newData(), now: time.Now}
}

// view routes repository calls either to the live data under the store lock or
// to the working copy of an atomic unit
type view struct {
	s  *Store
	tx *data
}

func (v *view) with(fn func(d *data) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.state)
}

func (s *Store) root() *view { return &view{s: s} }

func (s *Store) Categories() repository.CategoryRepository       { return categoryRepo{s.root()} }
func (s *Store) Subcategories() repository.SubcategoryRepository { return subcategoryRepo{s.root()} }
func (s *Store) Products() repository.ProductRepository          { return productRepo{s.root()} }
func (s *Store) CartLines() repository.CartRepository            { return cartRepo{s.root()} }
func (s *Store) Orders() repository.OrderRepository              { return orderRepo{s.root()} }

// Atomic runs fn on a snapshot and publishes it only if fn and ctx both succeed
func (s *Store) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&txStore{v: &view{s: s, tx: work}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

type txStore struct {
	v *view
}

func (t *txStore) Categories() repository.CategoryRepository       { return categoryRepo{t.v} }
func (t *txStore) Subcategories() repository.SubcategoryRepository { return subcategoryRepo{t.v} }
func (t *txStore) Products() repository.ProductRepository          { return productRepo{t.v} }
func (t *txStore) CartLines() repository.CartRepository            { return cartRepo{t.v} }
func (t *txStore) Orders() repository.OrderRepository              { return orderRepo{t.v} }

// Atomic inside a unit behaves like a savepoint
func (t *txStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	work := t.v.tx.clone()
	if err := fn(&txStore{v: &view{s: t.v.s, tx: work}}); err != nil {
		return err
	}
	*t.v.tx = *work
	return nil
}

func sortByName[T any](rows []T, name func(T) string, id func(T) uint) {
	sort.Slice(rows, func(i, j int) bool {
		if name(rows[i]) != name(rows[j]) {
			return name(rows[i]) < name(rows[j])
		}
		return id(rows[i]) < id(rows[j])
	})
}
