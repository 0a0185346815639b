// Package repository declares the persistence contracts the store engine depends on.
//
// Every repository obtained from the Store passed to an Atomic callback shares that
// unit of work: the whole callback commits or nothing does. Repositories obtained
// outside Atomic run each call on its own.
package repository

import (
	"context"

	"github.com/suteetoe/storecore/internal/model"
)

// Store groups the entity repositories and the atomic-unit runner
type Store interface {
	Categories() CategoryRepository
	Subcategories() SubcategoryRepository
	Products() ProductRepository
	CartLines() CartRepository
	Orders() OrderRepository

	// Atomic runs fn as one unit of work. Any error returned by fn, or a cancelled
	// ctx, rolls back every write made through tx.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

// CategoryFilter narrows ListCategories
type CategoryFilter struct {
	Active *bool
}

// SubcategoryFilter narrows ListSubcategories
type SubcategoryFilter struct {
	CategoryID *uint
	Active     *bool
}

// ProductFilter narrows ListProducts. Limit 0 returns every match.
type ProductFilter struct {
	CategoryID    *uint
	SubcategoryID *uint
	Active        *bool
	InStock       bool
	Offset        int
	Limit         int
}

// OrderFilter narrows ListOrders
type OrderFilter struct {
	UserID *uint
	Status *model.OrderStatus
}

// ActiveCount is a total/active pair used by catalog statistics
type ActiveCount struct {
	Total  int64
	Active int64
}

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	Get(ctx context.Context, id uint) (*model.Category, error)
	// GetForUpdate reads the row and holds it until the unit of work ends
	GetForUpdate(ctx context.Context, id uint) (*model.Category, error)
	List(ctx context.Context, f CategoryFilter) ([]model.Category, error)
	// Update persists name, description and active
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, id uint) error
	NameTaken(ctx context.Context, name string, excludeID uint) (bool, error)
}

type SubcategoryRepository interface {
	Create(ctx context.Context, s *model.Subcategory) error
	Get(ctx context.Context, id uint) (*model.Subcategory, error)
	GetForUpdate(ctx context.Context, id uint) (*model.Subcategory, error)
	List(ctx context.Context, f SubcategoryFilter) ([]model.Subcategory, error)
	// Update persists name, description, category and active
	Update(ctx context.Context, s *model.Subcategory) error
	Delete(ctx context.Context, id uint) error
	NameTaken(ctx context.Context, categoryID uint, name string, excludeID uint) (bool, error)
	CountByCategory(ctx context.Context, categoryID uint) (ActiveCount, error)
	IDsByCategory(ctx context.Context, categoryID uint) ([]uint, error)
	// DeactivateByCategory switches off every active child of the category
	DeactivateByCategory(ctx context.Context, categoryID uint) (int64, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	Get(ctx context.Context, id uint) (*model.Product, error)
	GetForUpdate(ctx context.Context, id uint) (*model.Product, error)
	// List returns one page of matches and the total number of matches
	List(ctx context.Context, f ProductFilter) ([]model.Product, int64, error)
	// Update persists every column except stock
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uint) error
	CountBySubcategory(ctx context.Context, subcategoryID uint) (ActiveCount, error)
	CountByCategory(ctx context.Context, categoryID uint) (ActiveCount, error)
	// DeactivateBySubcategories switches off every active product below the subcategories
	DeactivateBySubcategories(ctx context.Context, subcategoryIDs []uint) (int64, error)
	// MoveSubcategory rewrites the category of every product below the subcategory
	MoveSubcategory(ctx context.Context, subcategoryID, categoryID uint) (int64, error)

	// DecrementStock subtracts qty in a single conditional write and reports false,
	// leaving the row untouched, when fewer than qty units are on hand
	DecrementStock(ctx context.Context, id uint, qty int) (bool, error)
	IncrementStock(ctx context.Context, id uint, qty int) error
	SetStock(ctx context.Context, id uint, qty int) error
}

type CartRepository interface {
	Get(ctx context.Context, userID, productID uint) (*model.CartLine, error)
	ListByUser(ctx context.Context, userID uint) ([]model.CartLine, error)
	Create(ctx context.Context, l *model.CartLine) error
	// Update persists quantity and unit price
	Update(ctx context.Context, l *model.CartLine) error
	Delete(ctx context.Context, userID, productID uint) error
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	DeleteByProduct(ctx context.Context, productID uint) (int64, error)
}

type OrderRepository interface {
	// Create inserts the order together with its lines
	Create(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, id uint) (*model.Order, error)
	GetForUpdate(ctx context.Context, id uint) (*model.Order, error)
	// List returns matches newest first, with lines
	List(ctx context.Context, f OrderFilter) ([]model.Order, error)
	// UpdateStatus persists status and the lifecycle timestamps
	UpdateStatus(ctx context.Context, o *model.Order) error
	CountLinesByProduct(ctx context.Context, productID uint) (int64, error)
}
