// Package gormstore implements repository.Store on gorm for PostgreSQL.
//
// Atomic maps to a database transaction. GetForUpdate issues SELECT ... FOR UPDATE so
// concurrent units touching the same row queue behind each other, and stock changes
// are single conditional UPDATE statements.
package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

// Store wraps a gorm handle, either the pool or an open transaction
type Store struct {
	db *gorm.DB
}

var _ repository.Store = (*Store)(nil)

// New returns a Store on db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Models lists every table the store needs, for migrations
func Models() []interface{} {
	return []interface{}{
		&model.Category{},
		&model.Subcategory{},
		&model.Product{},
		&model.CartLine{},
		&model.Order{},
		&model.OrderLine{},
	}
}

func (s *Store) Categories() repository.CategoryRepository       { return &categoryRepo{db: s.db} }
func (s *Store) Subcategories() repository.SubcategoryRepository { return &subcategoryRepo{db: s.db} }
func (s *Store) Products() repository.ProductRepository          { return &productRepo{db: s.db} }
func (s *Store) CartLines() repository.CartRepository            { return &cartRepo{db: s.db} }
func (s *Store) Orders() repository.OrderRepository              { return &orderRepo{db: s.db} }

// Atomic runs fn in a transaction; nested calls become savepoints
func (s *Store) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// first loads one row by id and turns a missing row into apperr.ErrNotFound
func first(db *gorm.DB, dest interface{}, entity string, id uint) error {
	err := db.First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}

func deleteByID(db *gorm.DB, row interface{}, entity string, id uint) error {
	result := db.Delete(row, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

func countActive(db *gorm.DB, row interface{}, column string, id uint) (repository.ActiveCount, error) {
	var n repository.ActiveCount
	if err := db.Model(row).Where(column+" = ?", id).Count(&n.Total).Error; err != nil {
		return n, err
	}
	if err := db.Model(row).Where(column+" = ? AND active = ?", id, true).Count(&n.Active).Error; err != nil {
		return n, err
	}
	return n, nil
}
