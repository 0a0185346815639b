package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

type orderRepo struct {
	db *gorm.DB
}

func linesInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (r *orderRepo) Create(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) Get(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	if err := first(r.db.WithContext(ctx).Preload("Lines", linesInOrder), &o, "order", id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	q := r.db.WithContext(ctx).Clauses(forUpdate).Preload("Lines", linesInOrder)
	if err := first(q, &o, "order", id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, f repository.OrderFilter) ([]model.Order, error) {
	q := r.db.WithContext(ctx).Preload("Lines", linesInOrder)
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	var orders []model.Order
	err := q.Order("id DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Model(&model.Order{ID: o.ID}).Updates(map[string]interface{}{
		"status":       string(o.Status),
		"paid_at":      o.PaidAt,
		"shipped_at":   o.ShippedAt,
		"delivered_at": o.DeliveredAt,
	}).Error
}

func (r *orderRepo) CountLinesByProduct(ctx context.Context, productID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderLine{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}
