package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
)

type cartRepo struct {
	db *gorm.DB
}

func (r *cartRepo) Get(ctx context.Context, userID, productID uint) (*model.CartLine, error) {
	var l model.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("cart line for product", productID)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *cartRepo) ListByUser(ctx context.Context, userID uint) ([]model.CartLine, error) {
	var lines []model.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *cartRepo) Create(ctx context.Context, l *model.CartLine) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *cartRepo) Update(ctx context.Context, l *model.CartLine) error {
	result := r.db.WithContext(ctx).Model(&model.CartLine{}).
		Where("user_id = ? AND product_id = ?", l.UserID, l.ProductID).
		Updates(map[string]interface{}{
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("cart line for product", l.ProductID)
	}
	return nil
}

func (r *cartRepo) Delete(ctx context.Context, userID, productID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.CartLine{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("cart line for product", productID)
	}
	return nil
}

func (r *cartRepo) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartLine{})
	return result.RowsAffected, result.Error
}

func (r *cartRepo) DeleteByProduct(ctx context.Context, productID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&model.CartLine{})
	return result.RowsAffected, result.Error
}
