package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

type productRepo struct {
	db *gorm.DB
}

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) Get(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	if err := first(r.db.WithContext(ctx), &p, "product", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	if err := first(r.db.WithContext(ctx).Clauses(forUpdate), &p, "product", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func productScope(f repository.ProductFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.CategoryID != nil {
			q = q.Where("category_id = ?", *f.CategoryID)
		}
		if f.SubcategoryID != nil {
			q = q.Where("subcategory_id = ?", *f.SubcategoryID)
		}
		if f.Active != nil {
			q = q.Where("active = ?", *f.Active)
		}
		if f.InStock {
			q = q.Where("stock > 0")
		}
		return q
	}
}

func (r *productRepo) List(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Scopes(productScope(f)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Scopes(productScope(f)).Order("name ASC, id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var products []model.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"name":           p.Name,
		"description":    p.Description,
		"price":          p.Price,
		"image_ref":      p.ImageRef,
		"subcategory_id": p.SubcategoryID,
		"category_id":    p.CategoryID,
		"active":         p.Active,
	}).Error
}

func (r *productRepo) Delete(ctx context.Context, id uint) error {
	return deleteByID(r.db.WithContext(ctx), &model.Product{}, "product", id)
}

func (r *productRepo) CountBySubcategory(ctx context.Context, subcategoryID uint) (repository.ActiveCount, error) {
	return countActive(r.db.WithContext(ctx), &model.Product{}, "subcategory_id", subcategoryID)
}

func (r *productRepo) CountByCategory(ctx context.Context, categoryID uint) (repository.ActiveCount, error) {
	return countActive(r.db.WithContext(ctx), &model.Product{}, "category_id", categoryID)
}

func (r *productRepo) DeactivateBySubcategories(ctx context.Context, subcategoryIDs []uint) (int64, error) {
	if len(subcategoryIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("subcategory_id IN ? AND active = ?", subcategoryIDs, true).
		Update("active", false)
	return result.RowsAffected, result.Error
}

func (r *productRepo) MoveSubcategory(ctx context.Context, subcategoryID, categoryID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("subcategory_id = ?", subcategoryID).
		Update("category_id", categoryID)
	return result.RowsAffected, result.Error
}

// DecrementStock relies on the row lock taken by UPDATE: a concurrent writer waits,
// then re-evaluates "stock >= ?" against the committed value
func (r *productRepo) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *productRepo) IncrementStock(ctx context.Context, id uint, qty int) error {
	return r.updateStock(ctx, id, gorm.Expr("stock + ?", qty))
}

func (r *productRepo) SetStock(ctx context.Context, id uint, qty int) error {
	return r.updateStock(ctx, id, qty)
}

func (r *productRepo) updateStock(ctx context.Context, id uint, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock", value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}
