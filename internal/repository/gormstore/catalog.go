package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

type categoryRepo struct {
	db *gorm.DB
}

func (r *categoryRepo) Create(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *categoryRepo) Get(ctx context.Context, id uint) (*model.Category, error) {
	var c model.Category
	if err := first(r.db.WithContext(ctx), &c, "category", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) GetForUpdate(ctx context.Context, id uint) (*model.Category, error) {
	var c model.Category
	if err := first(r.db.WithContext(ctx).Clauses(forUpdate), &c, "category", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) List(ctx context.Context, f repository.CategoryFilter) ([]model.Category, error) {
	q := r.db.WithContext(ctx)
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	var categories []model.Category
	err := q.Order("name ASC, id ASC").Find(&categories).Error
	return categories, err
}

func (r *categoryRepo) Update(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Model(c).Updates(map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
		"active":      c.Active,
	}).Error
}

func (r *categoryRepo) Delete(ctx context.Context, id uint) error {
	return deleteByID(r.db.WithContext(ctx), &model.Category{}, "category", id)
}

func (r *categoryRepo) NameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count).Error
	return count > 0, err
}

type subcategoryRepo struct {
	db *gorm.DB
}

func (r *subcategoryRepo) Create(ctx context.Context, s *model.Subcategory) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *subcategoryRepo) Get(ctx context.Context, id uint) (*model.Subcategory, error) {
	var s model.Subcategory
	if err := first(r.db.WithContext(ctx), &s, "subcategory", id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subcategoryRepo) GetForUpdate(ctx context.Context, id uint) (*model.Subcategory, error) {
	var s model.Subcategory
	if err := first(r.db.WithContext(ctx).Clauses(forUpdate), &s, "subcategory", id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subcategoryRepo) List(ctx context.Context, f repository.SubcategoryFilter) ([]model.Subcategory, error) {
	q := r.db.WithContext(ctx)
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	var subs []model.Subcategory
	err := q.Order("name ASC, id ASC").Find(&subs).Error
	return subs, err
}

func (r *subcategoryRepo) Update(ctx context.Context, s *model.Subcategory) error {
	return r.db.WithContext(ctx).Model(s).Updates(map[string]interface{}{
		"name":        s.Name,
		"description": s.Description,
		"category_id": s.CategoryID,
		"active":      s.Active,
	}).Error
}

func (r *subcategoryRepo) Delete(ctx context.Context, id uint) error {
	return deleteByID(r.db.WithContext(ctx), &model.Subcategory{}, "subcategory", id)
}

func (r *subcategoryRepo) NameTaken(ctx context.Context, categoryID uint, name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Subcategory{}).
		Where("category_id = ? AND name = ? AND id <> ?", categoryID, name, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *subcategoryRepo) CountByCategory(ctx context.Context, categoryID uint) (repository.ActiveCount, error) {
	return countActive(r.db.WithContext(ctx), &model.Subcategory{}, "category_id", categoryID)
}

func (r *subcategoryRepo) IDsByCategory(ctx context.Context, categoryID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Subcategory{}).
		Where("category_id = ?", categoryID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *subcategoryRepo) DeactivateByCategory(ctx context.Context, categoryID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Subcategory{}).
		Where("category_id = ? AND active = ?", categoryID, true).
		Update("active", false)
	return result.RowsAffected, result.Error
}
