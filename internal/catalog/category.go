package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/internal/validation"
	"github.com/suteetoe/storecore/pkg/logger"
)

// CategoryInput creates a category
type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description"`
}

// CategoryUpdate changes the fields that are set
type CategoryUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description"`
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func duplicateName(kind string) error {
	return apperr.Invalid("name", "unique", kind+" name already exists")
}

// CreateCategory adds an active category
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	log := logger.FromContext(ctx)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	taken, err := s.store.Categories().NameTaken(ctx, in.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		log.Warn("Category with this name already exists", zap.String("name", in.Name))
		return nil, duplicateName("category")
	}

	c := &model.Category{Name: in.Name, Description: in.Description, Active: true}
	if err := s.store.Categories().Create(ctx, c); err != nil {
		log.Error("Failed to create category", zap.String("name", in.Name), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordCatalogOperation("category", "create")
	log.Info("Category created successfully", zap.Uint("category_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// UpdateCategory changes name and description. Active only changes through ToggleCategory.
func (s *Service) UpdateCategory(ctx context.Context, id uint, in CategoryUpdate) (*model.Category, error) {
	trimPtr(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var out *model.Category
	err := s.atomic(ctx, "category_update", func(tx repository.Store) error {
		c, err := tx.Categories().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil && *in.Name != c.Name {
			taken, err := tx.Categories().NameTaken(ctx, *in.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return duplicateName("category")
			}
			c.Name = *in.Name
		}
		if in.Description != nil {
			c.Description = *in.Description
		}
		if err := tx.Categories().Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCatalogOperation("category", "update")
	logger.FromContext(ctx).Info("Category updated successfully", zap.Uint("category_id", id))
	return out, nil
}

// GetCategory returns a category by id
func (s *Service) GetCategory(ctx context.Context, id uint) (*model.Category, error) {
	return s.store.Categories().Get(ctx, id)
}

// ListCategories returns categories ordered by name
func (s *Service) ListCategories(ctx context.Context, f repository.CategoryFilter) ([]model.Category, error) {
	return s.store.Categories().List(ctx, f)
}

// ToggleCategory flips active. Deactivation switches off every subcategory of the
// category and every product below them in the same unit; activation touches only
// the category.
func (s *Service) ToggleCategory(ctx context.Context, id uint) (*ToggleResult, error) {
	res := &ToggleResult{ID: id}
	err := s.atomic(ctx, "category_toggle", func(tx repository.Store) error {
		c, err := tx.Categories().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		c.Active = !c.Active
		if err := tx.Categories().Update(ctx, c); err != nil {
			return err
		}
		res.Active = c.Active
		if c.Active {
			return nil
		}

		if res.SubcategoriesDeactivated, err = tx.Subcategories().DeactivateByCategory(ctx, id); err != nil {
			return err
		}
		subIDs, err := tx.Subcategories().IDsByCategory(ctx, id)
		if err != nil {
			return err
		}
		res.ProductsDeactivated, err = tx.Products().DeactivateBySubcategories(ctx, subIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCatalogOperation("category", "toggle")
	s.metrics.RecordCascade("subcategory", res.SubcategoriesDeactivated)
	s.metrics.RecordCascade("product", res.ProductsDeactivated)
	logger.FromContext(ctx).Info("Category toggled",
		zap.Uint("category_id", id),
		zap.Bool("active", res.Active),
		zap.Int64("subcategories_deactivated", res.SubcategoriesDeactivated),
		zap.Int64("products_deactivated", res.ProductsDeactivated))
	return res, nil
}

// DeleteCategory removes a category without subcategories or products
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	err := s.atomic(ctx, "category_delete", func(tx repository.Store) error {
		if _, err := tx.Categories().GetForUpdate(ctx, id); err != nil {
			return err
		}
		subs, err := tx.Subcategories().CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if subs.Total > 0 {
			return apperr.HasDependents("category", id, "subcategories", subs.Total)
		}
		products, err := tx.Products().CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if products.Total > 0 {
			return apperr.HasDependents("category", id, "products", products.Total)
		}
		return tx.Categories().Delete(ctx, id)
	})
	if err != nil {
		logger.FromContext(ctx).Warn("Category not deleted", zap.Uint("category_id", id), zap.Error(err))
		return err
	}

	s.metrics.RecordCatalogOperation("category", "delete")
	logger.FromContext(ctx).Info("Category deleted successfully", zap.Uint("category_id", id))
	return nil
}
