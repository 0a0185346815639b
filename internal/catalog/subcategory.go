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

// SubcategoryInput creates a subcategory below CategoryID
type SubcategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description"`
	CategoryID  uint   `json:"category_id" validate:"required"`
}

// SubcategoryUpdate changes the fields that are set. A new CategoryID moves the
// subcategory and its products.
type SubcategoryUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description"`
	CategoryID  *uint   `json:"category_id" validate:"omitempty,min=1"`
}

// activeCategory locks the category and requires it to be active
func activeCategory(ctx context.Context, tx repository.Store, id uint) (*model.Category, error) {
	c, err := tx.Categories().GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, apperr.ParentInactive("category", id)
	}
	return c, nil
}

// CreateSubcategory adds an active subcategory below an existing, active category
func (s *Service) CreateSubcategory(ctx context.Context, in SubcategoryInput) (*model.Subcategory, error) {
	log := logger.FromContext(ctx)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	sub := &model.Subcategory{Name: in.Name, Description: in.Description, CategoryID: in.CategoryID, Active: true}
	err := s.atomic(ctx, "subcategory_create", func(tx repository.Store) error {
		if _, err := activeCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		taken, err := tx.Subcategories().NameTaken(ctx, in.CategoryID, in.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return duplicateName("subcategory")
		}
		return tx.Subcategories().Create(ctx, sub)
	})
	if err != nil {
		log.Warn("Subcategory not created",
			zap.String("name", in.Name),
			zap.Uint("category_id", in.CategoryID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordCatalogOperation("subcategory", "create")
	log.Info("Subcategory created successfully",
		zap.Uint("subcategory_id", sub.ID),
		zap.Uint("category_id", sub.CategoryID))
	return sub, nil
}

// UpdateSubcategory changes name, description or owning category. Moving to another
// category requires it to be active and moves the products along.
func (s *Service) UpdateSubcategory(ctx context.Context, id uint, in SubcategoryUpdate) (*model.Subcategory, error) {
	trimPtr(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var (
		out   *model.Subcategory
		moved int64
	)
	err := s.atomic(ctx, "subcategory_update", func(tx repository.Store) error {
		sub, err := tx.Subcategories().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		targetCategory := sub.CategoryID
		if in.CategoryID != nil && *in.CategoryID != sub.CategoryID {
			if _, err := activeCategory(ctx, tx, *in.CategoryID); err != nil {
				return err
			}
			targetCategory = *in.CategoryID
		}
		name := sub.Name
		if in.Name != nil {
			name = *in.Name
		}
		if name != sub.Name || targetCategory != sub.CategoryID {
			taken, err := tx.Subcategories().NameTaken(ctx, targetCategory, name, id)
			if err != nil {
				return err
			}
			if taken {
				return duplicateName("subcategory")
			}
		}

		if targetCategory != sub.CategoryID {
			if moved, err = tx.Products().MoveSubcategory(ctx, id, targetCategory); err != nil {
				return err
			}
		}
		sub.Name, sub.CategoryID = name, targetCategory
		if in.Description != nil {
			sub.Description = *in.Description
		}
		if err := tx.Subcategories().Update(ctx, sub); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCatalogOperation("subcategory", "update")
	logger.FromContext(ctx).Info("Subcategory updated successfully",
		zap.Uint("subcategory_id", id),
		zap.Uint("category_id", out.CategoryID),
		zap.Int64("products_moved", moved))
	return out, nil
}

// GetSubcategory returns a subcategory by id
func (s *Service) GetSubcategory(ctx context.Context, id uint) (*model.Subcategory, error) {
	return s.store.Subcategories().Get(ctx, id)
}

// ListSubcategories returns subcategories ordered by name
func (s *Service) ListSubcategories(ctx context.Context, f repository.SubcategoryFilter) ([]model.Subcategory, error) {
	return s.store.Subcategories().List(ctx, f)
}

// ToggleSubcategory flips active. Deactivation switches off the products of the
// subcategory in the same unit and never touches the parent category.
func (s *Service) ToggleSubcategory(ctx context.Context, id uint) (*ToggleResult, error) {
	res := &ToggleResult{ID: id}
	err := s.atomic(ctx, "subcategory_toggle", func(tx repository.Store) error {
		sub, err := tx.Subcategories().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		sub.Active = !sub.Active
		if err := tx.Subcategories().Update(ctx, sub); err != nil {
			return err
		}
		res.Active = sub.Active
		if sub.Active {
			return nil
		}
		res.ProductsDeactivated, err = tx.Products().DeactivateBySubcategories(ctx, []uint{id})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCatalogOperation("subcategory", "toggle")
	s.metrics.RecordCascade("product", res.ProductsDeactivated)
	logger.FromContext(ctx).Info("Subcategory toggled",
		zap.Uint("subcategory_id", id),
		zap.Bool("active", res.Active),
		zap.Int64("products_deactivated", res.ProductsDeactivated))
	return res, nil
}

// DeleteSubcategory removes a subcategory without products
func (s *Service) DeleteSubcategory(ctx context.Context, id uint) error {
	err := s.atomic(ctx, "subcategory_delete", func(tx repository.Store) error {
		if _, err := tx.Subcategories().GetForUpdate(ctx, id); err != nil {
			return err
		}
		products, err := tx.Products().CountBySubcategory(ctx, id)
		if err != nil {
			return err
		}
		if products.Total > 0 {
			return apperr.HasDependents("subcategory", id, "products", products.Total)
		}
		return tx.Subcategories().Delete(ctx, id)
	})
	if err != nil {
		logger.FromContext(ctx).Warn("Subcategory not deleted", zap.Uint("subcategory_id", id), zap.Error(err))
		return err
	}

	s.metrics.RecordCatalogOperation("subcategory", "delete")
	logger.FromContext(ctx).Info("Subcategory deleted successfully", zap.Uint("subcategory_id", id))
	return nil
}
