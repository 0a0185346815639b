package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/internal/validation"
	"github.com/suteetoe/storecore/pkg/logger"
)

// ProductInput creates a product below SubcategoryID, which must belong to CategoryID
type ProductInput struct {
	Name          string          `json:"name" validate:"required,min=3,max=200"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	Stock         int             `json:"stock" validate:"gte=0"`
	ImageRef      string          `json:"image_ref"`
	SubcategoryID uint            `json:"subcategory_id" validate:"required"`
	CategoryID    uint            `json:"category_id" validate:"required"`
}

// ProductUpdate changes the fields that are set. Stock is managed by the inventory ledger.
type ProductUpdate struct {
	Name          *string          `json:"name" validate:"omitempty,min=3,max=200"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	ImageRef      *string          `json:"image_ref"`
	SubcategoryID *uint            `json:"subcategory_id" validate:"omitempty,min=1"`
	CategoryID    *uint            `json:"category_id" validate:"omitempty,min=1"`
}

// ProductQuery filters and pages ListProducts. Page starts at 1; Limit 0 means all.
type ProductQuery struct {
	CategoryID    *uint
	SubcategoryID *uint
	Active        *bool
	InStock       bool
	Page          int
	Limit         int
}

// ProductPage is one page of products
type ProductPage struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// checkParents enforces that both parents exist and are active and that the
// subcategory belongs to the category
func checkParents(ctx context.Context, tx repository.Store, subcategoryID, categoryID uint) error {
	if _, err := activeCategory(ctx, tx, categoryID); err != nil {
		return err
	}
	sub, err := tx.Subcategories().GetForUpdate(ctx, subcategoryID)
	if err != nil {
		return err
	}
	if !sub.Active {
		return apperr.ParentInactive("subcategory", subcategoryID)
	}
	if sub.CategoryID != categoryID {
		return apperr.HierarchyMismatch(subcategoryID, categoryID)
	}
	return nil
}

func (s *Service) withImageURL(p *model.Product) *model.Product {
	p.ImageURL = s.files.URL(p.ImageRef)
	return p
}

// CreateProduct adds an active product below active parents
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	log := logger.FromContext(ctx)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	p := &model.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		Stock:         in.Stock,
		ImageRef:      in.ImageRef,
		SubcategoryID: in.SubcategoryID,
		CategoryID:    in.CategoryID,
		Active:        true,
	}
	err := s.atomic(ctx, "product_create", func(tx repository.Store) error {
		if err := checkParents(ctx, tx, in.SubcategoryID, in.CategoryID); err != nil {
			return err
		}
		return tx.Products().Create(ctx, p)
	})
	if err != nil {
		log.Warn("Product not created",
			zap.String("name", in.Name),
			zap.Uint("subcategory_id", in.SubcategoryID),
			zap.Uint("category_id", in.CategoryID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordCatalogOperation("product", "create")
	s.metrics.UpdateProductInventory(p.ID, p.Stock)
	log.Info("Product created successfully",
		zap.Uint("product_id", p.ID),
		zap.String("name", p.Name),
		zap.Int("stock", p.Stock))
	return s.withImageURL(p), nil
}

// UpdateProduct changes everything but stock and active. A parent change is checked
// like a create; a replaced image is removed from the file store after commit.
func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductUpdate) (*model.Product, error) {
	trimPtr(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var (
		out      *model.Product
		oldImage string
	)
	err := s.atomic(ctx, "product_update", func(tx repository.Store) error {
		p, err := tx.Products().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		subID, catID := p.SubcategoryID, p.CategoryID
		if in.SubcategoryID != nil {
			subID = *in.SubcategoryID
		}
		if in.CategoryID != nil {
			catID = *in.CategoryID
		}
		if subID != p.SubcategoryID || catID != p.CategoryID {
			if err := checkParents(ctx, tx, subID, catID); err != nil {
				return err
			}
			p.SubcategoryID, p.CategoryID = subID, catID
		}

		if in.Name != nil {
			p.Name = *in.Name
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.Price != nil {
			p.Price = *in.Price
		}
		if in.ImageRef != nil && *in.ImageRef != p.ImageRef {
			oldImage = p.ImageRef
			p.ImageRef = *in.ImageRef
		}
		if err := tx.Products().Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.removeFile(ctx, oldImage)
	s.metrics.RecordCatalogOperation("product", "update")
	logger.FromContext(ctx).Info("Product updated successfully", zap.Uint("product_id", id))
	return s.withImageURL(out), nil
}

// GetProduct returns a product with its image URL resolved
func (s *Service) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	p, err := s.store.Products().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withImageURL(p), nil
}

// ListProducts returns one page of products ordered by name
func (s *Service) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 0 {
		q.Limit = 0
	}

	f := repository.ProductFilter{
		CategoryID:    q.CategoryID,
		SubcategoryID: q.SubcategoryID,
		Active:        q.Active,
		InStock:       q.InStock,
		Limit:         q.Limit,
	}
	if q.Limit > 0 {
		f.Offset = (q.Page - 1) * q.Limit
	}

	items, total, err := s.store.Products().List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.withImageURL(&items[i])
	}
	return &ProductPage{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// ToggleProduct flips active on a single product
func (s *Service) ToggleProduct(ctx context.Context, id uint) (*ToggleResult, error) {
	res := &ToggleResult{ID: id}
	err := s.atomic(ctx, "product_toggle", func(tx repository.Store) error {
		p, err := tx.Products().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.Active = !p.Active
		res.Active = p.Active
		return tx.Products().Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCatalogOperation("product", "toggle")
	logger.FromContext(ctx).Info("Product toggled", zap.Uint("product_id", id), zap.Bool("active", res.Active))
	return res, nil
}

// DeleteProduct removes a product no order references, together with the cart lines
// holding it. The image file is removed after commit, best-effort.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	log := logger.FromContext(ctx)

	var (
		imageRef     string
		cartsTouched int64
	)
	err := s.atomic(ctx, "product_delete", func(tx repository.Store) error {
		p, err := tx.Products().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		lines, err := tx.Orders().CountLinesByProduct(ctx, id)
		if err != nil {
			return err
		}
		if lines > 0 {
			return apperr.HasDependents("product", id, "order lines", lines)
		}
		if cartsTouched, err = tx.CartLines().DeleteByProduct(ctx, id); err != nil {
			return err
		}
		imageRef = p.ImageRef
		return tx.Products().Delete(ctx, id)
	})
	if err != nil {
		log.Warn("Product not deleted", zap.Uint("product_id", id), zap.Error(err))
		return err
	}

	s.removeFile(ctx, imageRef)
	s.metrics.RecordCatalogOperation("product", "delete")
	log.Info("Product deleted successfully",
		zap.Uint("product_id", id),
		zap.Int64("cart_lines_removed", cartsTouched))
	return nil
}
