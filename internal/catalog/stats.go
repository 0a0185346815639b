package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

// Counts splits a number of records by active flag
type Counts struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

func countsOf(c repository.ActiveCount) Counts {
	return Counts{Total: c.Total, Active: c.Active, Inactive: c.Total - c.Active}
}

// Inventory sums the stock of a set of products
type Inventory struct {
	Stock int64           `json:"stock"`
	Value decimal.Decimal `json:"value"`
}

// CategoryStats summarises what lives below a category
type CategoryStats struct {
	Category      *model.Category `json:"category"`
	Subcategories Counts          `json:"subcategories"`
	Products      Counts          `json:"products"`
	Inventory     Inventory       `json:"inventory"`
}

// SubcategoryStats summarises the products of a subcategory
type SubcategoryStats struct {
	Subcategory *model.Subcategory `json:"subcategory"`
	Products    Counts             `json:"products"`
	Inventory   Inventory          `json:"inventory"`
}

func (s *Service) inventory(ctx context.Context, f repository.ProductFilter) (Inventory, error) {
	products, _, err := s.store.Products().List(ctx, f)
	if err != nil {
		return Inventory{}, err
	}
	inv := Inventory{Value: decimal.Zero}
	for i := range products {
		inv.Stock += int64(products[i].Stock)
		inv.Value = inv.Value.Add(products[i].InventoryValue())
	}
	return inv, nil
}

// CategoryStats counts subcategories and products of a category and values its stock
func (s *Service) CategoryStats(ctx context.Context, id uint) (*CategoryStats, error) {
	c, err := s.store.Categories().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.Subcategories().CountByCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	products, err := s.store.Products().CountByCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	inv, err := s.inventory(ctx, repository.ProductFilter{CategoryID: &id})
	if err != nil {
		return nil, err
	}

	return &CategoryStats{
		Category:      c,
		Subcategories: countsOf(subs),
		Products:      countsOf(products),
		Inventory:     inv,
	}, nil
}

// SubcategoryStats counts products of a subcategory and values its stock
func (s *Service) SubcategoryStats(ctx context.Context, id uint) (*SubcategoryStats, error) {
	sub, err := s.store.Subcategories().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	products, err := s.store.Products().CountBySubcategory(ctx, id)
	if err != nil {
		return nil, err
	}
	inv, err := s.inventory(ctx, repository.ProductFilter{SubcategoryID: &id})
	if err != nil {
		return nil, err
	}

	return &SubcategoryStats{
		Subcategory: sub,
		Products:    countsOf(products),
		Inventory:   inv,
	}, nil
}
