package memstore

import (
	"context"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

type productRepo struct{ v *view }

func (r productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.v.with(func(d *data) error {
		d.nextProductID++
		now := r.v.s.now()
		p.ID, p.CreatedAt, p.UpdatedAt = d.nextProductID, now, now
		d.products[p.ID] = *p
		return nil
	})
}

func (r productRepo) Get(ctx context.Context, id uint) (*model.Product, error) {
	var out model.Product
	err := r.v.with(func(d *data) error {
		p, ok := d.products[id]
		if !ok {
			return apperr.NotFound("product", id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r productRepo) GetForUpdate(ctx context.Context, id uint) (*model.Product, error) {
	return r.Get(ctx, id)
}

func matchProduct(p model.Product, f repository.ProductFilter) bool {
	switch {
	case f.CategoryID != nil && p.CategoryID != *f.CategoryID:
		return false
	case f.SubcategoryID != nil && p.SubcategoryID != *f.SubcategoryID:
		return false
	case f.Active != nil && p.Active != *f.Active:
		return false
	case f.InStock && p.Stock <= 0:
		return false
	}
	return true
}

func (r productRepo) List(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error) {
	var all []model.Product
	err := r.v.with(func(d *data) error {
		for _, p := range d.products {
			if matchProduct(p, f) {
				all = append(all, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sortByName(all, func(p model.Product) string { return p.Name }, func(p model.Product) uint { return p.ID })

	total := int64(len(all))
	if f.Offset > 0 {
		if f.Offset >= len(all) {
			return []model.Product{}, total, nil
		}
		all = all[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.v.with(func(d *data) error {
		existing, ok := d.products[p.ID]
		if !ok {
			return apperr.NotFound("product", p.ID)
		}
		stock := existing.Stock
		existing = *p
		existing.Stock = stock
		existing.UpdatedAt = r.v.s.now()
		d.products[p.ID] = existing
		*p = existing
		return nil
	})
}

func (r productRepo) Delete(ctx context.Context, id uint) error {
	return r.v.with(func(d *data) error {
		if _, ok := d.products[id]; !ok {
			return apperr.NotFound("product", id)
		}
		delete(d.products, id)
		return nil
	})
}

func (r productRepo) count(match func(model.Product) bool) (repository.ActiveCount, error) {
	var n repository.ActiveCount
	err := r.v.with(func(d *data) error {
		for _, p := range d.products {
			if !match(p) {
				continue
			}
			n.Total++
			if p.Active {
				n.Active++
			}
		}
		return nil
	})
	return n, err
}

func (r productRepo) CountBySubcategory(ctx context.Context, subcategoryID uint) (repository.ActiveCount, error) {
	return r.count(func(p model.Product) bool { return p.SubcategoryID == subcategoryID })
}

func (r productRepo) CountByCategory(ctx context.Context, categoryID uint) (repository.ActiveCount, error) {
	return r.count(func(p model.Product) bool { return p.CategoryID == categoryID })
}

func (r productRepo) DeactivateBySubcategories(ctx context.Context, subcategoryIDs []uint) (int64, error) {
	wanted := make(map[uint]bool, len(subcategoryIDs))
	for _, id := range subcategoryIDs {
		wanted[id] = true
	}
	var n int64
	err := r.v.with(func(d *data) error {
		now := r.v.s.now()
		for id, p := range d.products {
			if wanted[p.SubcategoryID] && p.Active {
				p.Active, p.UpdatedAt = false, now
				d.products[id] = p
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r productRepo) MoveSubcategory(ctx context.Context, subcategoryID, categoryID uint) (int64, error) {
	var n int64
	err := r.v.with(func(d *data) error {
		now := r.v.s.now()
		for id, p := range d.products {
			if p.SubcategoryID == subcategoryID {
				p.CategoryID, p.UpdatedAt = categoryID, now
				d.products[id] = p
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r productRepo) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	ok := false
	err := r.v.with(func(d *data) error {
		p, found := d.products[id]
		if !found {
			return apperr.NotFound("product", id)
		}
		if p.Stock < qty {
			return nil
		}
		p.Stock -= qty
		p.UpdatedAt = r.v.s.now()
		d.products[id] = p
		ok = true
		return nil
	})
	return ok, err
}

func (r productRepo) IncrementStock(ctx context.Context, id uint, qty int) error {
	return r.v.with(func(d *data) error {
		p, found := d.products[id]
		if !found {
			return apperr.NotFound("product", id)
		}
		p.Stock += qty
		p.UpdatedAt = r.v.s.now()
		d.products[id] = p
		return nil
	})
}

func (r productRepo) SetStock(ctx context.Context, id uint, qty int) error {
	return r.v.with(func(d *data) error {
		p, found := d.products[id]
		if !found {
			return apperr.NotFound("product", id)
		}
		p.Stock = qty
		p.UpdatedAt = r.v.s.now()
		d.products[id] = p
		return nil
	})
}
