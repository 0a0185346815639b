package memstore

import (
	"context"
	"fmt"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

type categoryRepo struct{ v *view }

func (r categoryRepo) Create(ctx context.Context, c *model.Category) error {
	return r.v.with(func(d *data) error {
		for _, existing := range d.categories {
			if existing.Name == c.Name {
				return fmt.Errorf("duplicate category name %q", c.Name)
			}
		}
		d.nextCategoryID++
		now := r.v.s.now()
		c.ID, c.CreatedAt, c.UpdatedAt = d.nextCategoryID, now, now
		d.categories[c.ID] = *c
		return nil
	})
}

func (r categoryRepo) Get(ctx context.Context, id uint) (*model.Category, error) {
	var out model.Category
	err := r.v.with(func(d *data) error {
		c, ok := d.categories[id]
		if !ok {
			return apperr.NotFound("category", id)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r categoryRepo) GetForUpdate(ctx context.Context, id uint) (*model.Category, error) {
	return r.Get(ctx, id)
}

func (r categoryRepo) List(ctx context.Context, f repository.CategoryFilter) ([]model.Category, error) {
	var out []model.Category
	err := r.v.with(func(d *data) error {
		for _, c := range d.categories {
			if f.Active != nil && c.Active != *f.Active {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	sortByName(out, func(c model.Category) string { return c.Name }, func(c model.Category) uint { return c.ID })
	return out, err
}

func (r categoryRepo) Update(ctx context.Context, c *model.Category) error {
	return r.v.with(func(d *data) error {
		existing, ok := d.categories[c.ID]
		if !ok {
			return apperr.NotFound("category", c.ID)
		}
		existing.Name, existing.Description, existing.Active = c.Name, c.Description, c.Active
		existing.UpdatedAt = r.v.s.now()
		d.categories[c.ID] = existing
		*c = existing
		return nil
	})
}

func (r categoryRepo) Delete(ctx context.Context, id uint) error {
	return r.v.with(func(d *data) error {
		if _, ok := d.categories[id]; !ok {
			return apperr.NotFound("category", id)
		}
		delete(d.categories, id)
		return nil
	})
}

func (r categoryRepo) NameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	taken := false
	err := r.v.with(func(d *data) error {
		for _, c := range d.categories {
			if c.Name == name && c.ID != excludeID {
				taken = true
			}
		}
		return nil
	})
	return taken, err
}

type subcategoryRepo struct{ v *view }

func (r subcategoryRepo) Create(ctx context.Context, s *model.Subcategory) error {
	return r.v.with(func(d *data) error {
		for _, existing := range d.subcategories {
			if existing.CategoryID == s.CategoryID && existing.Name == s.Name {
				return fmt.Errorf("duplicate subcategory name %q in category %d", s.Name, s.CategoryID)
			}
		}
		d.nextSubcategoryID++
		now := r.v.s.now()
		s.ID, s.CreatedAt, s.UpdatedAt = d.nextSubcategoryID, now, now
		d.subcategories[s.ID] = *s
		return nil
	})
}

func (r subcategoryRepo) Get(ctx context.Context, id uint) (*model.Subcategory, error) {
	var out model.Subcategory
	err := r.v.with(func(d *data) error {
		s, ok := d.subcategories[id]
		if !ok {
			return apperr.NotFound("subcategory", id)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r subcategoryRepo) GetForUpdate(ctx context.Context, id uint) (*model.Subcategory, error) {
	return r.Get(ctx, id)
}

func (r subcategoryRepo) List(ctx context.Context, f repository.SubcategoryFilter) ([]model.Subcategory, error) {
	var out []model.Subcategory
	err := r.v.with(func(d *data) error {
		for _, s := range d.subcategories {
			if f.CategoryID != nil && s.CategoryID != *f.CategoryID {
				continue
			}
			if f.Active != nil && s.Active != *f.Active {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	sortByName(out, func(s model.Subcategory) string { return s.Name }, func(s model.Subcategory) uint { return s.ID })
	return out, err
}

func (r subcategoryRepo) Update(ctx context.Context, s *model.Subcategory) error {
	return r.v.with(func(d *data) error {
		existing, ok := d.subcategories[s.ID]
		if !ok {
			return apperr.NotFound("subcategory", s.ID)
		}
		existing.Name, existing.Description = s.Name, s.Description
		existing.CategoryID, existing.Active = s.CategoryID, s.Active
		existing.UpdatedAt = r.v.s.now()
		d.subcategories[s.ID] = existing
		*s = existing
		return nil
	})
}

func (r subcategoryRepo) Delete(ctx context.Context, id uint) error {
	return r.v.with(func(d *data) error {
		if _, ok := d.subcategories[id]; !ok {
			return apperr.NotFound("subcategory", id)
		}
		delete(d.subcategories, id)
		return nil
	})
}

func (r subcategoryRepo) NameTaken(ctx context.Context, categoryID uint, name string, excludeID uint) (bool, error) {
	taken := false
	err := r.v.with(func(d *data) error {
		for _, s := range d.subcategories {
			if s.CategoryID == categoryID && s.Name == name && s.ID != excludeID {
				taken = true
			}
		}
		return nil
	})
	return taken, err
}

func (r subcategoryRepo) CountByCategory(ctx context.Context, categoryID uint) (repository.ActiveCount, error) {
	var n repository.ActiveCount
	err := r.v.with(func(d *data) error {
		for _, s := range d.subcategories {
			if s.CategoryID != categoryID {
				continue
			}
			n.Total++
			if s.Active {
				n.Active++
			}
		}
		return nil
	})
	return n, err
}

func (r subcategoryRepo) IDsByCategory(ctx context.Context, categoryID uint) ([]uint, error) {
	subs, err := r.List(ctx, repository.SubcategoryFilter{CategoryID: &categoryID})
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (r subcategoryRepo) DeactivateByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := r.v.with(func(d *data) error {
		now := r.v.s.now()
		for id, s := range d.subcategories {
			if s.CategoryID == categoryID && s.Active {
				s.Active, s.UpdatedAt = false, now
				d.subcategories[id] = s
				n++
			}
		}
		return nil
	})
	return n, err
}
