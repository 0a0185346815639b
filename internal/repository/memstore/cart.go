package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
)

type cartRepo struct{ v *view }

func findCartLine(d *data, userID, productID uint) (model.CartLine, bool) {
	for _, l := range d.cartLines {
		if l.UserID == userID && l.ProductID == productID {
			return l, true
		}
	}
	return model.CartLine{}, false
}

func (r cartRepo) Get(ctx context.Context, userID, productID uint) (*model.CartLine, error) {
	var out model.CartLine
	err := r.v.with(func(d *data) error {
		l, ok := findCartLine(d, userID, productID)
		if !ok {
			return apperr.NotFound("cart line for product", productID)
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r cartRepo) ListByUser(ctx context.Context, userID uint) ([]model.CartLine, error) {
	var out []model.CartLine
	err := r.v.with(func(d *data) error {
		for _, l := range d.cartLines {
			if l.UserID == userID {
				out = append(out, l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r cartRepo) Create(ctx context.Context, l *model.CartLine) error {
	return r.v.with(func(d *data) error {
		if _, exists := findCartLine(d, l.UserID, l.ProductID); exists {
			return fmt.Errorf("cart line for user %d and product %d already exists", l.UserID, l.ProductID)
		}
		d.nextCartLineID++
		now := r.v.s.now()
		l.ID, l.CreatedAt, l.UpdatedAt = d.nextCartLineID, now, now
		d.cartLines[l.ID] = *l
		return nil
	})
}

func (r cartRepo) Update(ctx context.Context, l *model.CartLine) error {
	return r.v.with(func(d *data) error {
		existing, ok := findCartLine(d, l.UserID, l.ProductID)
		if !ok {
			return apperr.NotFound("cart line for product", l.ProductID)
		}
		existing.Quantity, existing.UnitPrice = l.Quantity, l.UnitPrice
		existing.UpdatedAt = r.v.s.now()
		d.cartLines[existing.ID] = existing
		*l = existing
		return nil
	})
}

func (r cartRepo) Delete(ctx context.Context, userID, productID uint) error {
	return r.v.with(func(d *data) error {
		l, ok := findCartLine(d, userID, productID)
		if !ok {
			return apperr.NotFound("cart line for product", productID)
		}
		delete(d.cartLines, l.ID)
		return nil
	})
}

func (r cartRepo) deleteWhere(match func(model.CartLine) bool) (int64, error) {
	var n int64
	err := r.v.with(func(d *data) error {
		for id, l := range d.cartLines {
			if match(l) {
				delete(d.cartLines, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r cartRepo) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	return r.deleteWhere(func(l model.CartLine) bool { return l.UserID == userID })
}

func (r cartRepo) DeleteByProduct(ctx context.Context, productID uint) (int64, error) {
	return r.deleteWhere(func(l model.CartLine) bool { return l.ProductID == productID })
}
