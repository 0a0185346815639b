package memstore

import (
	"context"
	"sort"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
)

type orderRepo struct{ v *view }

func withLines(d *data, o model.Order) model.Order {
	o.Lines = nil
	for _, l := range d.orderLines {
		if l.OrderID == o.ID {
			o.Lines = append(o.Lines, l)
		}
	}
	sort.Slice(o.Lines, func(i, j int) bool { return o.Lines[i].ID < o.Lines[j].ID })
	return o
}

func (r orderRepo) Create(ctx context.Context, o *model.Order) error {
	return r.v.with(func(d *data) error {
		d.nextOrderID++
		now := r.v.s.now()
		o.ID, o.CreatedAt, o.UpdatedAt = d.nextOrderID, now, now
		for i := range o.Lines {
			d.nextOrderLineID++
			o.Lines[i].ID = d.nextOrderLineID
			o.Lines[i].OrderID = o.ID
			o.Lines[i].CreatedAt = now
			d.orderLines[o.Lines[i].ID] = o.Lines[i]
		}
		row := *o
		row.Lines = nil
		d.orders[o.ID] = row
		return nil
	})
}

func (r orderRepo) Get(ctx context.Context, id uint) (*model.Order, error) {
	var out model.Order
	err := r.v.with(func(d *data) error {
		o, ok := d.orders[id]
		if !ok {
			return apperr.NotFound("order", id)
		}
		out = withLines(d, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, id uint) (*model.Order, error) {
	return r.Get(ctx, id)
}

func (r orderRepo) List(ctx context.Context, f repository.OrderFilter) ([]model.Order, error) {
	var out []model.Order
	err := r.v.with(func(d *data) error {
		for _, o := range d.orders {
			if f.UserID != nil && o.UserID != *f.UserID {
				continue
			}
			if f.Status != nil && o.Status != *f.Status {
				continue
			}
			out = append(out, withLines(d, o))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r orderRepo) UpdateStatus(ctx context.Context, o *model.Order) error {
	return r.v.with(func(d *data) error {
		existing, ok := d.orders[o.ID]
		if !ok {
			return apperr.NotFound("order", o.ID)
		}
		existing.Status = o.Status
		existing.PaidAt, existing.ShippedAt, existing.DeliveredAt = o.PaidAt, o.ShippedAt, o.DeliveredAt
		existing.UpdatedAt = r.v.s.now()
		d.orders[o.ID] = existing
		o.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r orderRepo) CountLinesByProduct(ctx context.Context, productID uint) (int64, error) {
	var n int64
	err := r.v.with(func(d *data) error {
		for _, l := range d.orderLines {
			if l.ProductID == productID {
				n++
			}
		}
		return nil
	})
	return n, err
}
