package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/internal/repository/memstore"
)

type fakeFiles struct {
	deleted []string
	err     error
}

func (f *fakeFiles) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return "http://localhost:5000/uploads/" + ref
}

func (f *fakeFiles) Delete(ctx context.Context, ref string) error {
	f.deleted = append(f.deleted, ref)
	return f.err
}

type tree struct {
	category    *model.Category
	subcategory *model.Subcategory
	product     *model.Product
}

func newService(t *testing.T) (*Service, *memstore.Store, *fakeFiles) {
	t.Helper()
	store := memstore.New()
	files := &fakeFiles{}
	return NewService(store, files, nil), store, files
}

func seedTree(t *testing.T, s *Service) tree {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCategory(ctx, CategoryInput{Name: "Beverages"})
	require.NoError(t, err)
	sub, err := s.CreateSubcategory(ctx, SubcategoryInput{Name: "Soda", CategoryID: c.ID})
	require.NoError(t, err)
	p, err := s.CreateProduct(ctx, ProductInput{
		Name: "Cola", Price: decimal.RequireFromString("1.50"), Stock: 10,
		SubcategoryID: sub.ID, CategoryID: c.ID,
	})
	require.NoError(t, err)
	return tree{category: c, subcategory: sub, product: p}
}

func TestToggleCategory_CascadesDeactivationOnly(t *testing.T) {
	s, _, _ := newService(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	juice, err := s.CreateSubcategory(ctx, SubcategoryInput{Name: "Juice", CategoryID: tr.category.ID})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, ProductInput{Name: "Orange", Price: decimal.NewFromInt(2), SubcategoryID: juice.ID, CategoryID: tr.category.ID})
	require.NoError(t, err)

	res, err := s.ToggleCategory(ctx, tr.category.ID)
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.EqualValues(t, 2, res.SubcategoriesDeactivated)
	assert.EqualValues(t, 2, res.ProductsDeactivated)

	subs, err := s.ListSubcategories(ctx, repository.SubcategoryFilter{CategoryID: &tr.category.ID})
	require.NoError(t, err)
	for _, sub := range subs {
		assert.False(t, sub.Active, sub.Name)
	}
	page, err := s.ListProducts(ctx, ProductQuery{CategoryID: &tr.category.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, p := range page.Items {
		assert.False(t, p.Active, p.Name)
	}

	res, err = s.ToggleCategory(ctx, tr.category.ID)
	require.NoError(t, err)
	assert.True(t, res.Active)
	assert.Zero(t, res.SubcategoriesDeactivated)

	sub, err := s.GetSubcategory(ctx, tr.subcategory.ID)
	require.NoError(t, err)
	assert.False(t, sub.Active, "reactivating the category leaves children untouched")
	p, err := s.GetProduct(ctx, tr.product.ID)
	require.NoError(t, err)
	assert.False(t, p.Active)
}

func TestToggleSubcategory_CascadesToProductsNotUp(t *testing.T) {
	s, _, _ := newService(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	res, err := s.ToggleSubcategory(ctx, tr.subcategory.ID)
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.EqualValues(t, 1, res.ProductsDeactivated)

	c, err := s.GetCategory(ctx, tr.category.ID)
	require.NoError(t, err)
	assert.True(t, c.Active)
	p, err := s.GetProduct(ctx, tr.product.ID)
	require.NoError(t, err)
	assert.False(t, p.Active)
}

type failingProducts struct {
	repository.ProductRepository
}

func (failingProducts) DeactivateBySubcategories(ctx context.Context, ids []uint) (int64, error) {
	return 0, errors.New("disk full")
}

type failingStore struct {
	repository.Store
}

func (f failingStore) Products() repository.ProductRepository {
	return failingProducts{f.Store.Products()}
}

func (f failingStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.Atomic(ctx, func(tx repository.Store) error {
		return fn(failingStore{tx})
	})
}

func TestToggleCategory_CascadeFailureRollsBackParent(t *testing.T) {
	s, store, _ := newService(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	broken := NewService(failingStore{store}, nil, nil)
	_, err := broken.ToggleCategory(ctx, tr.category.ID)
	require.Error(t, err)

	c, err := s.GetCategory(ctx, tr.category.ID)
	require.NoError(t, err)
	assert.True(t, c.Active)
	sub, err := s.GetSubcategory(ctx, tr.subcategory.ID)
	require.NoError(t, err)
	assert.True(t, sub.Active)
}

func TestCreateSubcategory_ParentChecks(t *testing.T) {
	s, _, _ := newService(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	_, err := s.CreateSubcategory(ctx, SubcategoryInput{Name: "Water", CategoryID: 404})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.ToggleCategory(ctx, tr.category.ID)
	require.NoError(t, err)
	_, err = s.CreateSubcategory(ctx, SubcategoryInput{Name: "Water", CategoryID: tr.category.ID})
	assert.ErrorIs(t, err, apperr.ErrParentInactive)
}

func TestCreateProduct_ParentChecks(t *testing.T) {
	s, _, _ := newService(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	snacks, err := s.CreateCategory(ctx, CategoryInput{Name: "Snacks"})
	require.NoError(t, err)

	in := ProductInput{Name: "Chips", Price: decimal.NewFromInt(1), SubcategoryID: tr.subcategory.ID, CategoryID: snacks.ID}
	_, err = s.CreateProduct(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrHierarchyMismatch)

	_, err = s.ToggleSubcategory(ctx, tr.subcategory.ID)
	require.NoError(t, err)
	in.CategoryID = tr.category.ID
	_, err = s.CreateProduct(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrParentInactive)

	in.SubcategoryID = 404
	_, err = s.CreateProduct(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreate_ValidationCollectsFields(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, ProductInput{Name: "ab", Price: decimal.NewFromInt(-1), Stock: -1})
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{
		"name":           "min",
		"price":          "gte",
		"stock":          "gte",
		"subcategory_id": "required",
		"category_id":    "required",
	}, fields)

	_, err = s.CreateCategory(ctx, CategoryInput{Name: " x "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreate_DuplicateNames(t *testing.T) {
	s, _, _ := newService(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	_, err := s.CreateCategory(ctx, CategoryInput{Name: "Beverages"})
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "unique", verr.Fields[0].Rule)

	_, err = s.CreateSubcategory(ctx, SubcategoryInput{Name: "Soda", CategoryID: tr.category.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	other, err := s.CreateCategory(ctx, CategoryInput{Name: "Mixers"})
	require.NoError(t, err)
	_, err = s.CreateSubcategory(ctx, SubcategoryInput{Name: "Soda", CategoryID: other.ID})
	assert.NoError(t, err, "subcategory names are unique per category only")

	name := "Mixers"
	_, err = s.UpdateCategory(ctx, tr.category.ID, CategoryUpdate{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteCategoryAndSubcategory_HasDependents(t *testing.T) {
	s, _, _ := newService(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	err := s.DeleteCategory(ctx, tr.category.ID)
	require.ErrorIs(t, err, apperr.ErrHasDependents)
	err = s.DeleteSubcategory(ctx, tr.subcategory.ID)
	require.ErrorIs(t, err, apperr.ErrHasDependents)

	require.NoError(t, s.DeleteProduct(ctx, tr.product.ID))
	require.NoError(t, s.DeleteSubcategory(ctx, tr.subcategory.ID))
	require.NoError(t, s.DeleteCategory(ctx, tr.category.ID))

	_, err = s.GetCategory(ctx, tr.category.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCategory(ctx, tr.category.ID), apperr.ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	s, store, files := newService(t)
	ctx := context.Background()
	tr := seedTree(t, s)

	ref := "cola.png"
	_, err := s.UpdateProduct(ctx, tr.product.ID, ProductUpdate{ImageRef: &ref})
	require.NoError(t, err)
	require.NoError(t, store.CartLines().Create(ctx, &model.CartLine{UserID: 1, ProductID: tr.product.ID, Quantity: 1, UnitPrice: tr.product.Price}))

	files.err = errors.New("permission denied")
	require.NoError(t, s.DeleteProduct(ctx, tr.product.ID), "file store failures never block deletion")
	assert.Equal(t, []string{"cola.png"}, files.deleted)

	lines, err := store.CartLines().ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestDeleteProduct_ReferencedByOrder(t *testing.T) {
	s, store, files := newService(t)
	ctx := context.Background()
	tr := seedTree(t, s)

	o := &model.Order{UserID: 1, Status: model.OrderPending,
		Lines: []model.OrderLine{model.NewOrderLine(tr.product.ID, 1, tr.product.Price)}}
	require.NoError(t, store.Orders().Create(ctx, o))

	err := s.DeleteProduct(ctx, tr.product.ID)
	require.ErrorIs(t, err, apperr.ErrHasDependents)
	assert.Empty(t, files.deleted)
	_, err = s.GetProduct(ctx, tr.product.ID)
	assert.NoError(t, err)
}

func TestUpdateSubcategory_MovesProducts(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	tr := seedTree(t, s)

	mixers, err := s.CreateCategory(ctx, CategoryInput{Name: "Mixers"})
	require.NoError(t, err)

	sub, err := s.UpdateSubcategory(ctx, tr.subcategory.ID, SubcategoryUpdate{CategoryID: &mixers.ID})
	require.NoError(t, err)
	assert.Equal(t, mixers.ID, sub.CategoryID)

	p, err := s.GetProduct(ctx, tr.product.ID)
	require.NoError(t, err)
	assert.Equal(t, mixers.ID, p.CategoryID)

	_, err = s.ToggleCategory(ctx, tr.category.ID)
	require.NoError(t, err)
	_, err = s.UpdateSubcategory(ctx, tr.subcategory.ID, SubcategoryUpdate{CategoryID: &tr.category.ID})
	assert.ErrorIs(t, err, apperr.ErrParentInactive)
}

func TestUpdateProduct(t *testing.T) {
	s, store, files := newService(t)
	ctx := context.Background()
	tr := seedTree(t, s)

	first, second := "a.png", "b.png"
	_, err := s.UpdateProduct(ctx, tr.product.ID, ProductUpdate{ImageRef: &first})
	require.NoError(t, err)
	assert.Empty(t, files.deleted)

	price := decimal.RequireFromString("2.25")
	p, err := s.UpdateProduct(ctx, tr.product.ID, ProductUpdate{ImageRef: &second, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, files.deleted)
	assert.Equal(t, "http://localhost:5000/uploads/b.png", p.ImageURL)
	assert.True(t, price.Equal(p.Price))
	assert.Equal(t, 10, p.Stock)

	mixers, err := s.CreateCategory(ctx, CategoryInput{Name: "Mixers"})
	require.NoError(t, err)
	_, err = s.UpdateProduct(ctx, tr.product.ID, ProductUpdate{CategoryID: &mixers.ID})
	assert.ErrorIs(t, err, apperr.ErrHierarchyMismatch)

	stored, err := store.Products().Get(ctx, tr.product.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.category.ID, stored.CategoryID)
}

func TestStats(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	tr := seedTree(t, s)

	_, err := s.CreateProduct(ctx, ProductInput{Name: "Tonic", Price: decimal.RequireFromString("0.75"), Stock: 4,
		SubcategoryID: tr.subcategory.ID, CategoryID: tr.category.ID})
	require.NoError(t, err)
	_, err = s.CreateSubcategory(ctx, SubcategoryInput{Name: "Juice", CategoryID: tr.category.ID})
	require.NoError(t, err)
	_, err = s.ToggleProduct(ctx, tr.product.ID)
	require.NoError(t, err)

	cs, err := s.CategoryStats(ctx, tr.category.ID)
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 2, Active: 2, Inactive: 0}, cs.Subcategories)
	assert.Equal(t, Counts{Total: 2, Active: 1, Inactive: 1}, cs.Products)
	assert.EqualValues(t, 14, cs.Inventory.Stock)
	assert.True(t, decimal.RequireFromString("18.00").Equal(cs.Inventory.Value), cs.Inventory.Value.String())

	ss, err := s.SubcategoryStats(ctx, tr.subcategory.ID)
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 2, Active: 1, Inactive: 1}, ss.Products)

	_, err = s.CategoryStats(ctx, 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListProducts_Pages(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	tr := seedTree(t, s)

	for _, name := range []string{"Tonic", "Root Beer", "Ginger Ale"} {
		_, err := s.CreateProduct(ctx, ProductInput{Name: name, Price: decimal.NewFromInt(1), Stock: 1,
			SubcategoryID: tr.subcategory.ID, CategoryID: tr.category.ID})
		require.NoError(t, err)
	}

	page, err := s.ListProducts(ctx, ProductQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Root Beer", page.Items[0].Name)
	assert.Equal(t, "Tonic", page.Items[1].Name)
}
