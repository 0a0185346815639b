package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/catalog"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/pkg/logger"
)

// ListCategories returns categories, optionally filtered by ?active=
func (h *Handler) ListCategories(c echo.Context) error {
	active, err := queryBool(c, "active")
	if err != nil {
		return respondError(c, err)
	}
	categories, err := h.catalog.ListCategories(c.Request().Context(), repository.CategoryFilter{Active: active})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

// GetCategory returns one category
func (h *Handler) GetCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	category, err := h.catalog.GetCategory(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

// CategoryStats returns the subcategory, product and inventory totals of a category
func (h *Handler) CategoryStats(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.catalog.CategoryStats(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// CreateCategory adds a new category
func (h *Handler) CreateCategory(c echo.Context) error {
	log := logger.FromEcho(c)

	var req catalog.CategoryInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	category, err := h.catalog.CreateCategory(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Category created successfully",
		zap.Uint("category_id", category.ID),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory changes the name or description of a category
func (h *Handler) UpdateCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req catalog.CategoryUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	category, err := h.catalog.UpdateCategory(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Category updated successfully", zap.Uint("category_id", id))
	return c.JSON(http.StatusOK, category)
}

// ToggleCategory flips the active flag; deactivation cascades
func (h *Handler) ToggleCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	result, err := h.catalog.ToggleCategory(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Category toggled",
		zap.Uint("category_id", id),
		zap.Bool("active", result.Active),
		zap.Int64("subcategories_deactivated", result.SubcategoriesDeactivated),
		zap.Int64("products_deactivated", result.ProductsDeactivated))
	return c.JSON(http.StatusOK, result)
}

// DeleteCategory removes a category that has no subcategories or products
func (h *Handler) DeleteCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.catalog.DeleteCategory(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Category deleted successfully", zap.Uint("category_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted successfully"})
}

// ListSubcategories returns subcategories, filtered by ?category_id= and ?active=
func (h *Handler) ListSubcategories(c echo.Context) error {
	categoryID, err := queryUint(c, "category_id")
	if err != nil {
		return respondError(c, err)
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return respondError(c, err)
	}
	subcategories, err := h.catalog.ListSubcategories(c.Request().Context(), repository.SubcategoryFilter{
		CategoryID: categoryID,
		Active:     active,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, subcategories)
}

// GetSubcategory returns one subcategory
func (h *Handler) GetSubcategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	subcategory, err := h.catalog.GetSubcategory(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, subcategory)
}

// SubcategoryStats returns the product and inventory totals of a subcategory
func (h *Handler) SubcategoryStats(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.catalog.SubcategoryStats(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// CreateSubcategory adds a subcategory under an active category
func (h *Handler) CreateSubcategory(c echo.Context) error {
	var req catalog.SubcategoryInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	subcategory, err := h.catalog.CreateSubcategory(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Subcategory created successfully",
		zap.Uint("subcategory_id", subcategory.ID),
		zap.Uint("category_id", subcategory.CategoryID))
	return c.JSON(http.StatusCreated, subcategory)
}

// UpdateSubcategory edits a subcategory, moving its products when the category changes
func (h *Handler) UpdateSubcategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req catalog.SubcategoryUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	subcategory, err := h.catalog.UpdateSubcategory(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Subcategory updated successfully", zap.Uint("subcategory_id", id))
	return c.JSON(http.StatusOK, subcategory)
}

// ToggleSubcategory flips the active flag; deactivation cascades to products
func (h *Handler) ToggleSubcategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	result, err := h.catalog.ToggleSubcategory(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Subcategory toggled",
		zap.Uint("subcategory_id", id),
		zap.Bool("active", result.Active),
		zap.Int64("products_deactivated", result.ProductsDeactivated))
	return c.JSON(http.StatusOK, result)
}

// DeleteSubcategory removes a subcategory that has no products
func (h *Handler) DeleteSubcategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.catalog.DeleteSubcategory(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Subcategory deleted successfully", zap.Uint("subcategory_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Subcategory deleted successfully"})
}

// ListProducts returns a page of products.
// Query: category_id, subcategory_id, active, in_stock, page, limit.
func (h *Handler) ListProducts(c echo.Context) error {
	var (
		q   catalog.ProductQuery
		err error
	)
	if q.CategoryID, err = queryUint(c, "category_id"); err != nil {
		return respondError(c, err)
	}
	if q.SubcategoryID, err = queryUint(c, "subcategory_id"); err != nil {
		return respondError(c, err)
	}
	if q.Active, err = queryBool(c, "active"); err != nil {
		return respondError(c, err)
	}
	inStock, err := queryBool(c, "in_stock")
	if err != nil {
		return respondError(c, err)
	}
	q.InStock = inStock != nil && *inStock
	if q.Page, err = queryInt(c, "page", 1); err != nil {
		return respondError(c, err)
	}
	if q.Limit, err = queryInt(c, "limit", 0); err != nil {
		return respondError(c, err)
	}

	page, err := h.catalog.ListProducts(c.Request().Context(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetProduct returns one product with its image URL resolved
func (h *Handler) GetProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	product, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct adds a product under an active subcategory of an active category
func (h *Handler) CreateProduct(c echo.Context) error {
	var req catalog.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	product, err := h.catalog.CreateProduct(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Product created successfully",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Int("stock", product.Stock))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct edits the descriptive fields or parents of a product. Stock is
// changed through SetStock and Restock only.
func (h *Handler) UpdateProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req catalog.ProductUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	product, err := h.catalog.UpdateProduct(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Product updated successfully", zap.Uint("product_id", id))
	return c.JSON(http.StatusOK, product)
}

// ToggleProduct flips the active flag of a product
func (h *Handler) ToggleProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	result, err := h.catalog.ToggleProduct(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Product toggled", zap.Uint("product_id", id), zap.Bool("active", result.Active))
	return c.JSON(http.StatusOK, result)
}

// StockRequest sets the absolute stock of a product
type StockRequest struct {
	Stock int `json:"stock"`
}

// RestockRequest adds units to a product
type RestockRequest struct {
	Quantity int `json:"quantity"`
}

// SetStock overwrites the stock of a product
func (h *Handler) SetStock(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req StockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	ctx := c.Request().Context()
	if err := h.ledger.SetStock(ctx, id, req.Stock); err != nil {
		return respondError(c, err)
	}
	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Product stock set", zap.Uint("product_id", id), zap.Int("stock", product.Stock))
	return c.JSON(http.StatusOK, product)
}

// Restock adds a positive quantity to the stock of a product
func (h *Handler) Restock(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req RestockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	ctx := c.Request().Context()
	if err := h.ledger.Restock(ctx, id, req.Quantity); err != nil {
		return respondError(c, err)
	}
	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Product restocked",
		zap.Uint("product_id", id),
		zap.Int("quantity", req.Quantity),
		zap.Int("stock", product.Stock))
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product never sold, with its cart lines and image
func (h *Handler) DeleteProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.catalog.DeleteProduct(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Product deleted successfully", zap.Uint("product_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}
