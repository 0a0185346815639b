package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/cart"
	"github.com/suteetoe/storecore/internal/catalog"
	"github.com/suteetoe/storecore/internal/checkout"
	"github.com/suteetoe/storecore/internal/inventory"
	"github.com/suteetoe/storecore/internal/middleware"
	"github.com/suteetoe/storecore/internal/order"
	"github.com/suteetoe/storecore/pkg/logger"
)

// Handler exposes the store services over HTTP
type Handler struct {
	catalog  *catalog.Service
	ledger   *inventory.Ledger
	cart     *cart.Service
	checkout *checkout.Service
	orders   *order.Service
}

// New returns a Handler over the services
func New(catalogSvc *catalog.Service, ledger *inventory.Ledger, cartSvc *cart.Service, checkoutSvc *checkout.Service, orderSvc *order.Service) *Handler {
	return &Handler{
		catalog:  catalogSvc,
		ledger:   ledger,
		cart:     cartSvc,
		checkout: checkoutSvc,
		orders:   orderSvc,
	}
}

// Register mounts every route below /api. auth authenticates the caller.
func (h *Handler) Register(e *echo.Echo, auth echo.MiddlewareFunc) {
	api := e.Group("/api")
	manager := []echo.MiddlewareFunc{auth, middleware.RequireManager()}
	admin := []echo.MiddlewareFunc{auth, middleware.RequireAdmin()}

	categories := api.Group("/categories")
	categories.GET("", h.ListCategories)
	categories.GET("/:id", h.GetCategory)
	categories.GET("/:id/stats", h.CategoryStats, manager...)
	categories.POST("", h.CreateCategory, manager...)
	categories.PUT("/:id", h.UpdateCategory, manager...)
	categories.PATCH("/:id/toggle", h.ToggleCategory, manager...)
	categories.DELETE("/:id", h.DeleteCategory, admin...)

	subcategories := api.Group("/subcategories")
	subcategories.GET("", h.ListSubcategories)
	subcategories.GET("/:id", h.GetSubcategory)
	subcategories.GET("/:id/stats", h.SubcategoryStats, manager...)
	subcategories.POST("", h.CreateSubcategory, manager...)
	subcategories.PUT("/:id", h.UpdateSubcategory, manager...)
	subcategories.PATCH("/:id/toggle", h.ToggleSubcategory, manager...)
	subcategories.DELETE("/:id", h.DeleteSubcategory, admin...)

	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)
	products.POST("", h.CreateProduct, manager...)
	products.PUT("/:id", h.UpdateProduct, manager...)
	products.PATCH("/:id/toggle", h.ToggleProduct, manager...)
	products.PATCH("/:id/stock", h.SetStock, manager...)
	products.POST("/:id/restock", h.Restock, manager...)
	products.DELETE("/:id", h.DeleteProduct, admin...)

	cartGroup := api.Group("/cart", auth)
	cartGroup.GET("", h.GetCart)
	cartGroup.GET("/summary", h.CartSummary)
	cartGroup.POST("/items", h.AddCartItem)
	cartGroup.PUT("/items/:productId", h.UpdateCartItem)
	cartGroup.DELETE("/items/:productId", h.RemoveCartItem)
	cartGroup.DELETE("", h.ClearCart)

	orders := api.Group("/orders", auth)
	orders.POST("/checkout", h.Checkout)
	orders.GET("/mine", h.MyOrders)
	orders.GET("/:id", h.GetMyOrder)
	orders.POST("/:id/cancel", h.CancelMyOrder)

	adminOrders := api.Group("/admin/orders", manager...)
	adminOrders.GET("", h.ListOrders)
	adminOrders.GET("/:id", h.GetOrder)
	adminOrders.PATCH("/:id/status", h.UpdateOrderStatus)
	adminOrders.DELETE("/:id", h.DeleteOrder)
}

// respondError renders an engine error with the status its kind maps to
func respondError(c echo.Context, err error) error {
	log := logger.FromEcho(c)
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(status, echo.Map{"error": "Internal server error", "kind": "internal"})
	}

	body := echo.Map{"error": err.Error(), "kind": apperr.Kind(err)}
	var (
		verr   *apperr.ValidationError
		failed *apperr.CheckoutFailedError
		stock  *apperr.InsufficientStockError
	)
	switch {
	case errors.As(err, &failed):
		body["details"] = failed.Lines
	case errors.As(err, &verr):
		body["details"] = verr.Fields
	case errors.As(err, &stock):
		body["details"] = stock
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, err error) error {
	logger.FromEcho(c).Warn("Invalid request data", zap.Error(err))
	return respondError(c, apperr.Invalid("body", "json", "invalid request data"))
}

func parseUint(raw, field string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid(field, "id", field+" must be a positive integer")
	}
	return uint(id), nil
}

func paramID(c echo.Context, name string) (uint, error) {
	return parseUint(c.Param(name), name)
}

// queryUint returns nil when the parameter is absent
func queryUint(c echo.Context, name string) (*uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := parseUint(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// queryBool returns nil when the parameter is absent
func queryBool(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Invalid(name, "bool", name+" must be true or false")
	}
	return &b, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Invalid(name, "min", name+" must be a non-negative integer")
	}
	return n, nil
}

func identity(c echo.Context) middleware.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}
