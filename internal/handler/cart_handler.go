package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/cart"
	"github.com/suteetoe/storecore/pkg/logger"
)

// QuantityRequest sets the quantity of a cart line
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the caller's cart with subtotals and total
func (h *Handler) GetCart(c echo.Context) error {
	userCart, err := h.cart.GetCart(c.Request().Context(), identity(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, userCart)
}

// CartSummary returns the line count, unit count and total of the caller's cart
func (h *Handler) CartSummary(c echo.Context) error {
	summary, err := h.cart.Summary(c.Request().Context(), identity(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// AddCartItem adds a product to the caller's cart, merging with an existing line
func (h *Handler) AddCartItem(c echo.Context) error {
	var req cart.AddItemInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	userID := identity(c).UserID
	line, err := h.cart.AddItem(c.Request().Context(), userID, req)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Cart item added",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", line.ProductID),
		zap.Int("quantity", line.Quantity))
	return c.JSON(http.StatusOK, line)
}

// UpdateCartItem replaces the quantity of one cart line
func (h *Handler) UpdateCartItem(c echo.Context) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}

	var req QuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	line, err := h.cart.UpdateQuantity(c.Request().Context(), identity(c).UserID, productID, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, line)
}

// RemoveCartItem drops one line from the caller's cart
func (h *Handler) RemoveCartItem(c echo.Context) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.cart.RemoveItem(c.Request().Context(), identity(c).UserID, productID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Item removed from cart"})
}

// ClearCart empties the caller's cart
func (h *Handler) ClearCart(c echo.Context) error {
	removed, err := h.cart.Clear(c.Request().Context(), identity(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Cart cleared", "removed": removed})
}
