package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/apperr"
	"github.com/suteetoe/storecore/internal/checkout"
	"github.com/suteetoe/storecore/internal/model"
	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/pkg/logger"
)

// StatusRequest moves an order to a new status
type StatusRequest struct {
	Status string `json:"status"`
}

func queryStatus(c echo.Context) (*model.OrderStatus, error) {
	raw := c.QueryParam("status")
	if raw == "" {
		return nil, nil
	}
	status, ok := model.ParseOrderStatus(raw)
	if !ok {
		return nil, apperr.Invalid("status", "oneof", "status must be one of pending paid shipped delivered cancelled")
	}
	return &status, nil
}

// Checkout turns the caller's cart into an order
func (h *Handler) Checkout(c echo.Context) error {
	log := logger.FromEcho(c)

	var req checkout.Input
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	userID := identity(c).UserID
	o, err := h.checkout.Checkout(c.Request().Context(), userID, req)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Order placed",
		zap.Uint("order_id", o.ID),
		zap.Uint("user_id", userID),
		zap.String("total", o.Total.StringFixed(2)))
	return c.JSON(http.StatusCreated, o)
}

// MyOrders lists the caller's orders, newest first, optionally by ?status=
func (h *Handler) MyOrders(c echo.Context) error {
	status, err := queryStatus(c)
	if err != nil {
		return respondError(c, err)
	}
	orders, err := h.orders.ListForUser(c.Request().Context(), identity(c).UserID, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetMyOrder returns one of the caller's orders
func (h *Handler) GetMyOrder(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	o, err := h.orders.GetForUser(c.Request().Context(), identity(c).UserID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// CancelMyOrder cancels one of the caller's orders and restocks its lines
func (h *Handler) CancelMyOrder(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID := identity(c).UserID
	o, err := h.orders.Cancel(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Order cancelled by owner", zap.Uint("order_id", id), zap.Uint("user_id", userID))
	return c.JSON(http.StatusOK, o)
}

// ListOrders lists every order, filtered by ?user_id= and ?status=
func (h *Handler) ListOrders(c echo.Context) error {
	userID, err := queryUint(c, "user_id")
	if err != nil {
		return respondError(c, err)
	}
	status, err := queryStatus(c)
	if err != nil {
		return respondError(c, err)
	}
	orders, err := h.orders.List(c.Request().Context(), repository.OrderFilter{UserID: userID, Status: status})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder returns any order
func (h *Handler) GetOrder(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	o, err := h.orders.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// UpdateOrderStatus applies one lifecycle transition to an order
func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	next, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		return respondError(c, apperr.Invalid("status", "oneof", "status must be one of pending paid shipped delivered cancelled"))
	}

	o, err := h.orders.Transition(c.Request().Context(), id, next)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Order status updated",
		zap.Uint("order_id", id),
		zap.String("status", string(o.Status)),
		zap.Uint("by_user_id", identity(c).UserID))
	return c.JSON(http.StatusOK, o)
}

// DeleteOrder never removes an order; cancellation is the only way out
func (h *Handler) DeleteOrder(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	return respondError(c, h.orders.Delete(c.Request().Context(), id))
}
