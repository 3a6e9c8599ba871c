package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/middleware"
	"printforge-backend/internal/models"
	"printforge-backend/internal/services"
)

type OrdersHandler struct {
	orders *services.OrderService
}

func NewOrdersHandler(orders *services.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type checkoutRequest struct {
	ShippingAddress models.Address `json:"shipping_address" binding:"required"`
	BillingAddress  models.Address `json:"billing_address"`
	GuestEmail      string         `json:"guest_email"`
}

// Create handles POST /orders: snapshots the resolved identity's cart into a
// pending order.
func (h *OrdersHandler) Create(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		fail(c, apperr.New(apperr.Unknown, "cart identity was not resolved"))
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.Validation, "invalid checkout request", err))
		return
	}

	order, err := h.orders.Checkout(c.Request.Context(), identity, services.CheckoutInput{
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		GuestEmail:      req.GuestEmail,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// List handles GET /orders for the authenticated user.
func (h *OrdersHandler) List(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	orders, err := h.orders.ListForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// UpdateStatus handles PATCH /admin/orders/:id/status, moving an order
// forward through the fulfillment lifecycle.
func (h *OrdersHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "invalid order id"))
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.Validation, "invalid status request", err))
		return
	}

	order, err := h.orders.AdvanceStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Get handles GET /orders/:id with ownership enforced.
func (h *OrdersHandler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	isAdmin, _ := c.Get(middleware.IsAdminKey)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "invalid order id"))
		return
	}

	order, err := h.orders.Get(c.Request.Context(), id, userID, isAdmin == true)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
