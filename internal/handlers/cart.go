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

// CartHandler serves the cart routes for users and guests alike; the
// ownership key is whatever the identity middleware resolved.
type CartHandler struct {
	carts *services.CartService
}

func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) identity(c *gin.Context) (models.CartIdentity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		fail(c, apperr.New(apperr.Unknown, "cart identity was not resolved"))
	}
	return identity, ok
}

// Get handles GET /cart.
func (h *CartHandler) Get(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	view, err := h.carts.View(c.Request.Context(), identity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{Cart: view})
}

// Add handles POST /cart/items.
func (h *CartHandler) Add(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.Validation, "invalid cart item request", err))
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "invalid product id"))
		return
	}

	view, err := h.carts.Add(c.Request.Context(), identity, productID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{Message: "item added to cart", Cart: view})
}

// UpdateQuantity handles PUT /cart/items/:productId.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "invalid product id"))
		return
	}

	var req struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity < 1 {
		fail(c, apperr.New(apperr.Validation, "quantity must be a positive integer"))
		return
	}

	view, err := h.carts.UpdateQuantity(c.Request.Context(), identity, productID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{Message: "quantity updated", Cart: view})
}

// Remove handles DELETE /cart/items/:productId.
func (h *CartHandler) Remove(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "invalid product id"))
		return
	}

	view, err := h.carts.Remove(c.Request.Context(), identity, productID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{Message: "item removed from cart", Cart: view})
}

// Clear handles DELETE /cart.
func (h *CartHandler) Clear(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	if err := h.carts.Clear(c.Request.Context(), identity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "cart cleared"})
}
