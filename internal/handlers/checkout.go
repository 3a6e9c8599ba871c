package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/middleware"
	"printforge-backend/internal/models"
	"printforge-backend/internal/payment"
	"printforge-backend/internal/services"
)

// CheckoutHandler runs the payment leg: issuing gateway payment keys for
// pending orders and settling them from the gateway's webhook.
type CheckoutHandler struct {
	orders     *services.OrderService
	gateway    *payment.Client
	hmacSecret string
	iframeID   string
}

func NewCheckoutHandler(orders *services.OrderService, gateway *payment.Client, hmacSecret, iframeID string) *CheckoutHandler {
	return &CheckoutHandler{
		orders:     orders,
		gateway:    gateway,
		hmacSecret: hmacSecret,
		iframeID:   iframeID,
	}
}

type paymentKeyRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// PaymentKey handles POST /orders/:id/payment-key. Ownership follows the
// order: user orders require the owning session, guest orders are reachable
// by id alone.
func (h *CheckoutHandler) PaymentKey(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "invalid order id"))
		return
	}

	var req paymentKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.Validation, "invalid payment key request", err))
		return
	}

	identity, _ := middleware.IdentityFrom(c)
	order, err := h.lookupOrder(c, orderID, identity)
	if err != nil {
		fail(c, err)
		return
	}
	if order.IsPaid {
		fail(c, apperr.New(apperr.Conflict, "order is already paid"))
		return
	}

	key, err := h.gateway.PaymentKey(c.Request.Context(), order, payment.BillingDetails{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PaymentKeyResponse{
		PaymentKey: key,
		IframeURL:  fmt.Sprintf("https://accept.paymob.com/api/acceptance/iframes/%s?payment_token=%s", h.iframeID, key),
	})
}

func (h *CheckoutHandler) lookupOrder(c *gin.Context, orderID uuid.UUID, identity models.CartIdentity) (*models.Order, error) {
	if identity.IsUser() {
		isAdmin, _ := c.Get(middleware.IsAdminKey)
		return h.orders.Get(c.Request.Context(), orderID, *identity.UserID, isAdmin == true)
	}
	order, err := h.orders.Get(c.Request.Context(), orderID, uuid.Nil, true)
	if err != nil {
		return nil, err
	}
	if order.UserID != nil {
		// A guest session may not pay for a user's order.
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	return order, nil
}

type webhookPayload struct {
	Type string              `json:"type"`
	Obj  payment.Transaction `json:"obj"`
}

// Webhook handles POST /payments/webhook. The gateway signs the transaction
// with HMAC-SHA512 and sends the signature as the `hmac` query parameter;
// nothing in the body is trusted before that signature checks out.
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, apperr.Wrap(apperr.Validation, "invalid webhook payload", err))
		return
	}

	received := c.Query("hmac")
	if received == "" || !payment.VerifyHMAC(h.hmacSecret, payload.Obj, received) {
		fail(c, apperr.New(apperr.Auth, "webhook signature verification failed"))
		return
	}

	// Only a successful captured transaction settles the order; anything
	// else is acknowledged so the gateway stops retrying.
	tx := payload.Obj
	if payload.Type != "TRANSACTION" || !tx.Success || !tx.IsCapture {
		c.JSON(http.StatusOK, models.MessageResponse{Message: "ignored"})
		return
	}

	orderID, err := uuid.Parse(tx.Order.MerchantOrderID)
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "webhook carries an unknown merchant order id"))
		return
	}

	status := "Success"
	if tx.Pending {
		status = "Pending"
	}
	err = h.orders.RecordPayment(c.Request.Context(), orderID, models.PaymentResult{
		TransactionID: fmt.Sprintf("%d", tx.ID),
		Status:        status,
		UpdateTime:    tx.CreatedAt,
		Source:        tx.SourceData.Type,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "payment recorded"})
}
