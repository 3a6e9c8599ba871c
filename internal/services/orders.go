package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/models"
)

// OrderStore is the slice of the database the order service touches.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	MarkOrderPaid(ctx context.Context, id uuid.UUID, result models.PaymentResult, paidAt time.Time) (bool, error)
}

// ShippingRater quotes a delivery charge for a destination and weight.
type ShippingRater interface {
	CalculateRate(ctx context.Context, destCity, destCountry string, weightKg float64) (float64, error)
}

// OrderService turns a priced cart into an immutable order snapshot.
type OrderService struct {
	store    OrderStore
	carts    *CartService
	shipping ShippingRater
}

func NewOrderService(store OrderStore, carts *CartService, shipping ShippingRater) *OrderService {
	return &OrderService{store: store, carts: carts, shipping: shipping}
}

// CheckoutInput is what the client supplies at order creation; everything
// else comes from the cart.
type CheckoutInput struct {
	ShippingAddress models.Address
	BillingAddress  models.Address
	GuestEmail      string
}

// Checkout snapshots the cart into an order: line items carry the price in
// effect now and never change afterwards. The shipping charge is quoted from
// the cart's total weight, and the cart is cleared once the order is stored.
func (s *OrderService) Checkout(ctx context.Context, identity models.CartIdentity, in CheckoutInput) (*models.Order, error) {
	if in.ShippingAddress.City == "" || in.ShippingAddress.Country == "" {
		return nil, apperr.New(apperr.Validation, "shipping city and country are required")
	}
	if !identity.IsUser() && in.GuestEmail == "" {
		return nil, apperr.New(apperr.Validation, "guest checkout requires an email address")
	}

	view, err := s.carts.View(ctx, identity)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(view.Items))
	for _, item := range view.Items {
		if item.Product == nil {
			// Product deleted since it was added; nothing to order.
			continue
		}
		items = append(items, models.OrderItem{
			ProductID:   item.Product.ID,
			Name:        item.Product.Name,
			ProductType: item.Product.Type,
			StorageLink: item.Product.StorageLink,
			Quantity:    item.Entry.Quantity,
			Price:       item.Product.Price,
		})
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.Validation, "cart is empty")
	}

	weightKg := view.TotalWeightGrams() / 1000
	shippingFee, err := s.shipping.CalculateRate(ctx, in.ShippingAddress.City, in.ShippingAddress.Country, weightKg)
	if err != nil {
		return nil, err
	}

	billing := in.BillingAddress
	if billing.City == "" {
		billing = in.ShippingAddress
	}

	order := &models.Order{
		UserID:          identity.UserID,
		GuestEmail:      in.GuestEmail,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		Subtotal:        view.Subtotal,
		ShippingPrice:   shippingFee,
		TotalPrice:      view.Subtotal + shippingFee,
		Status:          models.OrderPending,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, identity); err != nil {
		// The order exists; a stale cart is recoverable, losing the order
		// is not.
		log.Printf("[orders] order %s created but cart clear failed: %v", order.ID, err)
	}
	return order, nil
}

// Get enforces ownership: users see their own orders, admins see all.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID, userID uuid.UUID, isAdmin bool) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !order.OwnedBy(userID) {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	return order, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

// fulfillmentOrder fixes the only direction the status may move.
var fulfillmentOrder = map[models.OrderStatus]int{
	models.OrderPending:   0,
	models.OrderPrinting:  1,
	models.OrderShipping:  2,
	models.OrderDelivered: 3,
}

// AdvanceStatus moves an order forward through the fulfillment lifecycle.
// Unknown statuses and backward moves are rejected.
func (s *OrderService) AdvanceStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	next, ok := fulfillmentOrder[status]
	if !ok {
		return nil, apperr.Newf(apperr.Validation, "unknown order status %q", status)
	}

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if next <= fulfillmentOrder[order.Status] {
		return nil, apperr.Newf(apperr.Validation, "order is already %s", order.Status)
	}

	if err := s.store.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, err
	}
	order.Status = status
	return order, nil
}

// RecordPayment settles an order exactly once; a repeated confirmation for an
// already-paid order is acknowledged without effect.
func (s *OrderService) RecordPayment(ctx context.Context, orderID uuid.UUID, result models.PaymentResult) error {
	updated, err := s.store.MarkOrderPaid(ctx, orderID, result, time.Now())
	if err != nil {
		return err
	}
	if !updated {
		log.Printf("[orders] payment confirmation for %s ignored, order already paid", orderID)
	}
	return nil
}
