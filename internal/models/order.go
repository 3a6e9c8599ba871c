package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderPrinting  OrderStatus = "Printing"
	OrderShipping  OrderStatus = "Shipping"
	OrderDelivered OrderStatus = "Delivered"
)

// OrderItem is a snapshot of a cart line at checkout time. Catalog price
// changes after checkout never alter placed orders.
type OrderItem struct {
	ProductID   uuid.UUID   `json:"product_id"`
	Name        string      `json:"name"`
	ProductType ProductType `json:"product_type"`
	StorageLink string      `json:"storage_link"`
	Quantity    int         `json:"quantity"`
	Price       float64     `json:"price"`
}

type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Street    string `json:"street,omitempty"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

// PaymentResult records the gateway transaction that settled an order.
type PaymentResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	UpdateTime    string `json:"update_time"`
	Source        string `json:"source"`
}

type Order struct {
	ID              uuid.UUID      `json:"id"`
	UserID          *uuid.UUID     `json:"user_id,omitempty"`
	GuestEmail      string         `json:"guest_email,omitempty"`
	Items           []OrderItem    `json:"items"`
	ShippingAddress Address        `json:"shipping_address"`
	BillingAddress  Address        `json:"billing_address"`
	Subtotal        float64        `json:"subtotal"`
	ShippingPrice   float64        `json:"shipping_price"`
	TotalPrice      float64        `json:"total_price"`
	Status          OrderStatus    `json:"status"`
	IsPaid          bool           `json:"is_paid"`
	PaidAt          *time.Time     `json:"paid_at,omitempty"`
	PaymentResult   *PaymentResult `json:"payment_result,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// OwnedBy reports whether the order belongs to the given user. Guest orders
// have no owner and are only reachable through their payment flow.
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}
