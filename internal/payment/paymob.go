// Package payment is the Paymob gateway client. The three-step payment-key
// flow and the webhook HMAC field order are fixed by the vendor; nothing in
// here is negotiable wire design.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/models"
)

type Client struct {
	baseURL       string
	apiKey        string
	integrationID string
	httpClient    *http.Client
}

func NewClient(baseURL, apiKey, integrationID string) *Client {
	return &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		integrationID: integrationID,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// AmountCents converts a decimal price to the gateway's integer minor units.
// This is the only place that conversion happens.
func AmountCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// BillingDetails feed the payment key request; the gateway rejects empty
// fields, so absent values are sent as "NA".
type BillingDetails struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type authResponse struct {
	Token string `json:"token"`
}

type orderItem struct {
	Name        string `json:"name"`
	AmountCents string `json:"amount_cents"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

type orderRegistration struct {
	AuthToken       string      `json:"auth_token"`
	DeliveryNeeded  string      `json:"delivery_needed"`
	AmountCents     int64       `json:"amount_cents"`
	Currency        string      `json:"currency"`
	MerchantOrderID string      `json:"merchant_order_id"`
	Items           []orderItem `json:"items"`
}

type orderRegistrationResponse struct {
	ID int64 `json:"id"`
}

type billingData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Floor       string `json:"floor"`
	Apartment   string `json:"apartment"`
	Building    string `json:"building"`
}

type paymentKeyRequest struct {
	AuthToken     string      `json:"auth_token"`
	AmountCents   int64       `json:"amount_cents"`
	Expiration    int         `json:"expiration"`
	OrderID       int64       `json:"order_id"`
	BillingData   billingData `json:"billing_data"`
	Currency      string      `json:"currency"`
	IntegrationID string      `json:"integration_id"`
	LockOrderWhenPaid string  `json:"lock_order_when_paid"`
}

type paymentKeyResponse struct {
	Token string `json:"token"`
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to encode paymob request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to build paymob request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.External, "paymob request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to read paymob response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.New(apperr.External, fmt.Sprintf("paymob returned status %d for %s", resp.StatusCode, path))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.External, "failed to decode paymob response", err)
	}
	return nil
}

func (c *Client) authToken(ctx context.Context) (string, error) {
	var resp authResponse
	err := c.post(ctx, "/auth/tokens", map[string]string{"api_key": c.apiKey}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *Client) registerOrder(ctx context.Context, token string, order *models.Order) (int64, error) {
	items := make([]orderItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = orderItem{
			Name:        it.Name,
			AmountCents: strconv.FormatInt(AmountCents(it.Price), 10),
			Description: string(it.ProductType),
			Quantity:    it.Quantity,
		}
	}

	var resp orderRegistrationResponse
	err := c.post(ctx, "/ecommerce/orders", orderRegistration{
		AuthToken:       token,
		DeliveryNeeded:  "false",
		AmountCents:     AmountCents(order.TotalPrice),
		Currency:        "EGP",
		MerchantOrderID: order.ID.String(),
		Items:           items,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *Client) paymentKey(ctx context.Context, token string, paymobOrderID int64, order *models.Order, billing BillingDetails) (string, error) {
	var resp paymentKeyResponse
	err := c.post(ctx, "/acceptance/payment_keys", paymentKeyRequest{
		AuthToken:   token,
		AmountCents: AmountCents(order.TotalPrice),
		Expiration:  3600,
		OrderID:     paymobOrderID,
		BillingData: billingData{
			FirstName:   orNA(billing.FirstName),
			LastName:    orNA(billing.LastName),
			Email:       orNA(billing.Email),
			PhoneNumber: orNA(billing.Phone),
			Street:      orNA(order.ShippingAddress.Street),
			City:        orNA(order.ShippingAddress.City),
			Country:     orNA(order.ShippingAddress.Country),
			Floor:       "NA",
			Apartment:   "NA",
			Building:    "NA",
		},
		Currency:          "EGP",
		IntegrationID:     c.integrationID,
		LockOrderWhenPaid: "false",
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// PaymentKey runs the vendor's three-step flow: authenticate, register the
// order amount, obtain a client payment key.
func (c *Client) PaymentKey(ctx context.Context, order *models.Order, billing BillingDetails) (string, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return "", err
	}
	paymobOrderID, err := c.registerOrder(ctx, token, order)
	if err != nil {
		return "", err
	}
	return c.paymentKey(ctx, token, paymobOrderID, order, billing)
}

func orNA(s string) string {
	if s == "" {
		return "NA"
	}
	return s
}

// Transaction is the webhook payload's `obj` object, limited to the fields
// that participate in the HMAC plus what the handler needs.
type Transaction struct {
	AmountCents          int64  `json:"amount_cents"`
	CreatedAt            string `json:"created_at"`
	Currency             string `json:"currency"`
	ErrorOccured         bool   `json:"error_occured"`
	HasParentTransaction bool   `json:"has_parent_transaction"`
	ID                   int64  `json:"id"`
	IntegrationID        int64  `json:"integration_id"`
	Is3DSecure           bool   `json:"is_3d_secure"`
	IsAuth               bool   `json:"is_auth"`
	IsCapture            bool   `json:"is_capture"`
	IsRefund             bool   `json:"is_refund"`
	IsRefunded           bool   `json:"is_refunded"`
	IsStandalonePayment  bool   `json:"is_standalone_payment"`
	IsVoid               bool   `json:"is_void"`
	IsVoided             bool   `json:"is_voided"`
	Order                struct {
		ID              int64  `json:"id"`
		MerchantOrderID string `json:"merchant_order_id"`
	} `json:"order"`
	Owner      int64 `json:"owner"`
	Pending    bool  `json:"pending"`
	SourceData struct {
		Pan     string `json:"pan"`
		SubType string `json:"sub_type"`
		Type    string `json:"type"`
	} `json:"source_data"`
	Success bool `json:"success"`
}

// hmacPayload concatenates the transaction fields in the vendor's fixed
// order. The order and the true/false rendering of booleans are part of the
// external contract and must be reproduced byte for byte.
func hmacPayload(tx Transaction) string {
	parts := []string{
		strconv.FormatInt(tx.AmountCents, 10),
		tx.CreatedAt,
		tx.Currency,
		strconv.FormatBool(tx.ErrorOccured),
		strconv.FormatBool(tx.HasParentTransaction),
		strconv.FormatInt(tx.ID, 10),
		strconv.FormatInt(tx.IntegrationID, 10),
		strconv.FormatBool(tx.Is3DSecure),
		strconv.FormatBool(tx.IsAuth),
		strconv.FormatBool(tx.IsCapture),
		strconv.FormatBool(tx.IsRefund),
		strconv.FormatBool(tx.IsRefunded),
		strconv.FormatBool(tx.IsStandalonePayment),
		strconv.FormatBool(tx.IsVoid),
		strconv.FormatBool(tx.IsVoided),
		strconv.FormatInt(tx.Order.ID, 10),
		strconv.FormatInt(tx.Owner, 10),
		strconv.FormatBool(tx.Pending),
		tx.SourceData.Pan,
		tx.SourceData.SubType,
		tx.SourceData.Type,
		strconv.FormatBool(tx.Success),
	}

	var buf bytes.Buffer
	for _, p := range parts {
		buf.WriteString(p)
	}
	return buf.String()
}

// ComputeHMAC returns the hex HMAC-SHA512 of the transaction under secret.
func ComputeHMAC(secret string, tx Transaction) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(hmacPayload(tx)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks the webhook signature in constant time. Nothing in the
// transaction may be trusted before this passes.
func VerifyHMAC(secret string, tx Transaction, received string) bool {
	expected := ComputeHMAC(secret, tx)
	return hmac.Equal([]byte(expected), []byte(received))
}
