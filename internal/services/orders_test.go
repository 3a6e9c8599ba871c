package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/models"
)

type fakeOrderStore struct {
	orders map[uuid.UUID]*models.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, o *models.Order) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	stored := *o
	f.orders[o.ID] = &stored
	return nil
}

func (f *fakeOrderStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	out := *o
	return &out, nil
}

func (f *fakeOrderStore) ListOrdersByUser(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.OwnedBy(userID) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) error {
	o, ok := f.orders[id]
	if !ok {
		return apperr.New(apperr.NotFound, "order not found")
	}
	o.Status = status
	return nil
}

func (f *fakeOrderStore) MarkOrderPaid(_ context.Context, id uuid.UUID, result models.PaymentResult, paidAt time.Time) (bool, error) {
	o, ok := f.orders[id]
	if !ok || o.IsPaid {
		return false, nil
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentResult = &result
	return true, nil
}

type fakeRater struct {
	fee      float64
	lastKg   float64
	lastCity string
	err      error
}

func (f *fakeRater) CalculateRate(_ context.Context, destCity, _ string, weightKg float64) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.lastCity = destCity
	f.lastKg = weightKg
	return f.fee, nil
}

func checkoutFixture(t *testing.T) (*OrderService, *fakeCartStore, *fakeOrderStore, *fakeRater, models.CartIdentity, uuid.UUID) {
	t.Helper()
	cartStore := newFakeCartStore()
	productID := uuid.New()
	cartStore.products[productID] = &models.Product{
		ID: productID, Name: "Vase", Type: models.ProductPreDesigned,
		StorageLink: "vase", Price: 10.00, Weight: 250,
	}

	carts := NewCartService(cartStore, &fakeBlobStore{})
	orderStore := newFakeOrderStore()
	rater := &fakeRater{fee: 15.00}
	svc := NewOrderService(orderStore, carts, rater)

	identity := guestIdentity()
	_, err := carts.Add(context.Background(), identity, productID, 2)
	require.NoError(t, err)

	return svc, cartStore, orderStore, rater, identity, productID
}

func TestCheckout(t *testing.T) {
	svc, cartStore, _, rater, identity, productID := checkoutFixture(t)

	order, err := svc.Checkout(context.Background(), identity, CheckoutInput{
		ShippingAddress: models.Address{City: "Cairo", Country: "EG"},
		GuestEmail:      "guest@example.com",
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, productID, order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.InDelta(t, 20.00, order.Subtotal, 1e-9)
	assert.InDelta(t, 15.00, order.ShippingPrice, 1e-9)
	assert.InDelta(t, 35.00, order.TotalPrice, 1e-9)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.False(t, order.IsPaid)

	// 2 x 250g = 0.5kg quoted to the rater.
	assert.InDelta(t, 0.5, rater.lastKg, 1e-9)
	assert.Equal(t, "Cairo", rater.lastCity)

	// Cart cleared after the snapshot.
	assert.Empty(t, cartStore.entries)
}

func TestCheckout_SnapshotSurvivesPriceChange(t *testing.T) {
	svc, cartStore, orderStore, _, identity, productID := checkoutFixture(t)

	order, err := svc.Checkout(context.Background(), identity, CheckoutInput{
		ShippingAddress: models.Address{City: "Cairo", Country: "EG"},
		GuestEmail:      "guest@example.com",
	})
	require.NoError(t, err)

	cartStore.products[productID].Price = 99.00

	stored, err := orderStore.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 10.00, stored.Items[0].Price, 1e-9)
	assert.InDelta(t, 35.00, stored.TotalPrice, 1e-9)
}

func TestCheckout_EmptyCart(t *testing.T) {
	carts := NewCartService(newFakeCartStore(), &fakeBlobStore{})
	svc := NewOrderService(newFakeOrderStore(), carts, &fakeRater{})

	_, err := svc.Checkout(context.Background(), guestIdentity(), CheckoutInput{
		ShippingAddress: models.Address{City: "Cairo", Country: "EG"},
		GuestEmail:      "guest@example.com",
	})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestCheckout_GuestNeedsEmail(t *testing.T) {
	svc, _, _, _, identity, _ := checkoutFixture(t)
	_, err := svc.Checkout(context.Background(), identity, CheckoutInput{
		ShippingAddress: models.Address{City: "Cairo", Country: "EG"},
	})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestCheckout_MissingDestination(t *testing.T) {
	svc, _, _, _, identity, _ := checkoutFixture(t)
	_, err := svc.Checkout(context.Background(), identity, CheckoutInput{GuestEmail: "g@example.com"})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestGet_OwnershipEnforced(t *testing.T) {
	orderStore := newFakeOrderStore()
	owner := uuid.New()
	order := &models.Order{UserID: &owner, Status: models.OrderPending}
	require.NoError(t, orderStore.CreateOrder(context.Background(), order))

	carts := NewCartService(newFakeCartStore(), &fakeBlobStore{})
	svc := NewOrderService(orderStore, carts, &fakeRater{})

	_, err := svc.Get(context.Background(), order.ID, owner, false)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), order.ID, uuid.New(), false)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = svc.Get(context.Background(), order.ID, uuid.New(), true)
	assert.NoError(t, err)
}

func TestAdvanceStatus(t *testing.T) {
	orderStore := newFakeOrderStore()
	order := &models.Order{Status: models.OrderPending}
	require.NoError(t, orderStore.CreateOrder(context.Background(), order))

	carts := NewCartService(newFakeCartStore(), &fakeBlobStore{})
	svc := NewOrderService(orderStore, carts, &fakeRater{})

	updated, err := svc.AdvanceStatus(context.Background(), order.ID, models.OrderPrinting)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPrinting, updated.Status)

	// Backward and repeat moves are rejected.
	_, err = svc.AdvanceStatus(context.Background(), order.ID, models.OrderPending)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	_, err = svc.AdvanceStatus(context.Background(), order.ID, models.OrderPrinting)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	// Unknown status.
	_, err = svc.AdvanceStatus(context.Background(), order.ID, models.OrderStatus("Lost"))
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = svc.AdvanceStatus(context.Background(), order.ID, models.OrderDelivered)
	require.NoError(t, err)
}

func TestRecordPayment_Idempotent(t *testing.T) {
	orderStore := newFakeOrderStore()
	order := &models.Order{Status: models.OrderPending}
	require.NoError(t, orderStore.CreateOrder(context.Background(), order))

	carts := NewCartService(newFakeCartStore(), &fakeBlobStore{})
	svc := NewOrderService(orderStore, carts, &fakeRater{})

	result := models.PaymentResult{TransactionID: "tx-1", Status: "success"}
	require.NoError(t, svc.RecordPayment(context.Background(), order.ID, result))
	// Second confirmation is a no-op, not an error.
	require.NoError(t, svc.RecordPayment(context.Background(), order.ID, result))

	stored, err := orderStore.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, "tx-1", stored.PaymentResult.TransactionID)
}
