package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/models"
	"printforge-backend/internal/services"
	"printforge-backend/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memBlobStore struct {
	deletedFolders []string
}

func (m *memBlobStore) PutAll(folder string, files []models.UploadedFile) ([]storage.UploadResult, error) {
	results := make([]storage.UploadResult, len(files))
	for i, f := range files {
		results[i] = storage.UploadResult{Key: folder + "/" + f.OriginalName, OriginalName: f.OriginalName}
	}
	return results, nil
}

func (m *memBlobStore) DeleteFolder(prefix string) error {
	m.deletedFolders = append(m.deletedFolders, prefix)
	return nil
}

type memCartStore struct {
	entries  map[uuid.UUID]*models.CartEntry
	products map[uuid.UUID]*models.Product
}

func newMemCartStore() *memCartStore {
	return &memCartStore{
		entries:  map[uuid.UUID]*models.CartEntry{},
		products: map[uuid.UUID]*models.Product{},
	}
}

func (m *memCartStore) AddCartEntry(_ context.Context, identity models.CartIdentity, productID uuid.UUID, quantity int) (*models.CartEntry, error) {
	if e, ok := m.entries[productID]; ok {
		e.Quantity += quantity
		return e, nil
	}
	e := &models.CartEntry{ID: uuid.New(), UserID: identity.UserID, GuestID: identity.GuestID, ProductID: productID, Quantity: quantity}
	m.entries[productID] = e
	return e, nil
}

func (m *memCartStore) SetCartQuantity(_ context.Context, _ models.CartIdentity, productID uuid.UUID, quantity int) error {
	e, ok := m.entries[productID]
	if !ok {
		return apperr.New(apperr.NotFound, "item not found in cart")
	}
	e.Quantity = quantity
	return nil
}

func (m *memCartStore) DeleteCartEntry(_ context.Context, _ models.CartIdentity, productID uuid.UUID) (*models.CartEntry, error) {
	e, ok := m.entries[productID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "item not found in cart")
	}
	delete(m.entries, productID)
	return e, nil
}

func (m *memCartStore) ClearCart(_ context.Context, _ models.CartIdentity) error {
	m.entries = map[uuid.UUID]*models.CartEntry{}
	return nil
}

func (m *memCartStore) ListCartEntries(_ context.Context, _ models.CartIdentity) ([]models.CartEntry, error) {
	out := make([]models.CartEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memCartStore) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "product not found")
	}
	return p, nil
}

func (m *memCartStore) GetProductsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := map[uuid.UUID]models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

type memOrderStore struct {
	orders map[uuid.UUID]*models.Order
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: map[uuid.UUID]*models.Order{}}
}

func (m *memOrderStore) CreateOrder(_ context.Context, o *models.Order) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	stored := *o
	m.orders[o.ID] = &stored
	return nil
}

func (m *memOrderStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	out := *o
	return &out, nil
}

func (m *memOrderStore) ListOrdersByUser(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, o := range m.orders {
		if o.OwnedBy(userID) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return apperr.New(apperr.NotFound, "order not found")
	}
	o.Status = status
	return nil
}

func (m *memOrderStore) MarkOrderPaid(_ context.Context, id uuid.UUID, result models.PaymentResult, paidAt time.Time) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.IsPaid {
		return false, nil
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentResult = &result
	return true, nil
}

type flatRater struct{ fee float64 }

func (f *flatRater) CalculateRate(_ context.Context, _, _ string, _ float64) (float64, error) {
	return f.fee, nil
}

func newTestOrderService(t *testing.T, cartStore *memCartStore, orderStore *memOrderStore) *services.OrderService {
	t.Helper()
	carts := services.NewCartService(cartStore, &memBlobStore{})
	return services.NewOrderService(orderStore, carts, &flatRater{fee: 15.00})
}
