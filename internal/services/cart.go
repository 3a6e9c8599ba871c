package services

import (
	"context"
	"log"

	"github.com/google/uuid"

	"printforge-backend/internal/models"
)

// CartStore is the slice of the database the cart service touches.
type CartStore interface {
	AddCartEntry(ctx context.Context, identity models.CartIdentity, productID uuid.UUID, quantity int) (*models.CartEntry, error)
	SetCartQuantity(ctx context.Context, identity models.CartIdentity, productID uuid.UUID, quantity int) error
	DeleteCartEntry(ctx context.Context, identity models.CartIdentity, productID uuid.UUID) (*models.CartEntry, error)
	ClearCart(ctx context.Context, identity models.CartIdentity) error
	ListCartEntries(ctx context.Context, identity models.CartIdentity) ([]models.CartEntry, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// CartService folds raw cart entries and live catalog prices into priced
// views. Carts always reflect the current catalog price, not a snapshot.
type CartService struct {
	store CartStore
	blobs BlobStore
}

func NewCartService(store CartStore, blobs BlobStore) *CartService {
	return &CartService{store: store, blobs: blobs}
}

// View joins each entry to its current product. Entries whose product has
// been deleted stay in the list with a nil product and contribute nothing to
// the subtotal.
func (s *CartService) View(ctx context.Context, identity models.CartIdentity) (models.CartView, error) {
	entries, err := s.store.ListCartEntries(ctx, identity)
	if err != nil {
		return models.CartView{}, err
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return models.CartView{}, err
	}

	view := models.CartView{Items: make([]models.CartItem, 0, len(entries))}
	for _, entry := range entries {
		item := models.CartItem{Entry: entry}
		if p, ok := products[entry.ProductID]; ok {
			product := p
			item.Product = &product
			item.LineTotal = float64(entry.Quantity) * product.Price
			view.Subtotal += item.LineTotal
		}
		view.Items = append(view.Items, item)
	}
	return view, nil
}

// Add validates the product exists, then upserts the entry (an existing one
// gets its quantity incremented) and returns the refreshed view.
func (s *CartService) Add(ctx context.Context, identity models.CartIdentity, productID uuid.UUID, quantity int) (models.CartView, error) {
	if quantity < 1 {
		quantity = 1
	}
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return models.CartView{}, err
	}
	if _, err := s.store.AddCartEntry(ctx, identity, productID, quantity); err != nil {
		return models.CartView{}, err
	}
	return s.View(ctx, identity)
}

func (s *CartService) UpdateQuantity(ctx context.Context, identity models.CartIdentity, productID uuid.UUID, quantity int) (models.CartView, error) {
	if err := s.store.SetCartQuantity(ctx, identity, productID, quantity); err != nil {
		return models.CartView{}, err
	}
	return s.View(ctx, identity)
}

// Remove deletes the entry; a removed Custom design also has its uploaded
// mesh folder cleared, since nothing else references it.
func (s *CartService) Remove(ctx context.Context, identity models.CartIdentity, productID uuid.UUID) (models.CartView, error) {
	entry, err := s.store.DeleteCartEntry(ctx, identity, productID)
	if err != nil {
		return models.CartView{}, err
	}

	product, err := s.store.GetProduct(ctx, entry.ProductID)
	if err == nil && product.Type == models.ProductCustom {
		if err := s.blobs.DeleteFolder(product.StorageLink); err != nil {
			log.Printf("[cart] failed to clear custom design folder %s: %v", product.StorageLink, err)
			return models.CartView{}, err
		}
	}

	return s.View(ctx, identity)
}

func (s *CartService) Clear(ctx context.Context, identity models.CartIdentity) error {
	return s.store.ClearCart(ctx, identity)
}
