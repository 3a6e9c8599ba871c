package models

import (
	"time"

	"github.com/google/uuid"
)

type ProductType string

const (
	ProductPreDesigned ProductType = "Pre-designed"
	ProductCustom      ProductType = "Custom"
)

// Product is a catalog entry. StorageLink is the folder prefix shared by the
// blob store (mesh files) and the image CDN (photos); it is derived from the
// name and unique per product.
type Product struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Type        ProductType `json:"type"`
	Price       float64     `json:"price"`
	Weight      float64     `json:"weight"` // grams
	Description string      `json:"description"`
	StorageLink string      `json:"storage_link"`
	ImagesLinks []string    `json:"images_links"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
