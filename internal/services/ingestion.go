package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/cdn"
	"printforge-backend/internal/mesh"
	"printforge-backend/internal/models"
	"printforge-backend/internal/pricing"
	"printforge-backend/internal/storage"
)

// BlobStore is the mesh-file side of a product's folder prefix.
type BlobStore interface {
	PutAll(folder string, files []models.UploadedFile) ([]storage.UploadResult, error)
	DeleteFolder(prefix string) error
}

// ImageCDN is the photo side of a product's folder prefix.
type ImageCDN interface {
	UploadStream(ctx context.Context, buf []byte, folder string) (cdn.Upload, error)
	DeleteFolder(ctx context.Context, folder string) error
}

// ProductStore is the slice of the database the ingestion pipeline touches.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// PricingConfig carries the material constants the pipeline derives prices
// from.
type PricingConfig struct {
	MaterialDensityGPerCm3 float64
	PricePerGram           float64
	SetupFee               float64
}

// IngestionService runs the upload -> price -> store -> persist pipelines for
// custom designs and catalog products.
type IngestionService struct {
	store   ProductStore
	blobs   BlobStore
	images  ImageCDN
	pricing PricingConfig
}

func NewIngestionService(store ProductStore, blobs BlobStore, images ImageCDN, pricing PricingConfig) *IngestionService {
	return &IngestionService{
		store:   store,
		blobs:   blobs,
		images:  images,
		pricing: pricing,
	}
}

// IngestResult echoes what was computed and persisted for one upload.
type IngestResult struct {
	Product              *models.Product
	Quantity             int
	EstimatedWeightGrams float64
	EstimatedPrice       float64
}

// totalWeightGrams parses every mesh buffer, sums the volumes and converts to
// weight. Files are independent solids; a single unparsable file fails the
// whole request as a client error.
func (s *IngestionService) totalWeightGrams(files []models.UploadedFile) (float64, error) {
	var totalCm3 float64
	for _, file := range files {
		vol, err := mesh.Volume(file.Buffer)
		if err != nil {
			return 0, apperr.Wrap(apperr.Parse,
				fmt.Sprintf("mesh file %s could not be processed, it may be corrupt", file.OriginalName), err)
		}
		totalCm3 += vol
	}
	return pricing.WeightGrams(totalCm3, s.pricing.MaterialDensityGPerCm3), nil
}

// IngestCustomDesign is the custom-design pipeline:
// validate -> derive folder -> price -> upload blobs -> persist.
//
// Blob uploads happen before persistence. A failure after some files are
// uploaded does not delete the batch, and a duplicate-name conflict at the
// persist step leaves the whole folder orphaned: both are accepted costs,
// logged for the reconciliation job rather than rolled back.
func (s *IngestionService) IngestCustomDesign(ctx context.Context, label string, quantity int, files []models.UploadedFile) (*IngestResult, error) {
	if len(files) == 0 {
		return nil, apperr.New(apperr.Validation, "no mesh files were uploaded")
	}
	if label == "" || quantity < 1 {
		return nil, apperr.New(apperr.Validation, "invalid label or quantity")
	}

	folder := SanitizeFolderName(label)
	if folder == "" {
		return nil, apperr.New(apperr.Validation, "label results in an empty folder name")
	}

	weight, err := s.totalWeightGrams(files)
	if err != nil {
		return nil, err
	}
	// Per-unit estimate; checkout applies the real quantity.
	price := pricing.Price(weight, 1, s.pricing.PricePerGram, s.pricing.SetupFee)

	log.Printf("[ingest] uploading %d mesh file(s) to folder %s", len(files), folder)
	if _, err := s.blobs.PutAll(folder, files); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        label,
		Type:        models.ProductCustom,
		Price:       price,
		Weight:      weight,
		Description: "This is a custom design",
		StorageLink: folder,
		ImagesLinks: []string{},
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			// The blobs uploaded above now have no owning record.
			log.Printf("[ingest] ORPHANED BLOBS: folder %s has uploads but product creation conflicted", folder)
		}
		return nil, err
	}

	return &IngestResult{
		Product:              product,
		Quantity:             quantity,
		EstimatedWeightGrams: weight,
		EstimatedPrice:       price,
	}, nil
}

// CatalogProductInput is an admin product-creation request.
type CatalogProductInput struct {
	Name        string
	Price       float64
	Description string
	Images      []models.UploadedFile
	MeshFiles   []models.UploadedFile
}

// CreateCatalogProduct fans out to the image CDN and the blob store
// concurrently, then persists. Either upload failing aborts the whole
// creation; no product row is ever written for a partial upload, though the
// uploads that did land stay orphaned (same reconciliation policy as above).
func (s *IngestionService) CreateCatalogProduct(ctx context.Context, in CatalogProductInput) (*models.Product, error) {
	if in.Name == "" || in.Description == "" || in.Price < 0 {
		return nil, apperr.New(apperr.Validation, "name, description and a non-negative price are required")
	}
	if len(in.MeshFiles) == 0 || len(in.Images) == 0 {
		return nil, apperr.New(apperr.Validation, "at least one mesh file and one image are required")
	}

	folder := SanitizeFolderName(in.Name)
	if folder == "" {
		return nil, apperr.New(apperr.Validation, "product name results in an empty folder name")
	}

	weight, err := s.totalWeightGrams(in.MeshFiles)
	if err != nil {
		return nil, err
	}

	imagesLinks := make([]string, len(in.Images))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i, img := range in.Images {
			up, err := s.images.UploadStream(gctx, img.Buffer, "products/"+folder)
			if err != nil {
				return err
			}
			imagesLinks[i] = up.URL
		}
		return nil
	})
	g.Go(func() error {
		_, err := s.blobs.PutAll(folder, in.MeshFiles)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("[ingest] catalog upload for %s aborted: %v", folder, err)
		return nil, err
	}

	product := &models.Product{
		Name:        in.Name,
		Type:        models.ProductPreDesigned,
		Price:       in.Price,
		Weight:      weight,
		Description: in.Description,
		StorageLink: folder,
		ImagesLinks: imagesLinks,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			log.Printf("[ingest] ORPHANED UPLOADS: folder %s populated but product creation conflicted", folder)
		}
		return nil, err
	}
	return product, nil
}

// DeleteCatalogProduct removes the record first, then the dependent blobs and
// CDN assets. Gateway failures surface so the orphaned folders are visible.
func (s *IngestionService) DeleteCatalogProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}

	if err := s.blobs.DeleteFolder(product.StorageLink); err != nil {
		return err
	}
	if err := s.images.DeleteFolder(ctx, "products/"+product.StorageLink); err != nil {
		return err
	}
	return nil
}
