package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/models"
	"printforge-backend/internal/services"
)

// ProductLister is the read side of the catalog the public routes need.
type ProductLister interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProductsByType(ctx context.Context, t models.ProductType) ([]models.Product, error)
}

// ProductsHandler serves the public catalog and the admin create/delete
// routes.
type ProductsHandler struct {
	catalog   ProductLister
	ingestion *services.IngestionService
}

func NewProductsHandler(catalog ProductLister, ingestion *services.IngestionService) *ProductsHandler {
	return &ProductsHandler{catalog: catalog, ingestion: ingestion}
}

// List handles GET /products: the Pre-designed catalog only. Custom designs
// are private to their uploader's cart.
func (h *ProductsHandler) List(c *gin.Context) {
	products, err := h.catalog.ListProductsByType(c.Request.Context(), models.ProductPreDesigned)
	if err != nil {
		fail(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

// Get handles GET /products/:id.
func (h *ProductsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "invalid product id"))
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Create handles POST /admin/products. Multipart fields: name, price,
// description, images (one or more), stlFiles (one or more).
func (h *ProductsHandler) Create(c *gin.Context) {
	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "price must be a number"))
		return
	}

	images, err := models.FromMultipartAll(formFiles(c, "images", "image"))
	if err != nil {
		fail(c, err)
		return
	}
	meshes, err := models.FromMultipartAll(formFiles(c, "stlFiles", "stlFile"))
	if err != nil {
		fail(c, err)
		return
	}

	product, err := h.ingestion.CreateCatalogProduct(c.Request.Context(), services.CatalogProductInput{
		Name:        c.PostForm("name"),
		Price:       price,
		Description: c.PostForm("description"),
		Images:      images,
		MeshFiles:   meshes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// Delete handles DELETE /admin/products/:id.
func (h *ProductsHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.New(apperr.Validation, "invalid product id"))
		return
	}

	if err := h.ingestion.DeleteCatalogProduct(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "product deleted"})
}
