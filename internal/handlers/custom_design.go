package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/models"
	"printforge-backend/internal/services"
)

// CustomDesignHandler fronts the custom-design ingestion pipeline: the client
// posts mesh files plus a label and gets back a priced Custom product.
type CustomDesignHandler struct {
	ingestion *services.IngestionService
}

func NewCustomDesignHandler(ingestion *services.IngestionService) *CustomDesignHandler {
	return &CustomDesignHandler{ingestion: ingestion}
}

// Upload handles POST /custom-designs. Multipart fields: stlFiles (one or
// more), customLabel, quantity (optional, defaults to 1).
func (h *CustomDesignHandler) Upload(c *gin.Context) {
	fhs := formFiles(c, "stlFiles", "stlFile")
	if len(fhs) == 0 {
		fail(c, apperr.New(apperr.Validation, "no mesh files were uploaded"))
		return
	}

	files, err := models.FromMultipartAll(fhs)
	if err != nil {
		fail(c, err)
		return
	}

	label := c.PostForm("customLabel")
	quantity := 1
	if q := c.PostForm("quantity"); q != "" {
		quantity, err = strconv.Atoi(q)
		if err != nil || quantity < 1 {
			fail(c, apperr.New(apperr.Validation, "quantity must be a positive integer"))
			return
		}
	}

	result, err := h.ingestion.IngestCustomDesign(c.Request.Context(), label, quantity, files)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.IngestResponse{
		Message:              "custom design uploaded",
		Product:              result.Product,
		Quantity:             result.Quantity,
		EstimatedWeightGrams: result.EstimatedWeightGrams,
		EstimatedPrice:       result.EstimatedPrice,
	})
}
