package handlers

import (
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/models"
)

// fail maps a classified error to its status. Full detail is logged
// server-side; 5xx classes return only a generic message.
func fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[http] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, models.ErrorResponse{Error: apperr.SafeMessage(err)})
}

// formFiles returns the parts under the first matching field name.
func formFiles(c *gin.Context, fieldNames ...string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	for _, name := range fieldNames {
		if files := form.File[name]; len(files) > 0 {
			return files
		}
	}
	return nil
}
