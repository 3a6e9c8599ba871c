package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/cdn"
	"printforge-backend/internal/middleware"
	"printforge-backend/internal/models"
	"printforge-backend/internal/services"
)

type memProductStore struct {
	created []*models.Product
}

func (m *memProductStore) CreateProduct(_ context.Context, p *models.Product) error {
	p.ID = uuid.New()
	m.created = append(m.created, p)
	return nil
}

func (m *memProductStore) GetProduct(_ context.Context, _ uuid.UUID) (*models.Product, error) {
	return nil, apperr.New(apperr.NotFound, "product not found")
}

func (m *memProductStore) DeleteProduct(_ context.Context, _ uuid.UUID) error {
	return nil
}

type nopCDN struct{}

func (nopCDN) UploadStream(_ context.Context, _ []byte, folder string) (cdn.Upload, error) {
	return cdn.Upload{URL: "https://cdn.example/" + folder, PublicID: folder}, nil
}

func (nopCDN) DeleteFolder(_ context.Context, _ string) error { return nil }

// tenMillimeterCubeSTL is a binary STL of a 10mm cube: exactly 1 cm^3.
func tenMillimeterCubeSTL(t *testing.T) []byte {
	t.Helper()
	e := float32(10)
	v := [8][3]float32{
		{0, 0, 0}, {e, 0, 0}, {e, e, 0}, {0, e, 0},
		{0, 0, e}, {e, 0, e}, {e, e, e}, {0, e, e},
	}
	quads := [6][4]int{
		{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4},
		{2, 3, 7, 6}, {1, 2, 6, 5}, {0, 4, 7, 3},
	}
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(12)))
	writeTri := func(a, b, c [3]float32) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, [3]float32{}))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, a))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, b))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, c))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0)))
	}
	for _, q := range quads {
		writeTri(v[q[0]], v[q[1]], v[q[2]])
		writeTri(v[q[0]], v[q[2]], v[q[3]])
	}
	return buf.Bytes()
}

func uploadRouter(store *memProductStore) *gin.Engine {
	ingestion := services.NewIngestionService(store, &memBlobStore{}, nopCDN{}, services.PricingConfig{
		MaterialDensityGPerCm3: 1.04,
		PricePerGram:           0.5,
		SetupFee:               2.00,
	})
	handler := NewCustomDesignHandler(ingestion)

	router := gin.New()
	group := router.Group("/")
	group.Use(middleware.CartIdentity(false))
	group.POST("/custom-designs", handler.Upload)
	return router
}

func multipartUpload(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for name, data := range files {
		part, err := writer.CreateFormFile("stlFiles", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestCustomDesignUpload(t *testing.T) {
	store := &memProductStore{}
	router := uploadRouter(store)

	body, contentType := multipartUpload(t,
		map[string]string{"customLabel": "Dragon Figurine", "quantity": "2"},
		map[string][]byte{"dragon.stl": tenMillimeterCubeSTL(t)},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/custom-designs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Quantity)
	assert.InDelta(t, 1.04, resp.EstimatedWeightGrams, 1e-6)
	assert.InDelta(t, 2.52, resp.EstimatedPrice, 1e-6)
	require.NotNil(t, resp.Product)
	assert.Equal(t, models.ProductCustom, resp.Product.Type)
	assert.Equal(t, "dragon-figurine", resp.Product.StorageLink)

	require.Len(t, store.created, 1)
}

func TestCustomDesignUpload_NoFiles(t *testing.T) {
	router := uploadRouter(&memProductStore{})

	body, contentType := multipartUpload(t, map[string]string{"customLabel": "Empty"}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/custom-designs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomDesignUpload_CorruptMeshIs400(t *testing.T) {
	store := &memProductStore{}
	router := uploadRouter(store)

	body, contentType := multipartUpload(t,
		map[string]string{"customLabel": "Broken"},
		map[string][]byte{"broken.stl": []byte("definitely not an stl")},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/custom-designs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.created)
}

func TestCustomDesignUpload_BadQuantity(t *testing.T) {
	router := uploadRouter(&memProductStore{})

	body, contentType := multipartUpload(t,
		map[string]string{"customLabel": "Dragon", "quantity": "zero"},
		map[string][]byte{"dragon.stl": tenMillimeterCubeSTL(t)},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/custom-designs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
