package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/pkg/response"
	"github.com/safetypro/rumore-server/internal/repository"
	"github.com/safetypro/rumore-server/internal/service"
	"github.com/safetypro/rumore-server/internal/testutil"
)

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) UploadDocument(userID int64, filename string, data []byte) (string, string, error) {
	key := fmt.Sprintf("documenti/%d/%s", userID, filename)
	m.objects[key] = data
	return key, "https://cdn.example.com/" + key, nil
}

func (m *memoryStorage) GetObject(objectKey string) (io.ReadCloser, error) {
	data, ok := m.objects[objectKey]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStorage) Delete(objectKey string) error {
	delete(m.objects, objectKey)
	return nil
}

func setupDocumentoHandler(t *testing.T) (*DocumentoHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	entitlement := service.NewEntitlementService(
		repository.NewSubscriptionRepository(db),
		repository.NewAziendaRepository(db),
		repository.NewEsposizioneRepository(db),
		repository.NewDPIRepository(db),
		repository.NewDocumentoRepository(db),
		&config.FreeTierConfig{MaxAziende: 5, MaxValutazioniEsposizioneMonth: 5, MaxValutazioniDPIMonth: 5},
	)
	svc := service.NewDocumentoService(
		repository.NewDocumentoRepository(db),
		repository.NewEsposizioneRepository(db),
		repository.NewDPIRepository(db),
		repository.NewUserRepository(db),
		&memoryStorage{objects: make(map[string][]byte)},
		entitlement,
		&config.UploadConfig{
			MaxSize:           1024 * 1024,
			AllowedExtensions: []string{".pdf", ".docx"},
		},
	)
	handler := NewDocumentoHandler(svc)

	return handler, db, func() { testutil.CleanupTestDB(t, db) }
}

func performUpload(t *testing.T, r http.Handler, filename string, fields map[string]string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/documenti", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDocumentoHandler_Upload_Success(t *testing.T) {
	handler, db, cleanup := setupDocumentoHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	testutil.TestSubscription(t, db, user.ID, plan.ID)
	valutazione := testutil.TestEsposizione(t, db, user.ID)

	router := gin.New()
	router.POST("/documenti", asUser(user.ID), handler.Upload)

	w := performUpload(t, router, "relazione.pdf", map[string]string{
		"esposizione_id": strconv.FormatInt(valutazione.ID, 10),
		"kind":           "relazione",
	}, []byte("%PDF-1.4 contenuto"))

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "relazione.pdf", data["filename"])
}

func TestDocumentoHandler_Upload_MissingFile(t *testing.T) {
	handler, db, cleanup := setupDocumentoHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/documenti", asUser(user.ID), handler.Upload)

	req := httptest.NewRequest("POST", "/documenti", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}

func TestDocumentoHandler_Upload_FreeTierBlocked(t *testing.T) {
	handler, db, cleanup := setupDocumentoHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	valutazione := testutil.TestEsposizione(t, db, user.ID)

	router := gin.New()
	router.POST("/documenti", asUser(user.ID), handler.Upload)

	w := performUpload(t, router, "relazione.pdf", map[string]string{
		"esposizione_id": strconv.FormatInt(valutazione.ID, 10),
	}, []byte("x"))

	assert.Equal(t, response.CodeQuotaExceeded, parseResponse(t, w).Code)
}

func TestDocumentoHandler_Download(t *testing.T) {
	handler, db, cleanup := setupDocumentoHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	testutil.TestSubscription(t, db, user.ID, plan.ID)
	valutazione := testutil.TestEsposizione(t, db, user.ID)

	router := gin.New()
	router.POST("/documenti", asUser(user.ID), handler.Upload)
	router.GET("/documenti/:id/download", asUser(user.ID), handler.Download)

	content := []byte("%PDF-1.4 contenuto del documento")
	w := performUpload(t, router, "relazione.pdf", map[string]string{
		"esposizione_id": strconv.FormatInt(valutazione.ID, 10),
	}, content)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	docID := int64(resp.Data.(map[string]interface{})["id"].(float64))

	req := httptest.NewRequest("GET", fmt.Sprintf("/documenti/%d/download", docID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "relazione.pdf")
}

func TestDocumentoHandler_Download_WrongOwner(t *testing.T) {
	handler, db, cleanup := setupDocumentoHandler(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	intruder := testutil.TestUser(t, db)
	doc := testutil.TestDocumento(t, db, owner.ID)

	router := gin.New()
	router.GET("/documenti/:id/download", asUser(intruder.ID), handler.Download)

	req := httptest.NewRequest("GET", fmt.Sprintf("/documenti/%d/download", doc.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}
