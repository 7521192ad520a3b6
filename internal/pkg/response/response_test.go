package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	handler(c)
	return w
}

func parse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	w := record(func(c *gin.Context) {
		Success(c, gin.H{"id": 1})
	})

	resp := parse(t, w)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotNil(t, resp.Data)
}

func TestError_DefaultMessage(t *testing.T) {
	w := record(func(c *gin.Context) {
		NotFoundError(c, "")
	})

	resp := parse(t, w)
	assert.Equal(t, CodeResourceNotFound, resp.Code)
	assert.Equal(t, "Risorsa non trovata", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestError_CustomMessage(t *testing.T) {
	w := record(func(c *gin.Context) {
		ParamError(c, "Partita IVA già esistente")
	})

	resp := parse(t, w)
	assert.Equal(t, CodeParamError, resp.Code)
	assert.Equal(t, "Partita IVA già esistente", resp.Message)
}

func TestPermissionError(t *testing.T) {
	w := record(func(c *gin.Context) {
		PermissionError(c, "")
	})

	resp := parse(t, w)
	assert.Equal(t, CodePermissionDenied, resp.Code)
	assert.Equal(t, "Permesso negato", resp.Message)
}
