package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/safetypro/rumore-server/internal/pkg/response"
	"github.com/safetypro/rumore-server/internal/repository"
	"github.com/safetypro/rumore-server/internal/testutil"
)

func TestAdminOnly_AllowsAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	admin := testutil.TestUser(t, db, testutil.WithAdmin())

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(UserIDKey, admin.ID) })
	router.Use(AdminOnly(repository.NewUserRepository(db)))
	router.GET("/test", func(c *gin.Context) {
		response.Success(c, nil)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)
}

func TestAdminOnly_RejectsRegularUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(UserIDKey, user.ID) })
	router.Use(AdminOnly(repository.NewUserRepository(db)))
	router.GET("/test", func(c *gin.Context) {
		response.Success(c, nil)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, response.CodePermissionDenied, resp.Code)
}

func TestAdminOnly_RejectsUnauthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	router := gin.New()
	router.Use(AdminOnly(repository.NewUserRepository(db)))
	router.GET("/test", func(c *gin.Context) {
		response.Success(c, nil)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestAdminOnly_RevocationTakesEffect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	admin := testutil.TestUser(t, db, testutil.WithAdmin())

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(UserIDKey, admin.ID) })
	router.Use(AdminOnly(repository.NewUserRepository(db)))
	router.GET("/test", func(c *gin.Context) {
		response.Success(c, nil)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	// Revoke and retry with the same token context
	db.Model(admin).Update("is_admin", false)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, response.CodePermissionDenied, parseResponse(t, w).Code)
}
