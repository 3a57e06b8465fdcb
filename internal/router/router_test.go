package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kikichoice/storefront-backend/config"
	"github.com/kikichoice/storefront-backend/internal/app/controller"
	"github.com/kikichoice/storefront-backend/internal/app/repository"
	"github.com/kikichoice/storefront-backend/internal/app/service"
	"github.com/kikichoice/storefront-backend/internal/db"
	"github.com/kikichoice/storefront-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode, Environment: "test"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}},
	}

	wishlist := controller.NewWishlistController(service.NewWishlistService(repository.NewWishlistRepository(testDB)))

	r := NewRouter(
		&controller.AuthController{},
		&controller.ProductController{},
		&controller.CartController{},
		&controller.CheckoutController{},
		wishlist,
		&controller.UploadController{},
		middleware.NewAuthMiddleware("test-secret", nil),
		cfg,
	)
	return r.Setup()
}

func TestRouter_Health(t *testing.T) {
	engine := setupTestRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRouter_CORSPreflight(t *testing.T) {
	engine := setupTestRouter(t)

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"allowed origin", "https://shop.example.com", "https://shop.example.com"},
		{"unknown origin", "https://evil.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRouter_IssuesProfileCookie(t *testing.T) {
	engine := setupTestRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, middleware.ProfileCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	engine := setupTestRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodPost, "/api/v1/checkout/abc/authenticated"},
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(route.method, route.path, strings.NewReader("{}")))

		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
		assert.Contains(t, w.Body.String(), "AUTH_UNAUTHORIZED", route.path)
	}
}
