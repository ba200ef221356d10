package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurum-service/aurum_service/internal/infrastructure/config"
)

func testAuth() *AuthMiddleware {
	return NewAuthMiddleware(config.JWTConfig{
		Secret:        "test-secret-do-not-use",
		Issuer:        "aurum-test",
		ExpiryMinutes: 15,
	})
}

func TestIssueAndParseToken(t *testing.T) {
	auth := testAuth()
	userID := uuid.New()

	token, err := auth.IssueToken(userID, "user@example.com", "user")
	require.NoError(t, err)

	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := testAuth().IssueToken(uuid.New(), "", "user")
	require.NoError(t, err)

	other := NewAuthMiddleware(config.JWTConfig{
		Secret: "a-different-secret",
		Issuer: "aurum-test",
	})
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	issuedElsewhere := NewAuthMiddleware(config.JWTConfig{
		Secret:        "test-secret-do-not-use",
		Issuer:        "someone-else",
		ExpiryMinutes: 15,
	})
	token, err := issuedElsewhere.IssueToken(uuid.New(), "", "user")
	require.NoError(t, err)

	_, err = testAuth().ParseToken(token)
	assert.Error(t, err)
}

func setupProtected(auth *AuthMiddleware, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{auth.RequireAuth()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/protected", handlers...)
	return router
}

func TestRequireAuth(t *testing.T) {
	auth := testAuth()
	router := setupProtected(auth)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "missing header")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "garbage token")

	token, err := auth.IssueToken(uuid.New(), "user@example.com", "user")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	auth := testAuth()
	router := setupProtected(auth, auth.RequireRole("admin", "super_admin"))

	userToken, err := auth.IssueToken(uuid.New(), "", "user")
	require.NoError(t, err)
	adminToken, err := auth.IssueToken(uuid.New(), "", "admin")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
