package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func createValidJWT(userID, email, role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	})

	tokenString, _ := token.SignedString([]byte("test-secret"))
	return tokenString
}

func newTestContext(method, path, authHeader string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestJWTMiddleware_SuccessfulAuthentication(t *testing.T) {
	middleware := JWTMiddleware(JWTConfig{Secret: "test-secret", Logger: zap.NewNop()})

	token := createValidJWT("user-42", "user@example.com", "user")
	c, rec := newTestContext(http.MethodGet, "/api/v1/enrollments/1", "Bearer "+token)

	handler := middleware(func(c echo.Context) error {
		user, err := GetUserFromContext(c)
		assert.NoError(t, err)
		assert.Equal(t, "user-42", user.UserID)
		assert.Equal(t, "user@example.com", user.Email)
		return c.NoContent(http.StatusOK)
	})

	err := handler(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	middleware := JWTMiddleware(JWTConfig{Secret: "test-secret", Logger: zap.NewNop()})
	c, rec := newTestContext(http.MethodGet, "/api/v1/enrollments/1", "")

	err := middleware(okHandler)(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	middleware := JWTMiddleware(JWTConfig{Secret: "test-secret", Logger: zap.NewNop()})
	c, rec := newTestContext(http.MethodGet, "/api/v1/enrollments/1", "Bearer not-a-token")

	err := middleware(okHandler)(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	middleware := JWTMiddleware(JWTConfig{Secret: "other-secret", Logger: zap.NewNop()})
	token := createValidJWT("user-42", "", "")
	c, rec := newTestContext(http.MethodGet, "/api/v1/enrollments/1", "Bearer "+token)

	err := middleware(okHandler)(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_MissingSubClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	tokenString, _ := token.SignedString([]byte("test-secret"))

	middleware := JWTMiddleware(JWTConfig{Secret: "test-secret", Logger: zap.NewNop()})
	c, rec := newTestContext(http.MethodGet, "/api/v1/enrollments/1", "Bearer "+tokenString)

	err := middleware(okHandler)(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_SkipPaths(t *testing.T) {
	middleware := JWTMiddleware(JWTConfig{
		Secret:    "test-secret",
		Logger:    zap.NewNop(),
		SkipPaths: []string{"/health", "/api/v1/payments/kispg/notify"},
	})
	c, rec := newTestContext(http.MethodPost, "/api/v1/payments/kispg/notify", "")

	err := middleware(okHandler)(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	secret := "test-secret"
	jwtMiddleware := JWTMiddleware(JWTConfig{Secret: secret, Logger: zap.NewNop()})
	adminMiddleware := RequireAdmin(zap.NewNop())

	t.Run("admin role passes", func(t *testing.T) {
		token := createValidJWT("admin-1", "admin@example.com", RoleAdmin)
		c, rec := newTestContext(http.MethodPost, "/api/v1/admin/enrollments/1/cancel", "Bearer "+token)

		err := jwtMiddleware(adminMiddleware(okHandler))(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("plain user is forbidden", func(t *testing.T) {
		token := createValidJWT("user-1", "user@example.com", "user")
		c, rec := newTestContext(http.MethodPost, "/api/v1/admin/enrollments/1/cancel", "Bearer "+token)

		err := jwtMiddleware(adminMiddleware(okHandler))(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
