package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": float64(42),
		"email":   "alex@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func runMiddleware(handler gin.HandlerFunc, req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	handler(c)
	return c, rec
}

func TestRequireAuthValidToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	token := signToken(t, testSecret, validClaims())

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	c, rec := runMiddleware(am.RequireAuth(), req)

	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(42), c.GetUint("user_id"))
	assert.Equal(t, "alex@example.com", c.GetString("email"))
}

func TestRequireAuthMissingHeader(t *testing.T) {
	am := NewAuthMiddleware(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	c, rec := runMiddleware(am.RequireAuth(), req)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthWrongSecret(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	token := signToken(t, "other-secret", validClaims())

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	c, rec := runMiddleware(am.RequireAuth(), req)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthExpiredToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	token := signToken(t, testSecret, claims)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	c, _ := runMiddleware(am.RequireAuth(), req)

	assert.True(t, c.IsAborted())
}

func TestRequireWSAuthQueryToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	token := signToken(t, testSecret, validClaims())

	req := httptest.NewRequest(http.MethodGet, "/partner/ws?token="+token, nil)
	c, _ := runMiddleware(am.RequireWSAuth(), req)

	assert.False(t, c.IsAborted())
	assert.Equal(t, uint(42), c.GetUint("user_id"))
}

func TestRequireWSAuthMissingToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/partner/ws", nil)
	c, rec := runMiddleware(am.RequireWSAuth(), req)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
