package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseTokenRoundTrip(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	signed := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "user-1",
		"email":   "worker@qynex.com",
		"role":    "staff",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	claims, err := ParseToken(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "worker@qynex.com", claims.Email)
	require.Equal(t, "staff", claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	signed := signToken(t, "other-secret", jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	_, err := ParseToken(signed)
	require.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	signed := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	_, err := ParseToken(signed)
	require.Error(t, err)
}

func TestParseTokenRequiresUserID(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	signed := signToken(t, "test-secret", jwt.MapClaims{
		"email": "worker@qynex.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	_, err := ParseToken(signed)
	require.Error(t, err)
}

func TestAuthMiddlewarePutsClaimsInContext(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	signed := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "user-1",
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	var gotClaims UserClaims
	var gotOK bool
	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, gotOK = GetUserFromContext(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/shifts/open", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, gotOK)
	require.Equal(t, "user-1", gotClaims.UserID)
	require.Equal(t, "admin", gotClaims.Role)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/shifts/open", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleBlocksWrongRole(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	signed := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "user-1",
		"role":    "staff",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	called := false
	handler := Auth(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/shifts", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, called)
}
