package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-secret")

func signToken(t *testing.T, claims *Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func doRequest(mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, []string, string) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotRoles []string
	var gotUser string
	handler := mw(func(c echo.Context) error {
		gotUser = UserIDFromContext(c.Request().Context())
		gotRoles = RolesFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, gotRoles, gotUser
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "doc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleClinician},
	}
	token := signToken(t, claims, testKey)

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	rec, roles, user := doRequest(mw, "Bearer "+token)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if user != "doc-1" {
		t.Errorf("expected user doc-1, got %q", user)
	}
	if len(roles) != 1 || roles[0] != RoleClinician {
		t.Errorf("unexpected roles: %v", roles)
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _, _ := doRequest(mw, tt.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestJWTMiddlewareWrongKey(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "doc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := signToken(t, claims, []byte("other-secret"))

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	rec, _, _ := doRequest(mw, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddlewareExpiredToken(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "doc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token := signToken(t, claims, testKey)

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	rec, _, _ := doRequest(mw, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestDevAuthMiddlewareDefaults(t *testing.T) {
	rec, roles, user := doRequest(DevAuthMiddleware(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if user != "dev-user" {
		t.Errorf("expected dev-user, got %q", user)
	}
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("unexpected roles: %v", roles)
	}
}
