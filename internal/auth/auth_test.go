package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, a *Authenticator, prepare func(*http.Request)) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var seen string
	e.GET("/me", func(c echo.Context) error {
		seen, _ = c.Get("user_id").(string)
		return c.NoContent(http.StatusNoContent)
	}, a.JwtAuthMiddleware)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	prepare(req)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestJwtAuthMiddlewareAcceptsValidToken(t *testing.T) {
	a := NewAuthenticator("secret")
	token, err := a.GenerateAccessToken("user-1", "ana@example.com", "Ana", time.Hour)
	require.NoError(t, err)

	rec, seen := serve(t, a, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-1", seen)

	rec, seen = serve(t, a, func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access-token", Value: token}) })
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-1", seen)

	rec, _ = serve(t, a, func(r *http.Request) { r.URL.RawQuery = "access_token=" + token })
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestJwtAuthMiddlewareRejects(t *testing.T) {
	a := NewAuthenticator("secret")
	expired, err := a.GenerateAccessToken("user-1", "", "", -time.Minute)
	require.NoError(t, err)
	otherKey, err := NewAuthenticator("other").GenerateAccessToken("user-1", "", "", time.Hour)
	require.NoError(t, err)
	noUser, err := a.GenerateAccessToken("", "", "", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &JwtCustomClaims{UserID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong key":  otherKey,
		"no user id": noUser,
		"alg none":   none,
		"garbage":    "abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			rec, seen := serve(t, a, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, seen)
		})
	}

	rec, _ := serve(t, a, func(r *http.Request) {})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestParseTokenWithoutSecret(t *testing.T) {
	_, err := NewAuthenticator("").ParseToken("x")
	assert.Error(t, err)
}
