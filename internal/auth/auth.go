/*
Package auth verifies the access tokens issued by the account service.

Sign-up, login and refresh live outside this service; here a request is
authenticated when it carries an HS256 JWT signed with SESSION_SECRET whose
user_id claim is set.
*/
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"nutricoach/internal/utility"
)

const issuer = "nutricoach"

var errMissingToken = errors.New("missing access token")

type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// GenerateAccessToken signs a token for userID valid for ttl.
func (a *Authenticator) GenerateAccessToken(userID, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &JwtCustomClaims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseToken validates tokenString and returns its claims.
func (a *Authenticator) ParseToken(tokenString string) (*JwtCustomClaims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("SESSION_SECRET is not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// tokenFromRequest reads the Bearer header (mobile), the access-token cookie
// (web), or the access_token query parameter (websocket handshakes).
func tokenFromRequest(c echo.Context) (string, error) {
	if authHeader := c.Request().Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), nil
	}
	if cookie, err := c.Cookie("access-token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if q := c.QueryParam("access_token"); q != "" {
		return q, nil
	}
	return "", errMissingToken
}

// JwtAuthMiddleware rejects unauthenticated requests and sets "user_id" on the context.
func (a *Authenticator) JwtAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing access token"})
		}

		claims, err := a.ParseToken(tokenString)
		if err != nil {
			utility.GetLogger(c).Warn().Err(err).Msg("Token validation error")
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		}

		c.Set("user_id", claims.UserID)
		c.Set("claims", claims)

		logger := utility.GetLogger(c).With().Str("user_id", claims.UserID).Logger()
		c.Set("logger", &logger)
		return next(c)
	}
}
