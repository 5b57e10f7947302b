package middleware

import (
	"net/http"
	"strings"
	"time"

	"workpulse/pkg/config"
	"workpulse/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityKey is the gin context key holding the authenticated email.
const IdentityKey = "authEmail"

// AuthMiddleware validates the Bearer JWT and checks the email claim
// against the configured allow-list.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := config.GlobalConfig.Auth.JWTSecret

		// Skip authentication if no secret is configured
		if secret == "" {
			logger.DebugCtx(c.Request.Context(), "JWT secret not configured, skipping auth")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.WarnCtx(c.Request.Context(), "unauthorized request, invalid token: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		email := emailFromToken(token)
		if email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token has no email claim"})
			c.Abort()
			return
		}

		if !emailAllowed(email, config.GlobalConfig.Auth.AllowedEmails) {
			logger.WarnCtx(c.Request.Context(), "forbidden request, email not in allow-list: %s", email)
			c.JSON(http.StatusForbidden, gin.H{"error": "email not allowed"})
			c.Abort()
			return
		}

		c.Set(IdentityKey, email)
		c.Next()
	}
}

func emailFromToken(token *jwt.Token) string {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	email, _ := claims["email"].(string)
	return strings.TrimSpace(email)
}

// emailAllowed matches case-insensitively. An empty allow-list admits any
// authenticated caller.
func emailAllowed(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimSpace(candidate), email) {
			return true
		}
	}
	return false
}

// GenerateToken issues an HS256 JWT for the given email, valid for the
// provided duration. Used by tests and local tooling.
func GenerateToken(secret, email string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
