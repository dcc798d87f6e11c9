package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"doxradar/internal/config"
	"doxradar/internal/logger"
	"doxradar/internal/models"
)

// getJWTKey returns the auth provider's shared signing secret.
func getJWTKey() []byte {
	return []byte(config.Get().JWTSecret)
}

// AuthClaims are the claims the auth provider puts in its access tokens.
// The subject claim is the canonical user id; the local user row mirrors it.
type AuthClaims struct {
	Email        string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
	jwt.RegisteredClaims
}

// UserSyncer lazily provisions a local user row for a token subject.
type UserSyncer interface {
	SyncFromToken(id, email, name string) (*models.User, error)
}

// ParseToken parses and validates a bearer token issued by the auth provider.
func ParseToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getJWTKey(), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// AuthMiddleware verifies the bearer token, syncs the local user row with the
// token's identity, and sets the user id and email in the context.
func AuthMiddleware(users UserSyncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		name := claims.UserMetadata.Name
		if name == "" && claims.Email != "" {
			name = strings.SplitN(claims.Email, "@", 2)[0]
		}

		user, err := users.SyncFromToken(claims.Subject, claims.Email, name)
		if err != nil {
			logger.Get().Errorw("user sync failed", "subject", claims.Subject, "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Set("email", user.Email)
		c.Next()
	}
}
