package auth

import (
	"context"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

const tokenKey = "token"

// TokenVerifier is satisfied by *firebaseauth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// RoleLookup resolves the role stored on a user's profile document.
type RoleLookup interface {
	UserRole(ctx context.Context, uid string) (string, error)
}

// AbortWithError writes an error in the callable-function shape used by the web client.
func AbortWithError(c *gin.Context, httpStatus int, status, message string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"error": gin.H{"status": status, "message": message},
	})
}

func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			AbortWithError(c, http.StatusUnauthorized, "unauthenticated", "Authorization header is missing")
			return
		}
		idToken := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := verifier.VerifyIDToken(c, idToken)
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, "unauthenticated", "invalid ID token")
			return
		}

		// Attach token to the context
		c.Set(tokenKey, token)

		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(lookup RoleLookup, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := UID(c)
		if !ok {
			AbortWithError(c, http.StatusUnauthorized, "unauthenticated", "missing caller identity")
			return
		}
		userRole, err := lookup.UserRole(c, uid)
		if err != nil || userRole != role {
			AbortWithError(c, http.StatusForbidden, "permission-denied", "insufficient role")
			return
		}
		c.Next()
	}
}

// RequireSelfOrRole lets a caller act on their own uid, named by the query
// parameter, and callers holding role act on anyone. Must run after AuthMiddleware.
func RequireSelfOrRole(lookup RoleLookup, role, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := UID(c)
		if !ok {
			AbortWithError(c, http.StatusUnauthorized, "unauthenticated", "missing caller identity")
			return
		}
		if target := c.Query(param); target != "" && target == uid {
			c.Next()
			return
		}
		userRole, err := lookup.UserRole(c, uid)
		if err != nil || userRole != role {
			AbortWithError(c, http.StatusForbidden, "permission-denied", "insufficient role")
			return
		}
		c.Next()
	}
}

// UID returns the verified caller id, if any.
func UID(c *gin.Context) (string, bool) {
	value, ok := c.Get(tokenKey)
	if !ok {
		return "", false
	}
	token, ok := value.(*firebaseauth.Token)
	if !ok || token.UID == "" {
		return "", false
	}
	return token.UID, true
}

// WithToken attaches an already verified token, used by tests and internal callers.
func WithToken(c *gin.Context, token *firebaseauth.Token) {
	c.Set(tokenKey, token)
}
