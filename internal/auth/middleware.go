package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ReviewerAuth enforces bearer JWT tokens signed with HS256.
func ReviewerAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// AdminOnly rejects requests whose token does not carry the admin role.
// Must run after ReviewerAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsAny, _ := c.Get("claims")
		claims, _ := claimsAny.(Claims)
		if claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}
