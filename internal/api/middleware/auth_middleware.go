package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobtrail/internal/auth"
	"jobtrail/internal/database"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware validates the Bearer access token against the identity
// provider's public key, provisions the local account row on first sight of
// a subject, and injects userID and userEmail into the request context.
func AuthMiddleware(verifier *auth.Verifier, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := verifier.VerifyToken(rawToken)
		if err != nil || (claims.TokenType != "" && claims.TokenType != "access") {
			abortUnauthorized(c)
			return
		}

		var user database.User
		err = db.WithContext(c.Request.Context()).
			Where(database.User{ExternalSubject: claims.Subject}).
			Attrs(database.User{Email: claims.Email}).
			FirstOrCreate(&user).Error
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("userEmail", user.Email)
		c.Next()
	}
}
