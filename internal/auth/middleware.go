// Package auth verifies Casdoor-issued JWTs and exposes the caller's
// identity and role to the handlers.
package auth

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/quizforge/scoring-service/internal/config"
	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/utils"
)

type Authenticator struct {
	client *casdoorsdk.Client
	logger utils.Logger
}

func NewAuthenticator(cfg config.CasdoorConfig, logger utils.Logger) *Authenticator {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return &Authenticator{client: client, logger: logger}
}

// Middleware validates the bearer token and stores "user_id" and "role" on
// the gin context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing bearer token"})
			return
		}

		claims, err := a.client.ParseJwtToken(token)
		if err != nil {
			a.logger.Warn("Rejected invalid token", "error", err, "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set("user_id", claims.User.Name)
		c.Set("user_name", claims.User.DisplayName)
		c.Set("role", string(roleFromClaims(claims)))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// roleFromClaims maps the Casdoor account onto the service's role model.
// Admin accounts outrank everything; otherwise the user's tag carries the
// platform role and unknown tags default to student.
func roleFromClaims(claims *casdoorsdk.Claims) models.UserRole {
	if claims.User.IsAdmin {
		return models.RoleAdmin
	}
	switch models.UserRole(claims.User.Tag) {
	case models.RoleTeacher:
		return models.RoleTeacher
	case models.RoleProctor:
		return models.RoleProctor
	default:
		return models.RoleStudent
	}
}
