package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/auth/domain"
	"github.com/plantpulse/plantpulse-backend/internal/auth/repository"
)

// WithUser upserts the authenticated user and stores its DB id and role in
// context. Must run after FirebaseAuthMiddleware or OptionalUser.
func WithUser(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		fuid := UserFirebaseUID(c)
		if fuid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
			c.Abort()
			return
		}

		uid, role, err := userRepo.EnsureUser(c.Request.Context(), repository.UpsertUser{
			FirebaseUID: fuid,
			Email:       c.GetString("email"),
			DisplayName: c.GetString("display_name"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(CtxUserDBID, uid)
		c.Set(CtxUserRole, role)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller's role is at least the given
// one. Must run after WithUser.
func RequireRole(minRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if domain.RoleLevel(UserRole(c)) < domain.RoleLevel(minRole) {
			c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "insufficient role"})
			c.Abort()
			return
		}
		c.Next()
	}
}
