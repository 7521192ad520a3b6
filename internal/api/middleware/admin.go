package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/safetypro/rumore-server/internal/pkg/response"
	"github.com/safetypro/rumore-server/internal/repository"
)

// AdminOnly 管理员校验，必须挂在 Auth 之后。
// is_admin 每次查库，撤销权限即时生效。
func AdminOnly(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "Autenticazione richiesta")
			c.Abort()
			return
		}

		user, err := userRepo.GetByID(userID)
		if err != nil || !user.IsAdmin {
			response.PermissionError(c, "Accesso riservato agli amministratori")
			c.Abort()
			return
		}

		c.Next()
	}
}
