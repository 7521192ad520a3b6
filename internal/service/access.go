package service

import (
	"github.com/safetypro/rumore-server/internal/repository"
)

// isAdminUser 资源的读/改/删默认按归属过滤，管理员可越过。
// 查询失败按非管理员处理，调用方拿到的仍是 not found。
func isAdminUser(userRepo *repository.UserRepository, userID int64) bool {
	user, err := userRepo.GetByID(userID)
	return err == nil && user.IsAdmin
}
