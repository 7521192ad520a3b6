package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/safetypro/rumore-server/internal/api/middleware"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/pkg/response"
	"github.com/safetypro/rumore-server/internal/service"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// ListUsers 用户列表
// GET /api/v1/admin/users?page=1&page_size=20
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := h.adminService.ListUsers((page-1)*pageSize, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{
		"users":     users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// SetAdmin 授予或撤销管理员
// PUT /api/v1/admin/users/:id/admin
func (h *AdminHandler) SetAdmin(c *gin.Context) {
	actorID, _ := middleware.GetUserID(c)
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	var req dto.SetAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.adminService.SetAdmin(actorID, targetID, *req.IsAdmin); err != nil {
		switch {
		case errors.Is(err, service.ErrCannotDemoteSelf):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Privilegi aggiornati", nil)
}

// DeleteUser 删除用户及其全部数据
// DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	if err := h.adminService.DeleteUser(targetID); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Utente eliminato", nil)
}
