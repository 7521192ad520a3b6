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

type AziendaHandler struct {
	aziendaService *service.AziendaService
}

func NewAziendaHandler(aziendaService *service.AziendaService) *AziendaHandler {
	return &AziendaHandler{
		aziendaService: aziendaService,
	}
}

// Create 新建企业
// POST /api/v1/aziende
func (h *AziendaHandler) Create(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CreateAziendaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	azienda, err := h.aziendaService.Create(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotaAziende):
			response.QuotaError(c, err.Error())
		case errors.Is(err, service.ErrPartitaIVAExists):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, azienda)
}

// List 当前用户的企业列表
// GET /api/v1/aziende
func (h *AziendaHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	aziende, err := h.aziendaService.List(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, aziende)
}

// Get 企业详情
// GET /api/v1/aziende/:id
func (h *AziendaHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	azienda, err := h.aziendaService.Get(id, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAziendaNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, azienda)
}

// Update 更新企业
// PUT /api/v1/aziende/:id
func (h *AziendaHandler) Update(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	var req dto.UpdateAziendaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	azienda, err := h.aziendaService.Update(id, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAziendaNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrPartitaIVAExists):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, azienda)
}

// Delete 删除企业及关联评估
// DELETE /api/v1/aziende/:id
func (h *AziendaHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	if err := h.aziendaService.Delete(id, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrAziendaNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Azienda eliminata", nil)
}
