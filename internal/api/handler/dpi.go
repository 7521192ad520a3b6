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

type DPIHandler struct {
	dpiService *service.DPIService
}

func NewDPIHandler(dpiService *service.DPIService) *DPIHandler {
	return &DPIHandler{
		dpiService: dpiService,
	}
}

// Create 新建 DPI 评估
// POST /api/v1/valutazioni/dpi
func (h *DPIHandler) Create(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CreateDPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	valutazione, err := h.dpiService.Create(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotaDPI):
			response.QuotaError(c, err.Error())
		case errors.Is(err, service.ErrAziendaNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, valutazione)
}

// List DPI 评估列表，可按企业过滤
// GET /api/v1/valutazioni/dpi?azienda_id=1
func (h *DPIHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var aziendaID *int64
	if raw := c.Query("azienda_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.ParamError(c, "azienda_id non valido")
			return
		}
		aziendaID = &id
	}

	valutazioni, err := h.dpiService.List(userID, aziendaID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, valutazioni)
}

// Get DPI 评估详情
// GET /api/v1/valutazioni/dpi/:id
func (h *DPIHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	valutazione, err := h.dpiService.Get(id, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValutazioneNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, valutazione)
}

// Update 更新 DPI 评估
// PUT /api/v1/valutazioni/dpi/:id
func (h *DPIHandler) Update(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	var req dto.UpdateDPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	valutazione, err := h.dpiService.Update(id, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValutazioneNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrAziendaNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, valutazione)
}

// Delete 删除 DPI 评估
// DELETE /api/v1/valutazioni/dpi/:id
func (h *DPIHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	if err := h.dpiService.Delete(id, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrValutazioneNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Valutazione eliminata", nil)
}
