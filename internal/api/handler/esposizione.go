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

type EsposizioneHandler struct {
	espoService *service.EsposizioneService
}

func NewEsposizioneHandler(espoService *service.EsposizioneService) *EsposizioneHandler {
	return &EsposizioneHandler{
		espoService: espoService,
	}
}

// Create 新建暴露评估
// POST /api/v1/valutazioni/esposizione
func (h *EsposizioneHandler) Create(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CreateEsposizioneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	valutazione, err := h.espoService.Create(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotaEsposizione):
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

// List 暴露评估列表，可按企业过滤
// GET /api/v1/valutazioni/esposizione?azienda_id=1
func (h *EsposizioneHandler) List(c *gin.Context) {
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

	valutazioni, err := h.espoService.List(userID, aziendaID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, valutazioni)
}

// Get 暴露评估详情，含按顺序排列的测量记录
// GET /api/v1/valutazioni/esposizione/:id
func (h *EsposizioneHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	valutazione, err := h.espoService.Get(id, userID)
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

// Update 更新暴露评估，misurazioni 提交时整体替换
// PUT /api/v1/valutazioni/esposizione/:id
func (h *EsposizioneHandler) Update(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	var req dto.UpdateEsposizioneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	valutazione, err := h.espoService.Update(id, userID, &req)
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

// Delete 删除暴露评估
// DELETE /api/v1/valutazioni/esposizione/:id
func (h *EsposizioneHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	if err := h.espoService.Delete(id, userID); err != nil {
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
