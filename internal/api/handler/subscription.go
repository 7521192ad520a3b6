package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/safetypro/rumore-server/internal/api/middleware"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/pkg/response"
	"github.com/safetypro/rumore-server/internal/service"
)

type SubscriptionHandler struct {
	subService *service.SubscriptionService
}

func NewSubscriptionHandler(subService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subService: subService,
	}
}

// ListPlans 可订阅套餐列表（公开接口）
// GET /api/v1/abbonamenti/piani
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans, err := h.subService.ListPlans()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, plans)
}

// GetMy 当前订阅，没有时 data 为 null
// GET /api/v1/abbonamenti/mio
func (h *SubscriptionHandler) GetMy(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	info, err := h.subService.GetMySubscription(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, info)
}

// GetUsage 当前周期用量
// GET /api/v1/abbonamenti/utilizzo
func (h *SubscriptionHandler) GetUsage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	usage, err := h.subService.GetUsage(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, usage)
}

// CreateCheckoutSession 发起订阅支付
// POST /api/v1/abbonamenti/checkout
func (h *SubscriptionHandler) CreateCheckoutSession(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subService.CreateCheckoutSession(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadySubscribed):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrPlanNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrYearlyUnavailable):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, resp)
}

// CreatePortalSession 打开 Stripe 客户门户
// POST /api/v1/abbonamenti/portale
func (h *SubscriptionHandler) CreatePortalSession(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	resp, err := h.subService.CreatePortalSession(userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSubscription):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, resp)
}

// Cancel 取消订阅，本地状态等 webhook 同步
// POST /api/v1/abbonamenti/annulla
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.subService.Cancel(userID, &req); err != nil {
		switch {
		case errors.Is(err, service.ErrNoSubscription):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Richiesta di annullamento inviata", nil)
}

// ListInvoices 历史发票
// GET /api/v1/abbonamenti/fatture
func (h *SubscriptionHandler) ListInvoices(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	invoices, err := h.subService.ListInvoices(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, invoices)
}

// UpcomingInvoice 下一期账单预览
// GET /api/v1/abbonamenti/fatture/prossima
func (h *SubscriptionHandler) UpcomingInvoice(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	invoice, err := h.subService.UpcomingInvoice(userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSubscription):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}
	response.Success(c, invoice)
}
