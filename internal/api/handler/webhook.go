package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"

	"github.com/safetypro/rumore-server/internal/service"
)

// EventVerifier 校验 webhook 签名并还原事件
type EventVerifier interface {
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type WebhookHandler struct {
	verifier       EventVerifier
	webhookService *service.WebhookService
}

func NewWebhookHandler(verifier EventVerifier, webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		verifier:       verifier,
		webhookService: webhookService,
	}
}

// Handle Stripe webhook 入口。签名失败返回 400 且不碰数据库，
// 处理失败返回 500 让 Stripe 重试，其余一律 200。
// 这是唯一不走统一响应包格式的接口。
// POST /api/webhooks/stripe
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read body")
		return
	}

	event, err := h.verifier.ConstructWebhookEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		c.String(http.StatusBadRequest, "invalid signature")
		return
	}

	if err := h.webhookService.ProcessEvent(c.Request.Context(), event); err != nil {
		log.Printf("Webhook %s (%s) failed: %v", event.ID, event.Type, err)
		c.String(http.StatusInternalServerError, "processing failed")
		return
	}

	c.String(http.StatusOK, "ok")
}
