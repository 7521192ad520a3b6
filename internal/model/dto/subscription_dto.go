package dto

// CreateCheckoutSessionRequest 发起订阅支付请求
type CreateCheckoutSessionRequest struct {
	PlanID       int64  `json:"plan_id" binding:"required"`
	BillingCycle string `json:"billing_cycle" binding:"required,oneof=monthly yearly"`
}

// CheckoutSessionResponse 返回 Stripe Checkout 页面地址
type CheckoutSessionResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

// PortalSessionResponse 返回 Stripe 客户门户地址
type PortalSessionResponse struct {
	PortalURL string `json:"portal_url"`
}

// CancelSubscriptionRequest 取消订阅请求
type CancelSubscriptionRequest struct {
	CancelAtPeriodEnd *bool `json:"cancel_at_period_end"`
}

// MySubscription 当前订阅概要
type MySubscription struct {
	ID                int64  `json:"id"`
	PlanName          string `json:"plan_name"`
	PlanDisplayName   string `json:"plan_display_name"`
	Status            string `json:"status"`
	BillingCycle      string `json:"billing_cycle"`
	CurrentPeriodEnd  string `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	TrialEndDate      string `json:"trial_end_date,omitempty"`
}

// UsageInfo 当前周期用量与套餐上限。没有订阅时返回免费档默认值。
// 上限为 nil 表示该套餐不设限。
type UsageInfo struct {
	UsageValutazioniEsposizione    int    `json:"usage_valutazioni_esposizione_current"`
	UsageValutazioniDPI            int    `json:"usage_valutazioni_dpi_current"`
	UsageStorageMB                 float64 `json:"usage_storage_mb_current"`
	MaxValutazioniEsposizioneMonth *int   `json:"max_valutazioni_esposizione_month"`
	MaxValutazioniDPIMonth         *int   `json:"max_valutazioni_dpi_month"`
	MaxAziende                     *int   `json:"max_aziende"`
	MaxStorageMB                   *int   `json:"max_storage_mb"`
	PeriodStart                    string `json:"period_start,omitempty"`
	PeriodEnd                      string `json:"period_end,omitempty"`
}
