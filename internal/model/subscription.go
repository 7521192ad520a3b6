package model

import (
	"time"
)

// 本地订阅状态，只能由 Stripe webhook 事件驱动变更
const (
	SubStatusPending  = "pending"
	SubStatusTrial    = "trial"
	SubStatusActive   = "active"
	SubStatusPastDue  = "past_due"
	SubStatusCanceled = "canceled"
	SubStatusExpired  = "expired"
	SubStatusUnknown  = "unknown"
)

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)

// MapStripeStatus Stripe 订阅状态到本地状态的固定映射，禁止临时发明新状态
func MapStripeStatus(stripeStatus string) string {
	switch stripeStatus {
	case "active":
		return SubStatusActive
	case "trialing":
		return SubStatusTrial
	case "past_due", "unpaid":
		return SubStatusPastDue
	case "canceled":
		return SubStatusCanceled
	case "incomplete":
		return SubStatusPending
	case "incomplete_expired":
		return SubStatusExpired
	default:
		return SubStatusUnknown
	}
}

// IsTerminalStatus canceled/expired 为终态，不会被后续事件复活
func IsTerminalStatus(status string) bool {
	return status == SubStatusCanceled || status == SubStatusExpired
}

// SubscriptionPlan 订阅套餐，管理员维护的参考数据
type SubscriptionPlan struct {
	ID                             int64     `gorm:"primaryKey" json:"id"`
	Name                           string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	DisplayName                    string    `gorm:"size:100;not null" json:"display_name"`
	Description                    string    `gorm:"type:text" json:"description,omitempty"`
	PriceMonthly                   float64   `gorm:"type:decimal(10,2)" json:"price_monthly"`
	PriceYearly                    *float64  `gorm:"type:decimal(10,2)" json:"price_yearly,omitempty"`
	Currency                       string    `gorm:"size:3;default:EUR" json:"currency"`
	MaxValutazioniEsposizioneMonth *int      `json:"max_valutazioni_esposizione_month"`
	MaxValutazioniDPIMonth         *int      `gorm:"column:max_valutazioni_dpi_month" json:"max_valutazioni_dpi_month"`
	MaxAziende                     *int      `json:"max_aziende"`
	StorageMB                      *int      `gorm:"column:storage_mb" json:"storage_mb"`
	FeatureArchivioDocumenti       bool      `gorm:"default:false" json:"feature_archivio_documenti"`
	FeatureExportData              bool      `gorm:"default:false" json:"feature_export_data"`
	FeaturePrioritySupport         bool      `gorm:"default:false" json:"feature_priority_support"`
	StripeProductID                string    `gorm:"size:100" json:"-"`
	StripePriceIDMonthly           string    `gorm:"size:100" json:"-"`
	StripePriceIDYearly            string    `gorm:"size:100" json:"-"`
	IsActive                       bool      `gorm:"default:true;index" json:"is_active"`
	IsPopular                      bool      `gorm:"default:false" json:"is_popular"`
	SortOrder                      int       `gorm:"default:0" json:"sort_order"`
	CreatedAt                      time.Time `json:"created_at"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// UserSubscription 用户订阅。同一用户最多一条 active/trial/past_due 状态的记录，
// 旧记录只转为 canceled/expired，从不物理删除。StripeSubscriptionID 是幂等键。
type UserSubscription struct {
	ID                   int64             `gorm:"primaryKey" json:"id"`
	UserID               int64             `gorm:"not null;index" json:"user_id"`
	User                 *User             `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PlanID               int64             `gorm:"not null" json:"plan_id"`
	Plan                 *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status               string            `gorm:"size:20;default:pending;index" json:"status"`
	BillingCycle         string            `gorm:"size:10" json:"billing_cycle"`
	StripeCustomerID     string            `gorm:"size:100;index" json:"-"`
	StripeSubscriptionID *string           `gorm:"size:100;uniqueIndex" json:"-"`
	CurrentPeriodStart   *time.Time        `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time        `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool              `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt           *time.Time        `json:"canceled_at,omitempty"`
	TrialStartDate       *time.Time        `json:"trial_start_date,omitempty"`
	TrialEndDate         *time.Time        `json:"trial_end_date,omitempty"`

	UsageValutazioniEsposizione int     `gorm:"default:0" json:"usage_valutazioni_esposizione_current"`
	UsageValutazioniDPI         int     `gorm:"column:usage_valutazioni_dpi;default:0" json:"usage_valutazioni_dpi_current"`
	UsageStorageMB              float64 `gorm:"column:usage_storage_mb;type:decimal(10,2);default:0" json:"usage_storage_mb_current"`

	LastPaymentDate   *time.Time `json:"last_payment_date,omitempty"`
	LastPaymentAmount *float64   `gorm:"type:decimal(10,2)" json:"last_payment_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserSubscription) TableName() string {
	return "user_subscriptions"
}

// SubscriptionInvoice 发票记录，只由 invoice.paid 事件写入，
// StripeInvoiceID 唯一约束保证重复投递收敛
type SubscriptionInvoice struct {
	ID               int64             `gorm:"primaryKey" json:"id"`
	SubscriptionID   int64             `gorm:"not null;index" json:"subscription_id"`
	Subscription     *UserSubscription `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID           int64             `gorm:"not null;index" json:"user_id"`
	InvoiceNumber    string            `gorm:"size:100" json:"invoice_number"`
	StripeInvoiceID  string            `gorm:"size:100;uniqueIndex;not null" json:"-"`
	StripeChargeID   string            `gorm:"size:100" json:"-"`
	Amount           float64           `gorm:"type:decimal(10,2)" json:"amount"`
	TaxAmount        float64           `gorm:"type:decimal(10,2)" json:"tax_amount"`
	TotalAmount      float64           `gorm:"type:decimal(10,2)" json:"total_amount"`
	Currency         string            `gorm:"size:3" json:"currency"`
	Status           string            `gorm:"size:20" json:"status"`
	Paid             bool              `gorm:"default:false" json:"paid"`
	InvoiceDate      *time.Time        `json:"invoice_date,omitempty"`
	PaidDate         *time.Time        `json:"paid_date,omitempty"`
	InvoicePDFURL    string            `gorm:"size:500" json:"invoice_pdf_url,omitempty"`
	HostedInvoiceURL string            `gorm:"size:500" json:"hosted_invoice_url,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (SubscriptionInvoice) TableName() string {
	return "subscription_invoices"
}
