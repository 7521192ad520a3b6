package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/safetypro/rumore-server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.UserSubscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(id int64) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.db.Preload("Plan").Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetCurrentByUserID 用户当前订阅：active/trial/past_due 之一，最新优先。
// canceled/expired 的历史记录不算当前订阅。
func (r *SubscriptionRepository) GetCurrentByUserID(userID int64) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.db.Preload("Plan").
		Where("user_id = ? AND status IN ?", userID, []string{
			model.SubStatusActive, model.SubStatusTrial, model.SubStatusPastDue,
		}).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByStripeSubscriptionID(stripeSubID string) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.db.Preload("Plan").Where("stripe_subscription_id = ?", stripeSubID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListByUser(userID int64) ([]model.UserSubscription, error) {
	var subs []model.UserSubscription
	err := r.db.Preload("Plan").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) Update(sub *model.UserSubscription) error {
	return r.db.Save(sub).Error
}

func (r *SubscriptionRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.UserSubscription{}).Where("id = ?", id).Updates(fields).Error
}

// UpsertByStripeID 按 stripe_subscription_id 收敛写入。重复投递的
// checkout.session.completed 落到同一行而不是插出第二条订阅。
func (r *SubscriptionRepository) UpsertByStripeID(sub *model.UserSubscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id", "status", "billing_cycle", "stripe_customer_id",
			"current_period_start", "current_period_end",
			"cancel_at_period_end", "trial_start_date", "trial_end_date",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *SubscriptionRepository) IncrementUsageEsposizione(id int64) error {
	return r.db.Model(&model.UserSubscription{}).Where("id = ?", id).
		Update("usage_valutazioni_esposizione", gorm.Expr("usage_valutazioni_esposizione + 1")).Error
}

func (r *SubscriptionRepository) IncrementUsageDPI(id int64) error {
	return r.db.Model(&model.UserSubscription{}).Where("id = ?", id).
		Update("usage_valutazioni_dpi", gorm.Expr("usage_valutazioni_dpi + 1")).Error
}

func (r *SubscriptionRepository) AddUsageStorage(id int64, deltaMB float64) error {
	return r.db.Model(&model.UserSubscription{}).Where("id = ?", id).
		Update("usage_storage_mb", gorm.Expr("usage_storage_mb + ?", deltaMB)).Error
}

func (r *SubscriptionRepository) ResetUsage(id int64) error {
	return r.db.Model(&model.UserSubscription{}).Where("id = ?", id).Updates(map[string]interface{}{
		"usage_valutazioni_esposizione": 0,
		"usage_valutazioni_dpi":         0,
	}).Error
}

// UpsertInvoiceByStripeID 发票按 stripe_invoice_id 收敛，重复的
// invoice.paid 事件把同一行刷成已支付，金额字段以最后一次为准
func (r *SubscriptionRepository) UpsertInvoiceByStripeID(invoice *model.SubscriptionInvoice) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"invoice_number", "stripe_charge_id",
			"amount", "tax_amount", "total_amount", "currency",
			"status", "paid", "invoice_date", "paid_date",
			"invoice_pdf_url", "hosted_invoice_url",
		}),
	}).Create(invoice).Error
}

func (r *SubscriptionRepository) GetInvoiceByStripeID(stripeInvoiceID string) (*model.SubscriptionInvoice, error) {
	var invoice model.SubscriptionInvoice
	err := r.db.Where("stripe_invoice_id = ?", stripeInvoiceID).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *SubscriptionRepository) ListInvoicesByUser(userID int64) ([]model.SubscriptionInvoice, error) {
	var invoices []model.SubscriptionInvoice
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&invoices).Error
	return invoices, err
}

func (r *SubscriptionRepository) CountInvoicesByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.SubscriptionInvoice{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
