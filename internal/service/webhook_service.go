package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/pkg/pubsub"
	"github.com/safetypro/rumore-server/internal/repository"
)

// EventGuard webhook 事件去重
type EventGuard interface {
	FirstSeen(ctx context.Context, eventID string) bool
	Forget(ctx context.Context, eventID string) error
}

// SubscriptionFetcher checkout 完成时回查订阅详情
type SubscriptionFetcher interface {
	GetSubscription(subscriptionID string) (*stripe.Subscription, error)
}

// Mailer 订阅相关的通知邮件
type Mailer interface {
	SendTrialEnding(to, planName string) error
	SendPaymentFailed(to string) error
}

// EventPublisher 状态变更广播。实时推送只走 redis 广播这一条路，
// 由各实例的订阅协程转发到本地 WebSocket 连接，webhook 实例
// 不直接写 hub，否则本实例的连接会收到两份。
type EventPublisher interface {
	Publish(ctx context.Context, event *pubsub.SubscriptionEvent) error
}

// WebhookService 是订阅状态的唯一写入方。本地状态只因 Stripe 事件变化，
// 服务端从不因本地时间流逝或用户点击自行推进状态。
//
// 幂等性分两层：事件 id 去重挡住原样重发，stripe_subscription_id /
// stripe_invoice_id 上的唯一约束保证重放也收敛到同一行。
// 乱序事件按 last-write-wins 处理，唯一例外是终态：
// canceled/expired 的订阅不会被迟到的事件复活。
type WebhookService struct {
	subRepo   *repository.SubscriptionRepository
	planRepo  *repository.PlanRepository
	userRepo  *repository.UserRepository
	fetcher   SubscriptionFetcher
	guard     EventGuard
	publisher EventPublisher
	mailer    Mailer
}

func NewWebhookService(
	subRepo *repository.SubscriptionRepository,
	planRepo *repository.PlanRepository,
	userRepo *repository.UserRepository,
	fetcher SubscriptionFetcher,
	guard EventGuard,
	publisher EventPublisher,
	mailer Mailer,
) *WebhookService {
	return &WebhookService{
		subRepo:   subRepo,
		planRepo:  planRepo,
		userRepo:  userRepo,
		fetcher:   fetcher,
		guard:     guard,
		publisher: publisher,
		mailer:    mailer,
	}
}

// ProcessEvent 分发单个 webhook 事件。返回 error 表示处理失败，
// 上层回 5xx 让 Stripe 重试；重复和未知事件都算成功。
func (s *WebhookService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	if s.guard != nil && !s.guard.FirstSeen(ctx, event.ID) {
		log.Printf("Webhook event %s (%s) already processed, skipping", event.ID, event.Type)
		return nil
	}

	var err error
	switch string(event.Type) {
	case "checkout.session.completed":
		err = s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.paid":
		err = s.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		err = s.handlePaymentFailed(ctx, event)
	case "customer.subscription.trial_will_end":
		err = s.handleTrialWillEnd(ctx, event)
	default:
		log.Printf("Webhook event %s has unhandled type %s, acknowledging", event.ID, event.Type)
		return nil
	}

	if err != nil {
		// 释放去重占位，Stripe 的重试才有机会成功
		if s.guard != nil {
			if forgetErr := s.guard.Forget(ctx, event.ID); forgetErr != nil {
				log.Printf("Failed to release dedup slot for event %s: %v", event.ID, forgetErr)
			}
		}
		return fmt.Errorf("webhook event %s (%s): %w", event.ID, event.Type, err)
	}
	return nil
}

// handleCheckoutCompleted 支付流程完成，建档或刷新本地订阅
func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("unmarshal checkout session: %w", err)
	}
	if session.Subscription == nil {
		log.Printf("Checkout session %s has no subscription, skipping", session.ID)
		return nil
	}

	userID, ok := parseUserID(session.Metadata)
	if !ok {
		log.Printf("Checkout session %s missing user_id metadata, skipping", session.ID)
		return nil
	}
	planName := session.Metadata["plan_name"]

	plan, err := s.planRepo.GetByName(planName)
	if err != nil {
		return fmt.Errorf("resolve plan %q: %w", planName, err)
	}

	// 迟到的 checkout 事件不复活已终结的订阅
	existing, err := s.subRepo.GetByStripeSubscriptionID(session.Subscription.ID)
	if err == nil && model.IsTerminalStatus(existing.Status) {
		log.Printf("Subscription %s is already %s, ignoring stale checkout event %s",
			session.Subscription.ID, existing.Status, event.ID)
		return nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	stripeSubID := session.Subscription.ID
	sub := &model.UserSubscription{
		UserID:               userID,
		PlanID:               plan.ID,
		Status:               model.SubStatusActive,
		BillingCycle:         model.BillingCycleMonthly,
		StripeSubscriptionID: &stripeSubID,
	}
	if session.Customer != nil {
		sub.StripeCustomerID = session.Customer.ID
	}

	// 回查订阅详情补齐状态和周期，失败时先按 active 落库，
	// 随后的 customer.subscription.updated 会纠正
	if s.fetcher != nil {
		if detail, ferr := s.fetcher.GetSubscription(stripeSubID); ferr == nil {
			applyStripeSubscription(sub, detail)
		} else {
			log.Printf("Failed to fetch subscription %s, defaulting to active: %v", stripeSubID, ferr)
		}
	}

	if err := s.subRepo.UpsertByStripeID(sub); err != nil {
		return err
	}

	stored, err := s.subRepo.GetByStripeSubscriptionID(stripeSubID)
	if err != nil {
		return err
	}
	s.notify(ctx, pubsub.KindSubscriptionUpdated, stored, event.ID)
	return nil
}

// handleSubscriptionUpdated 订阅状态或周期变化
func (s *WebhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("unmarshal subscription: %w", err)
	}

	sub, err := s.subRepo.GetByStripeSubscriptionID(stripeSub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// checkout 事件可能还没到，这里不造行，等它来建档
			log.Printf("Subscription %s not found locally, ignoring update event %s", stripeSub.ID, event.ID)
			return nil
		}
		return err
	}
	if model.IsTerminalStatus(sub.Status) {
		log.Printf("Subscription %s is already %s, ignoring stale update event %s", stripeSub.ID, sub.Status, event.ID)
		return nil
	}

	applyStripeSubscription(sub, &stripeSub)
	if err := s.subRepo.Update(sub); err != nil {
		return err
	}

	s.notify(ctx, pubsub.KindSubscriptionUpdated, sub, event.ID)
	return nil
}

// handleSubscriptionDeleted 订阅在 Stripe 侧终结
func (s *WebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("unmarshal subscription: %w", err)
	}

	sub, err := s.subRepo.GetByStripeSubscriptionID(stripeSub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Subscription %s not found locally, ignoring delete event %s", stripeSub.ID, event.ID)
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	canceledAt := now
	if stripeSub.CanceledAt > 0 {
		canceledAt = time.Unix(stripeSub.CanceledAt, 0).UTC()
	}
	if err := s.subRepo.UpdateFields(sub.ID, map[string]interface{}{
		"status":               model.SubStatusCanceled,
		"canceled_at":          canceledAt,
		"cancel_at_period_end": false,
	}); err != nil {
		return err
	}

	sub.Status = model.SubStatusCanceled
	s.notify(ctx, pubsub.KindSubscriptionUpdated, sub, event.ID)
	return nil
}

// handleInvoicePaid 发票支付成功，落发票并刷新最近支付快照
func (s *WebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("unmarshal invoice: %w", err)
	}
	if invoice.Subscription == nil {
		log.Printf("Invoice %s has no subscription, skipping", invoice.ID)
		return nil
	}

	sub, err := s.subRepo.GetByStripeSubscriptionID(invoice.Subscription.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Subscription %s not found locally, ignoring invoice event %s", invoice.Subscription.ID, event.ID)
			return nil
		}
		return err
	}

	// 金额从分换算为主单位
	amount := float64(invoice.AmountPaid) / 100
	total := float64(invoice.Total) / 100
	tax := float64(invoice.Tax) / 100

	record := &model.SubscriptionInvoice{
		SubscriptionID:   sub.ID,
		UserID:           sub.UserID,
		InvoiceNumber:    invoice.Number,
		StripeInvoiceID:  invoice.ID,
		Amount:           amount,
		TaxAmount:        tax,
		TotalAmount:      total,
		Currency:         string(invoice.Currency),
		Status:           string(invoice.Status),
		Paid:             true,
		InvoicePDFURL:    invoice.InvoicePDF,
		HostedInvoiceURL: invoice.HostedInvoiceURL,
	}
	if invoice.Charge != nil {
		record.StripeChargeID = invoice.Charge.ID
	}
	if invoice.Created > 0 {
		created := time.Unix(invoice.Created, 0).UTC()
		record.InvoiceDate = &created
	}
	paidAt := time.Now().UTC()
	if invoice.StatusTransitions != nil && invoice.StatusTransitions.PaidAt > 0 {
		paidAt = time.Unix(invoice.StatusTransitions.PaidAt, 0).UTC()
	}
	record.PaidDate = &paidAt

	if err := s.subRepo.UpsertInvoiceByStripeID(record); err != nil {
		return err
	}

	if err := s.subRepo.UpdateFields(sub.ID, map[string]interface{}{
		"last_payment_date":   paidAt,
		"last_payment_amount": total,
	}); err != nil {
		return err
	}

	// 续费开启新计费周期，月度用量快照归零
	if invoice.BillingReason == stripe.InvoiceBillingReasonSubscriptionCycle {
		if err := s.subRepo.ResetUsage(sub.ID); err != nil {
			return err
		}
	}

	s.notify(ctx, pubsub.KindSubscriptionUpdated, sub, event.ID)
	return nil
}

// handlePaymentFailed 扣款失败，进入催缴状态并通知用户
func (s *WebhookService) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("unmarshal invoice: %w", err)
	}
	if invoice.Subscription == nil {
		return nil
	}

	sub, err := s.subRepo.GetByStripeSubscriptionID(invoice.Subscription.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Subscription %s not found locally, ignoring payment failure event %s", invoice.Subscription.ID, event.ID)
			return nil
		}
		return err
	}
	if model.IsTerminalStatus(sub.Status) {
		log.Printf("Subscription %s is already %s, ignoring payment failure event %s", invoice.Subscription.ID, sub.Status, event.ID)
		return nil
	}

	if err := s.subRepo.UpdateFields(sub.ID, map[string]interface{}{
		"status": model.SubStatusPastDue,
	}); err != nil {
		return err
	}

	if s.mailer != nil {
		if user, uerr := s.userRepo.GetByID(sub.UserID); uerr == nil {
			if merr := s.mailer.SendPaymentFailed(user.Email); merr != nil {
				log.Printf("Failed to send payment failure email to user %d: %v", sub.UserID, merr)
			}
		}
	}

	sub.Status = model.SubStatusPastDue
	s.notify(ctx, pubsub.KindPaymentFailed, sub, event.ID)
	return nil
}

// handleTrialWillEnd 试用期将结束，只通知不落库
func (s *WebhookService) handleTrialWillEnd(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("unmarshal subscription: %w", err)
	}

	sub, err := s.subRepo.GetByStripeSubscriptionID(stripeSub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if s.mailer != nil {
		if user, uerr := s.userRepo.GetByID(sub.UserID); uerr == nil {
			planName := ""
			if sub.Plan != nil {
				planName = sub.Plan.DisplayName
			}
			if merr := s.mailer.SendTrialEnding(user.Email, planName); merr != nil {
				log.Printf("Failed to send trial ending email to user %d: %v", sub.UserID, merr)
			}
		}
	}

	s.notify(ctx, pubsub.KindTrialEnding, sub, event.ID)
	return nil
}

// notify 落库成功后的广播，推送失败不影响事件处理结果。
// 本地连接也经由 redis 订阅协程收到，这里不直接写 hub。
func (s *WebhookService) notify(ctx context.Context, kind string, sub *model.UserSubscription, eventID string) {
	if s.publisher == nil {
		return
	}

	planName := ""
	if sub.Plan != nil {
		planName = sub.Plan.Name
	}

	event := &pubsub.SubscriptionEvent{
		Kind:           kind,
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Status:         sub.Status,
		PlanName:       planName,
		StripeEventID:  eventID,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish subscription event for user %d: %v", sub.UserID, err)
	}
}

// applyStripeSubscription 把 Stripe 订阅的状态和周期写到本地行
func applyStripeSubscription(sub *model.UserSubscription, stripeSub *stripe.Subscription) {
	sub.Status = model.MapStripeStatus(string(stripeSub.Status))
	sub.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd

	if stripeSub.CurrentPeriodStart > 0 {
		start := time.Unix(stripeSub.CurrentPeriodStart, 0).UTC()
		sub.CurrentPeriodStart = &start
	}
	if stripeSub.CurrentPeriodEnd > 0 {
		end := time.Unix(stripeSub.CurrentPeriodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &end
	}
	if stripeSub.CanceledAt > 0 {
		canceled := time.Unix(stripeSub.CanceledAt, 0).UTC()
		sub.CanceledAt = &canceled
	}
	if stripeSub.TrialStart > 0 {
		start := time.Unix(stripeSub.TrialStart, 0).UTC()
		sub.TrialStartDate = &start
	}
	if stripeSub.TrialEnd > 0 {
		end := time.Unix(stripeSub.TrialEnd, 0).UTC()
		sub.TrialEndDate = &end
	}
	if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 {
		if price := stripeSub.Items.Data[0].Price; price != nil && price.Recurring != nil {
			switch price.Recurring.Interval {
			case stripe.PriceRecurringIntervalYear:
				sub.BillingCycle = model.BillingCycleYearly
			case stripe.PriceRecurringIntervalMonth:
				sub.BillingCycle = model.BillingCycleMonthly
			}
		}
	}
	if stripeSub.Customer != nil && sub.StripeCustomerID == "" {
		sub.StripeCustomerID = stripeSub.Customer.ID
	}
}

func parseUserID(metadata map[string]string) (int64, bool) {
	raw, ok := metadata["user_id"]
	if !ok {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
