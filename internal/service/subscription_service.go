package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/repository"
)

var (
	ErrPlanNotFound      = errors.New("Piano non trovato")
	ErrAlreadySubscribed = errors.New("Hai già un abbonamento attivo")
	ErrNoSubscription    = errors.New("Nessun abbonamento attivo")
	ErrYearlyUnavailable = errors.New("Fatturazione annuale non disponibile per questo piano")
)

// PaymentProvider Stripe 侧的操作面。本地订阅状态从不由这些调用直接改写，
// 一律等 webhook 回来落库。
type PaymentProvider interface {
	CreateCustomer(email, name string, userID int64) (*stripe.Customer, error)
	CreateCheckoutSession(customerID, priceID, successURL, cancelURL string, userID int64, planName string) (*stripe.CheckoutSession, error)
	CreatePortalSession(customerID, returnURL string) (*stripe.BillingPortalSession, error)
	CancelSubscription(subscriptionID string, atPeriodEnd bool) (*stripe.Subscription, error)
	GetUpcomingInvoice(customerID, subscriptionID string) (*stripe.Invoice, error)
}

type SubscriptionService struct {
	subRepo     *repository.SubscriptionRepository
	planRepo    *repository.PlanRepository
	userRepo    *repository.UserRepository
	provider    PaymentProvider
	entitlement *EntitlementService
	cfg         *config.StripeConfig
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	planRepo *repository.PlanRepository,
	userRepo *repository.UserRepository,
	provider PaymentProvider,
	entitlement *EntitlementService,
	cfg *config.StripeConfig,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:     subRepo,
		planRepo:    planRepo,
		userRepo:    userRepo,
		provider:    provider,
		entitlement: entitlement,
		cfg:         cfg,
	}
}

func (s *SubscriptionService) ListPlans() ([]model.SubscriptionPlan, error) {
	return s.planRepo.ListActive()
}

// GetMySubscription 当前订阅概要，没有订阅时返回 nil
func (s *SubscriptionService) GetMySubscription(userID int64) (*dto.MySubscription, error) {
	sub, err := s.entitlement.CurrentSubscription(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}

	info := &dto.MySubscription{
		ID:                sub.ID,
		Status:            sub.Status,
		BillingCycle:      sub.BillingCycle,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Plan != nil {
		info.PlanName = sub.Plan.Name
		info.PlanDisplayName = sub.Plan.DisplayName
	}
	if sub.CurrentPeriodEnd != nil {
		info.CurrentPeriodEnd = sub.CurrentPeriodEnd.Format(time.RFC3339)
	}
	if sub.TrialEndDate != nil {
		info.TrialEndDate = sub.TrialEndDate.Format(time.RFC3339)
	}
	return info, nil
}

func (s *SubscriptionService) GetUsage(userID int64) (*dto.UsageInfo, error) {
	return s.entitlement.Usage(userID)
}

// CreateCheckoutSession 发起订阅支付。本地不预写订阅行，
// checkout.session.completed 回来才落库。
func (s *SubscriptionService) CreateCheckoutSession(userID int64, req *dto.CreateCheckoutSessionRequest) (*dto.CheckoutSessionResponse, error) {
	current, err := s.entitlement.CurrentSubscription(userID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, ErrAlreadySubscribed
	}

	plan, err := s.planRepo.GetByID(req.PlanID)
	if err != nil || !plan.IsActive {
		return nil, ErrPlanNotFound
	}

	priceID := plan.StripePriceIDMonthly
	if req.BillingCycle == model.BillingCycleYearly {
		if plan.StripePriceIDYearly == "" {
			return nil, ErrYearlyUnavailable
		}
		priceID = plan.StripePriceIDYearly
	}

	customerID, err := s.resolveCustomerID(userID)
	if err != nil {
		return nil, err
	}

	successURL := fmt.Sprintf("%s/abbonamento/successo?session_id={CHECKOUT_SESSION_ID}", s.cfg.FrontendURL)
	cancelURL := fmt.Sprintf("%s/abbonamento/annullato", s.cfg.FrontendURL)

	session, err := s.provider.CreateCheckoutSession(customerID, priceID, successURL, cancelURL, userID, plan.Name)
	if err != nil {
		return nil, err
	}

	return &dto.CheckoutSessionResponse{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
	}, nil
}

// CreatePortalSession 打开 Stripe 客户门户
func (s *SubscriptionService) CreatePortalSession(userID int64) (*dto.PortalSessionResponse, error) {
	sub, err := s.entitlement.CurrentSubscription(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.StripeCustomerID == "" {
		return nil, ErrNoSubscription
	}

	returnURL := fmt.Sprintf("%s/abbonamento", s.cfg.FrontendURL)
	session, err := s.provider.CreatePortalSession(sub.StripeCustomerID, returnURL)
	if err != nil {
		return nil, err
	}
	return &dto.PortalSessionResponse{PortalURL: session.URL}, nil
}

// Cancel 取消订阅。只调用 Stripe，本地状态等 customer.subscription.updated/
// deleted 事件回来再变。
func (s *SubscriptionService) Cancel(userID int64, req *dto.CancelSubscriptionRequest) error {
	sub, err := s.entitlement.CurrentSubscription(userID)
	if err != nil {
		return err
	}
	if sub == nil || sub.StripeSubscriptionID == nil {
		return ErrNoSubscription
	}

	atPeriodEnd := true
	if req.CancelAtPeriodEnd != nil {
		atPeriodEnd = *req.CancelAtPeriodEnd
	}

	_, err = s.provider.CancelSubscription(*sub.StripeSubscriptionID, atPeriodEnd)
	return err
}

func (s *SubscriptionService) ListInvoices(userID int64) ([]model.SubscriptionInvoice, error) {
	return s.subRepo.ListInvoicesByUser(userID)
}

// UpcomingInvoice 下一期账单预览，直接透传 Stripe
func (s *SubscriptionService) UpcomingInvoice(userID int64) (*stripe.Invoice, error) {
	sub, err := s.entitlement.CurrentSubscription(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.StripeSubscriptionID == nil {
		return nil, ErrNoSubscription
	}
	return s.provider.GetUpcomingInvoice(sub.StripeCustomerID, *sub.StripeSubscriptionID)
}

// resolveCustomerID 复用历史订阅上的 Stripe 客户，没有才新建
func (s *SubscriptionService) resolveCustomerID(userID int64) (string, error) {
	subs, err := s.subRepo.ListByUser(userID)
	if err != nil {
		return "", err
	}
	for _, sub := range subs {
		if sub.StripeCustomerID != "" {
			return sub.StripeCustomerID, nil
		}
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", err
	}
	customer, err := s.provider.CreateCustomer(user.Email, user.Nome, userID)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}
