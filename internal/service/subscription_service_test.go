package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/repository"
	"github.com/safetypro/rumore-server/internal/testutil"
)

// fakeProvider records Stripe calls without talking to the network
type fakeProvider struct {
	customersCreated int
	checkoutCalls    []string
	cancelCalls      []struct {
		id          string
		atPeriodEnd bool
	}
}

func (p *fakeProvider) CreateCustomer(email, name string, userID int64) (*stripe.Customer, error) {
	p.customersCreated++
	return &stripe.Customer{ID: "cus_fake_1"}, nil
}

func (p *fakeProvider) CreateCheckoutSession(customerID, priceID, successURL, cancelURL string, userID int64, planName string) (*stripe.CheckoutSession, error) {
	p.checkoutCalls = append(p.checkoutCalls, priceID)
	return &stripe.CheckoutSession{ID: "cs_fake_1", URL: "https://checkout.stripe.com/c/cs_fake_1"}, nil
}

func (p *fakeProvider) CreatePortalSession(customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	return &stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/session_1"}, nil
}

func (p *fakeProvider) CancelSubscription(subscriptionID string, atPeriodEnd bool) (*stripe.Subscription, error) {
	p.cancelCalls = append(p.cancelCalls, struct {
		id          string
		atPeriodEnd bool
	}{subscriptionID, atPeriodEnd})
	return &stripe.Subscription{ID: subscriptionID}, nil
}

func (p *fakeProvider) GetUpcomingInvoice(customerID, subscriptionID string) (*stripe.Invoice, error) {
	return &stripe.Invoice{ID: "in_upcoming"}, nil
}

func setupSubscriptionService(t *testing.T) (*SubscriptionService, *fakeProvider, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	subRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	userRepo := repository.NewUserRepository(db)
	entitlement := NewEntitlementService(
		subRepo,
		repository.NewAziendaRepository(db),
		repository.NewEsposizioneRepository(db),
		repository.NewDPIRepository(db),
		repository.NewDocumentoRepository(db),
		&config.FreeTierConfig{MaxAziende: 3},
	)

	provider := &fakeProvider{}
	svc := NewSubscriptionService(subRepo, planRepo, userRepo, provider, entitlement, &config.StripeConfig{
		FrontendURL: "http://localhost:3000",
		TrialDays:   14,
	})

	return svc, provider, db, func() { testutil.CleanupTestDB(t, db) }
}

func TestSubscriptionService_CreateCheckoutSession(t *testing.T) {
	svc, provider, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)

	resp, err := svc.CreateCheckoutSession(user.ID, &dto.CreateCheckoutSessionRequest{
		PlanID:       plan.ID,
		BillingCycle: model.BillingCycleMonthly,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.CheckoutURL)
	assert.Equal(t, 1, provider.customersCreated)
	require.Len(t, provider.checkoutCalls, 1)
	assert.Equal(t, plan.StripePriceIDMonthly, provider.checkoutCalls[0])

	// Checkout alone writes nothing locally, the webhook does
	var count int64
	db.Model(&model.UserSubscription{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
}

func TestSubscriptionService_CreateCheckoutSession_YearlyPrice(t *testing.T) {
	svc, provider, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)

	_, err := svc.CreateCheckoutSession(user.ID, &dto.CreateCheckoutSessionRequest{
		PlanID:       plan.ID,
		BillingCycle: model.BillingCycleYearly,
	})
	require.NoError(t, err)
	require.Len(t, provider.checkoutCalls, 1)
	assert.Equal(t, plan.StripePriceIDYearly, provider.checkoutCalls[0])
}

func TestSubscriptionService_CreateCheckoutSession_YearlyUnavailable(t *testing.T) {
	svc, _, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, func(p *model.SubscriptionPlan) {
		p.StripePriceIDYearly = ""
	})

	_, err := svc.CreateCheckoutSession(user.ID, &dto.CreateCheckoutSessionRequest{
		PlanID:       plan.ID,
		BillingCycle: model.BillingCycleYearly,
	})
	assert.ErrorIs(t, err, ErrYearlyUnavailable)
}

func TestSubscriptionService_CreateCheckoutSession_AlreadySubscribed(t *testing.T) {
	svc, _, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	testutil.TestSubscription(t, db, user.ID, plan.ID)

	_, err := svc.CreateCheckoutSession(user.ID, &dto.CreateCheckoutSessionRequest{
		PlanID:       plan.ID,
		BillingCycle: model.BillingCycleMonthly,
	})
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
}

func TestSubscriptionService_CreateCheckoutSession_InactivePlan(t *testing.T) {
	svc, _, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, testutil.WithInactive())

	_, err := svc.CreateCheckoutSession(user.ID, &dto.CreateCheckoutSessionRequest{
		PlanID:       plan.ID,
		BillingCycle: model.BillingCycleMonthly,
	})
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSubscriptionService_CreateCheckoutSession_ReusesCustomer(t *testing.T) {
	svc, provider, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	// A canceled history row still carries the Stripe customer
	testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithStatus(model.SubStatusCanceled))

	_, err := svc.CreateCheckoutSession(user.ID, &dto.CreateCheckoutSessionRequest{
		PlanID:       plan.ID,
		BillingCycle: model.BillingCycleMonthly,
	})
	require.NoError(t, err)
	assert.Zero(t, provider.customersCreated)
}

func TestSubscriptionService_Cancel_DelegatesToStripe(t *testing.T) {
	svc, provider, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, plan.ID)

	err := svc.Cancel(user.ID, &dto.CancelSubscriptionRequest{})
	require.NoError(t, err)
	require.Len(t, provider.cancelCalls, 1)
	assert.Equal(t, *sub.StripeSubscriptionID, provider.cancelCalls[0].id)
	assert.True(t, provider.cancelCalls[0].atPeriodEnd)

	// Local status untouched until the webhook lands
	found, err := svc.subRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusActive, found.Status)
}

func TestSubscriptionService_Cancel_Immediate(t *testing.T) {
	svc, provider, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	testutil.TestSubscription(t, db, user.ID, plan.ID)

	immediate := false
	err := svc.Cancel(user.ID, &dto.CancelSubscriptionRequest{CancelAtPeriodEnd: &immediate})
	require.NoError(t, err)
	require.Len(t, provider.cancelCalls, 1)
	assert.False(t, provider.cancelCalls[0].atPeriodEnd)
}

func TestSubscriptionService_Cancel_NoSubscription(t *testing.T) {
	svc, _, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	err := svc.Cancel(user.ID, &dto.CancelSubscriptionRequest{})
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestSubscriptionService_GetMySubscription(t *testing.T) {
	svc, _, db, cleanup := setupSubscriptionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	// No subscription: nil, not an error
	info, err := svc.GetMySubscription(user.ID)
	require.NoError(t, err)
	assert.Nil(t, info)

	plan := testutil.TestPlan(t, db)
	testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithStatus(model.SubStatusTrial))

	info, err = svc.GetMySubscription(user.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, model.SubStatusTrial, info.Status)
	assert.Equal(t, plan.Name, info.PlanName)
}
