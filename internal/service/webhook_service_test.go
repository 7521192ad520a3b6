package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/pkg/pubsub"
	"github.com/safetypro/rumore-server/internal/repository"
	"github.com/safetypro/rumore-server/internal/testutil"
)

// memoryGuard in-process stand-in for the Redis dedup guard
type memoryGuard struct {
	seen map[string]bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: make(map[string]bool)}
}

func (g *memoryGuard) FirstSeen(_ context.Context, eventID string) bool {
	if g.seen[eventID] {
		return false
	}
	g.seen[eventID] = true
	return true
}

func (g *memoryGuard) Forget(_ context.Context, eventID string) error {
	delete(g.seen, eventID)
	return nil
}

// fakeFetcher serves canned subscription details for checkout backfill
type fakeFetcher struct {
	subs map[string]*stripe.Subscription
	err  error
}

func (f *fakeFetcher) GetSubscription(id string) (*stripe.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	if sub, ok := f.subs[id]; ok {
		return sub, nil
	}
	return nil, fmt.Errorf("no such subscription %s", id)
}

// recordingPublisher counts what would go out on the pub/sub channel
type recordingPublisher struct {
	events []*pubsub.SubscriptionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event *pubsub.SubscriptionEvent) error {
	p.events = append(p.events, event)
	return nil
}

type recordingMailer struct {
	trialEnding   []string
	paymentFailed []string
}

func (m *recordingMailer) SendTrialEnding(to, _ string) error {
	m.trialEnding = append(m.trialEnding, to)
	return nil
}

func (m *recordingMailer) SendPaymentFailed(to string) error {
	m.paymentFailed = append(m.paymentFailed, to)
	return nil
}

type webhookFixture struct {
	svc     *WebhookService
	db      *gorm.DB
	subRepo *repository.SubscriptionRepository
	guard   *memoryGuard
	fetcher *fakeFetcher
	mailer  *recordingMailer
}

func setupWebhookService(t *testing.T) (*webhookFixture, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	subRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	userRepo := repository.NewUserRepository(db)

	guard := newMemoryGuard()
	fetcher := &fakeFetcher{subs: make(map[string]*stripe.Subscription)}
	mailer := &recordingMailer{}

	svc := NewWebhookService(subRepo, planRepo, userRepo, fetcher, guard, nil, mailer)

	return &webhookFixture{
			svc:     svc,
			db:      db,
			subRepo: subRepo,
			guard:   guard,
			fetcher: fetcher,
			mailer:  mailer,
		}, func() {
			testutil.CleanupTestDB(t, db)
		}
}

func makeEvent(t *testing.T, id, eventType string, payload interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func checkoutSessionPayload(stripeSubID, customerID string, userID int64, planName string) map[string]interface{} {
	return map[string]interface{}{
		"id":           "cs_test_1",
		"subscription": map[string]interface{}{"id": stripeSubID},
		"customer":     map[string]interface{}{"id": customerID},
		"metadata": map[string]string{
			"user_id":   fmt.Sprintf("%d", userID),
			"plan_name": planName,
		},
	}
}

func TestWebhookService_CheckoutCompleted_CreatesSubscription(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)

	now := time.Now().Unix()
	f.fetcher.subs["sub_new_1"] = &stripe.Subscription{
		ID:                 "sub_new_1",
		Status:             stripe.SubscriptionStatusTrialing,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now + 30*24*3600,
		TrialStart:         now,
		TrialEnd:           now + 14*24*3600,
	}

	event := makeEvent(t, "evt_checkout_1", "checkout.session.completed",
		checkoutSessionPayload("sub_new_1", "cus_1", user.ID, plan.Name))
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	sub, err := f.subRepo.GetByStripeSubscriptionID("sub_new_1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, sub.UserID)
	assert.Equal(t, plan.ID, sub.PlanID)
	assert.Equal(t, model.SubStatusTrial, sub.Status)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)
	assert.NotNil(t, sub.TrialEndDate)
	assert.NotNil(t, sub.CurrentPeriodEnd)
}

func TestWebhookService_CheckoutCompleted_RedeliveryConverges(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	f.fetcher.subs["sub_dup"] = &stripe.Subscription{
		ID:     "sub_dup",
		Status: stripe.SubscriptionStatusActive,
	}

	payload := checkoutSessionPayload("sub_dup", "cus_1", user.ID, plan.Name)

	// Same event id delivered twice: second is skipped by the guard
	require.NoError(t, f.svc.ProcessEvent(context.Background(),
		makeEvent(t, "evt_dup", "checkout.session.completed", payload)))
	require.NoError(t, f.svc.ProcessEvent(context.Background(),
		makeEvent(t, "evt_dup", "checkout.session.completed", payload)))

	// Different event id for the same subscription: upsert hits the same row
	require.NoError(t, f.svc.ProcessEvent(context.Background(),
		makeEvent(t, "evt_dup_2", "checkout.session.completed", payload)))

	var count int64
	f.db.Model(&model.UserSubscription{}).Where("stripe_subscription_id = ?", "sub_dup").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestWebhookService_CheckoutCompleted_DoesNotReviveTerminal(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_dead"),
		testutil.WithStatus(model.SubStatusCanceled))

	event := makeEvent(t, "evt_stale_checkout", "checkout.session.completed",
		checkoutSessionPayload("sub_dead", "cus_1", user.ID, plan.Name))
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	sub, err := f.subRepo.GetByStripeSubscriptionID("sub_dead")
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusCanceled, sub.Status)
}

func TestWebhookService_SubscriptionUpdated_MapsStatus(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_upd"),
		testutil.WithStatus(model.SubStatusTrial))

	now := time.Now().Unix()
	event := makeEvent(t, "evt_upd_1", "customer.subscription.updated", map[string]interface{}{
		"id":                   "sub_upd",
		"status":               "active",
		"cancel_at_period_end": true,
		"current_period_start": now,
		"current_period_end":   now + 30*24*3600,
	})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	sub, err := f.subRepo.GetByStripeSubscriptionID("sub_upd")
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusActive, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
	require.NotNil(t, sub.CurrentPeriodEnd)
}

func TestWebhookService_SubscriptionUpdated_TerminalGuard(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_late"),
		testutil.WithStatus(model.SubStatusCanceled))

	// An out-of-order "active" update arriving after cancellation must not revive
	event := makeEvent(t, "evt_late_upd", "customer.subscription.updated", map[string]interface{}{
		"id":     "sub_late",
		"status": "active",
	})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	sub, err := f.subRepo.GetByStripeSubscriptionID("sub_late")
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusCanceled, sub.Status)
}

func TestWebhookService_SubscriptionUpdated_UnknownSubscriptionAcked(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	event := makeEvent(t, "evt_unknown_sub", "customer.subscription.updated", map[string]interface{}{
		"id":     "sub_never_seen",
		"status": "active",
	})
	// Unknown subscription is logged and acknowledged, not an error
	assert.NoError(t, f.svc.ProcessEvent(context.Background(), event))
}

func TestWebhookService_SubscriptionDeleted(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_del"),
		testutil.WithStatus(model.SubStatusActive))

	event := makeEvent(t, "evt_del_1", "customer.subscription.deleted", map[string]interface{}{
		"id":          "sub_del",
		"status":      "canceled",
		"canceled_at": time.Now().Unix(),
	})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	sub, err := f.subRepo.GetByStripeSubscriptionID("sub_del")
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusCanceled, sub.Status)
	assert.NotNil(t, sub.CanceledAt)
	assert.False(t, sub.CancelAtPeriodEnd)
}

func invoicePayload(invoiceID, stripeSubID string, amountPaid, total int64) map[string]interface{} {
	return map[string]interface{}{
		"id":           invoiceID,
		"number":       "INV-0042",
		"subscription": map[string]interface{}{"id": stripeSubID},
		"amount_paid":  amountPaid,
		"total":        total,
		"currency":     "eur",
		"status":       "paid",
		"created":      time.Now().Unix(),
		"status_transitions": map[string]interface{}{
			"paid_at": time.Now().Unix(),
		},
	}
}

func TestWebhookService_InvoicePaid_RecordsInvoice(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	sub := testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_inv"))

	event := makeEvent(t, "evt_inv_1", "invoice.paid", invoicePayload("in_100", "sub_inv", 2990, 2990))
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	invoice, err := f.subRepo.GetInvoiceByStripeID("in_100")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, invoice.SubscriptionID)
	assert.Equal(t, user.ID, invoice.UserID)
	assert.True(t, invoice.Paid)
	// Cents to major units
	assert.InDelta(t, 29.90, invoice.TotalAmount, 0.001)

	// Payment snapshot on the subscription row
	updated, err := f.subRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.NotNil(t, updated.LastPaymentDate)
	require.NotNil(t, updated.LastPaymentAmount)
	assert.InDelta(t, 29.90, *updated.LastPaymentAmount, 0.001)
}

func TestWebhookService_InvoicePaid_RedeliveryIsIdempotent(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_inv2"))

	payload := invoicePayload("in_200", "sub_inv2", 2990, 2990)

	require.NoError(t, f.svc.ProcessEvent(context.Background(),
		makeEvent(t, "evt_inv_a", "invoice.paid", payload)))
	// Stripe redelivers with a fresh event id, the invoice row must converge
	require.NoError(t, f.svc.ProcessEvent(context.Background(),
		makeEvent(t, "evt_inv_b", "invoice.paid", payload)))

	var count int64
	f.db.Model(&model.SubscriptionInvoice{}).Where("stripe_invoice_id = ?", "in_200").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestWebhookService_InvoicePaid_RenewalResetsUsage(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	sub := testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_renew"),
		testutil.WithUsage(7, 4, 12.5))

	payload := invoicePayload("in_300", "sub_renew", 2990, 2990)
	payload["billing_reason"] = "subscription_cycle"

	require.NoError(t, f.svc.ProcessEvent(context.Background(),
		makeEvent(t, "evt_renew_1", "invoice.paid", payload)))

	updated, err := f.subRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.UsageValutazioniEsposizione)
	assert.Equal(t, 0, updated.UsageValutazioniDPI)
	// Storage is cumulative, not per-period
	assert.InDelta(t, 12.5, updated.UsageStorageMB, 0.001)
}

func TestWebhookService_InvoicePaid_FirstInvoiceKeepsUsage(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	sub := testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_first"),
		testutil.WithUsage(2, 1, 0))

	payload := invoicePayload("in_301", "sub_first", 2990, 2990)
	payload["billing_reason"] = "subscription_create"

	require.NoError(t, f.svc.ProcessEvent(context.Background(),
		makeEvent(t, "evt_first_1", "invoice.paid", payload)))

	updated, err := f.subRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.UsageValutazioniEsposizione)
	assert.Equal(t, 1, updated.UsageValutazioniDPI)
}

func TestWebhookService_PaymentFailed_SetsPastDue(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db, testutil.WithEmail("pagatore@example.com"))
	plan := testutil.TestPlan(t, f.db)
	testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_fail"),
		testutil.WithStatus(model.SubStatusActive))

	event := makeEvent(t, "evt_fail_1", "invoice.payment_failed", map[string]interface{}{
		"id":           "in_fail",
		"subscription": map[string]interface{}{"id": "sub_fail"},
	})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	sub, err := f.subRepo.GetByStripeSubscriptionID("sub_fail")
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusPastDue, sub.Status)
	assert.Equal(t, []string{"pagatore@example.com"}, f.mailer.paymentFailed)
}

func TestWebhookService_TrialWillEnd_NotifiesWithoutWriting(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db, testutil.WithEmail("prova@example.com"))
	plan := testutil.TestPlan(t, f.db)
	sub := testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_trial"),
		testutil.WithStatus(model.SubStatusTrial))

	event := makeEvent(t, "evt_trial_1", "customer.subscription.trial_will_end", map[string]interface{}{
		"id":     "sub_trial",
		"status": "trialing",
	})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	// Status untouched, only the notification goes out
	found, err := f.subRepo.GetByStripeSubscriptionID("sub_trial")
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusTrial, found.Status)
	assert.Equal(t, sub.UpdatedAt.Unix(), found.UpdatedAt.Unix())
	assert.Equal(t, []string{"prova@example.com"}, f.mailer.trialEnding)
}

func TestWebhookService_UnknownEventTypeAcked(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	event := makeEvent(t, "evt_other", "charge.refunded", map[string]interface{}{"id": "ch_1"})
	assert.NoError(t, f.svc.ProcessEvent(context.Background(), event))
}

func TestWebhookService_FailureReleasesDedup(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)

	// Plan lookup fails: processing errors out and the dedup slot is released
	event := makeEvent(t, "evt_retry", "checkout.session.completed",
		checkoutSessionPayload("sub_retry", "cus_1", user.ID, "missing_plan"))
	require.Error(t, f.svc.ProcessEvent(context.Background(), event))
	assert.False(t, f.guard.seen["evt_retry"])

	// Retry succeeds once the plan exists
	plan := testutil.TestPlan(t, f.db)
	f.fetcher.subs["sub_retry"] = &stripe.Subscription{
		ID:     "sub_retry",
		Status: stripe.SubscriptionStatusActive,
	}
	event = makeEvent(t, "evt_retry", "checkout.session.completed",
		checkoutSessionPayload("sub_retry", "cus_1", user.ID, plan.Name))
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	sub, err := f.subRepo.GetByStripeSubscriptionID("sub_retry")
	require.NoError(t, err)
	assert.Equal(t, plan.ID, sub.PlanID)
}

func TestWebhookService_CheckoutCompleted_FetchFailureDefaultsActive(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	f.fetcher.err = fmt.Errorf("stripe unreachable")

	event := makeEvent(t, "evt_nofetch", "checkout.session.completed",
		checkoutSessionPayload("sub_nofetch", "cus_1", user.ID, plan.Name))
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	sub, err := f.subRepo.GetByStripeSubscriptionID("sub_nofetch")
	require.NoError(t, err)
	assert.Equal(t, model.SubStatusActive, sub.Status)
}

func TestWebhookService_SubscriptionUpdated_PublishesExactlyOnce(t *testing.T) {
	f, cleanup := setupWebhookService(t)
	defer cleanup()

	publisher := &recordingPublisher{}
	f.svc.publisher = publisher

	user := testutil.TestUser(t, f.db)
	plan := testutil.TestPlan(t, f.db)
	testutil.TestSubscription(t, f.db, user.ID, plan.ID,
		testutil.WithStripeSubscriptionID("sub_pub"),
		testutil.WithStatus(model.SubStatusTrial))

	now := time.Now().Unix()
	event := makeEvent(t, "evt_pub_1", "customer.subscription.updated", map[string]interface{}{
		"id":                   "sub_pub",
		"status":               "active",
		"current_period_start": now,
		"current_period_end":   now + 30*24*3600,
	})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), event))

	// Single delivery: fan-out to WebSocket clients goes through the pub/sub channel only
	require.Len(t, publisher.events, 1)
	assert.Equal(t, pubsub.KindSubscriptionUpdated, publisher.events[0].Kind)
	assert.Equal(t, user.ID, publisher.events[0].UserID)
	assert.Equal(t, "evt_pub_1", publisher.events[0].StripeEventID)
}
