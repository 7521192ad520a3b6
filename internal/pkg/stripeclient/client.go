package stripeclient

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/safetypro/rumore-server/config"
)

// Client Stripe API 的薄封装。持有独立的 client.API 实例而不是设置全局
// stripe.Key。不做重试：本地幂等由数据库唯一约束保证，Stripe 侧自带幂等。
// 所有调用失败时原样返回 Stripe 的错误。
type Client struct {
	api           *client.API
	webhookSecret string
	trialDays     int64
}

func New(cfg *config.StripeConfig) *Client {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &Client{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		trialDays:     cfg.TrialDays,
	}
}

// CreateCustomer 创建 Stripe 客户，metadata 带上内部 user_id
func (c *Client) CreateCustomer(email, name string, userID int64) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.AddMetadata("user_id", fmt.Sprintf("%d", userID))

	return c.api.Customers.New(params)
}

// CreateCheckoutSession 创建订阅模式的 Checkout 会话，固定试用期，
// metadata 带内部 user_id 和套餐名，webhook 处理时据此回查
func (c *Client) CreateCheckoutSession(customerID, priceID, successURL, cancelURL string, userID int64, planName string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(c.trialDays),
			Metadata: map[string]string{
				"user_id":   fmt.Sprintf("%d", userID),
				"plan_name": planName,
			},
		},
	}
	params.AddMetadata("user_id", fmt.Sprintf("%d", userID))
	params.AddMetadata("plan_name", planName)

	return c.api.CheckoutSessions.New(params)
}

// CreatePortalSession 创建客户门户会话
func (c *Client) CreatePortalSession(customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}

	return c.api.BillingPortalSessions.New(params)
}

// GetSubscription 获取订阅详情
func (c *Client) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	return c.api.Subscriptions.Get(subscriptionID, nil)
}

// CancelSubscription 取消订阅。atPeriodEnd 为 true 时到期取消，否则立即取消。
func (c *Client) CancelSubscription(subscriptionID string, atPeriodEnd bool) (*stripe.Subscription, error) {
	if atPeriodEnd {
		return c.api.Subscriptions.Update(subscriptionID, &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
	}
	return c.api.Subscriptions.Cancel(subscriptionID, nil)
}

// UpdateSubscriptionPrice 换套餐，按比例计费
func (c *Client) UpdateSubscriptionPrice(subscriptionID, newPriceID string) (*stripe.Subscription, error) {
	sub, err := c.api.Subscriptions.Get(subscriptionID, nil)
	if err != nil {
		return nil, err
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	return c.api.Subscriptions.Update(subscriptionID, &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(newPriceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	})
}

// ListPricesForProduct 列出某个产品的所有激活价格
func (c *Client) ListPricesForProduct(productID string) ([]*stripe.Price, error) {
	params := &stripe.PriceListParams{
		Product: stripe.String(productID),
		Active:  stripe.Bool(true),
	}

	var prices []*stripe.Price
	it := c.api.Prices.List(params)
	for it.Next() {
		prices = append(prices, it.Price())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}

// GetUpcomingInvoice 获取下一期账单，没有时返回 nil
func (c *Client) GetUpcomingInvoice(customerID, subscriptionID string) (*stripe.Invoice, error) {
	return c.api.Invoices.Upcoming(&stripe.InvoiceUpcomingParams{
		Customer:     stripe.String(customerID),
		Subscription: stripe.String(subscriptionID),
	})
}

// ListInvoices 列出客户的历史账单
func (c *Client) ListInvoices(customerID string, limit int64) ([]*stripe.Invoice, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	params.Limit = stripe.Int64(limit)

	var invoices []*stripe.Invoice
	it := c.api.Invoices.List(params)
	for it.Next() {
		invoices = append(invoices, it.Invoice())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ConstructWebhookEvent 用共享密钥校验 webhook 签名并解析事件。
// 签名校验在任何事件分发之前执行，失败即 400。
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		c.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
}
