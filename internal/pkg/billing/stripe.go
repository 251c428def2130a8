package billing

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/bonlog/bonlog/internal/pkg/env"
)

// ErrSubscriptionNotFound marks the provider's terminal "not found" answer.
// Reconciliation treats it as authoritative and clears local state instead of
// retrying.
var ErrSubscriptionNotFound = errors.New("billing: subscription not found at provider")

// SubscriptionProvider abstracts the payment provider for the billing
// service. The Stripe implementation is the only production one; tests
// substitute fakes.
type SubscriptionProvider interface {
	CreateCustomer(ctx context.Context, email, name string, userID uint) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}

// StripeProvider talks to Stripe through the official SDK. The API key is
// installed lazily on first use so binaries can be built and booted without
// Stripe credentials (local dev, CI).
type StripeProvider struct {
	initOnce sync.Once

	// Indirections over the SDK entry points, swappable in tests.
	newCustomer        func(params *stripe.CustomerParams) (*stripe.Customer, error)
	newCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	newPortalSession   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	getSubscription    func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

// NewStripeProvider creates the production Stripe provider.
func NewStripeProvider() *StripeProvider {
	return &StripeProvider{
		newCustomer:        customer.New,
		newCheckoutSession: checkoutsession.New,
		newPortalSession:   portalsession.New,
		getSubscription:    subscription.Get,
	}
}

func (p *StripeProvider) ensureKey() {
	p.initOnce.Do(func() {
		stripe.Key = strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	})
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, email, name string, userID uint) (string, error) {
	p.ensureKey()
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.AddMetadata("bonlog_user_id", strconv.FormatUint(uint64(userID), 10))

	c, err := p.newCustomer(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	p.ensureKey()
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx

	sess, err := p.newCheckoutSession(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	p.ensureKey()
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.newPortalSession(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	p.ensureKey()
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := p.getSubscription(subscriptionID, params)
	if err != nil {
		if isStripeNotFound(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return normalizeStripeSubscription(sub), nil
}

// normalizeStripeSubscription flattens the SDK subscription into the
// provider-agnostic shape. Since the Basil API the period end lives on the
// subscription items, so the latest item period wins.
func normalizeStripeSubscription(sub *stripe.Subscription) *ProviderSubscription {
	out := &ProviderSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}

	var end int64
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.CurrentPeriodEnd > end {
				end = item.CurrentPeriodEnd
			}
		}
	}
	if end > 0 {
		t := time.Unix(end, 0).UTC()
		out.CurrentPeriodEnd = &t
	}
	return out
}

func isStripeNotFound(err error) bool {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		return sErr.HTTPStatusCode == http.StatusNotFound || sErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
