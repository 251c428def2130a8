package controllers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/bonlog/bonlog/app/models"
	"github.com/bonlog/bonlog/internal/pkg/billing"
	"github.com/bonlog/bonlog/internal/pkg/constants"
	"github.com/bonlog/bonlog/internal/pkg/usercontext"
)

type stubBillingRepo struct {
	users  map[uint]*models.User
	events map[string]*models.BillingWebhookEvent

	attachedSubs map[uint]string
}

func newStubBillingRepo(users ...*models.User) *stubBillingRepo {
	r := &stubBillingRepo{
		users:        make(map[uint]*models.User),
		events:       make(map[string]*models.BillingWebhookEvent),
		attachedSubs: make(map[uint]string),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubBillingRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *stubBillingRepo) GetUserByStripeCustomerID(customerID string) (*models.User, error) {
	for _, u := range r.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubBillingRepo) SaveStripeCustomerID(userID uint, customerID string) error {
	r.users[userID].StripeCustomerID = &customerID
	return nil
}

func (r *stubBillingRepo) SaveStripeSubscriptionID(userID uint, subscriptionID string) error {
	r.users[userID].StripeSubscriptionID = &subscriptionID
	r.attachedSubs[userID] = subscriptionID
	return nil
}

func (r *stubBillingRepo) ListUsersWithSubscription() ([]models.User, error) {
	return nil, nil
}

func (r *stubBillingRepo) UpdateEntitlement(userID uint, isPremium bool, expiresAt *time.Time) error {
	u := r.users[userID]
	u.IsPremium = isPremium
	u.PremiumExpiresAt = expiresAt
	return nil
}

func (r *stubBillingRepo) ClearSubscriptionState(userID uint) error {
	u := r.users[userID]
	u.IsPremium = false
	u.PremiumExpiresAt = nil
	u.StripeSubscriptionID = nil
	return nil
}

func (r *stubBillingRepo) SweepExpired(now time.Time) (int64, error) { return 0, nil }

func (r *stubBillingRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	event.ID = uint(len(r.events) + 1)
	r.events[key] = event
	return true, event, nil
}

func (r *stubBillingRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type stubBillingProvider struct {
	subscriptions map[string]*billing.ProviderSubscription
}

func (p *stubBillingProvider) CreateCustomer(context.Context, string, string, uint) (string, error) {
	return "cus_stub", nil
}

func (p *stubBillingProvider) CreateCheckoutSession(context.Context, string, string, string, string) (string, error) {
	return "https://checkout.stripe.test/session", nil
}

func (p *stubBillingProvider) CreatePortalSession(context.Context, string, string) (string, error) {
	return "https://portal.stripe.test/session", nil
}

func (p *stubBillingProvider) GetSubscription(_ context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	sub, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	copied := *sub
	return &copied, nil
}

func subscriptionEvent(eventType, payload string) stripe.Event {
	return stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(payload)},
	}
}

func TestProcessStripeEventUnknownCustomerIsBenign(t *testing.T) {
	svc := billing.NewService(newStubBillingRepo(), &stubBillingProvider{})

	// Customers created straight in the provider dashboard have no local
	// user; their events are journaled and skipped, not failed.
	err := processStripeEvent(context.Background(), svc,
		subscriptionEvent("customer.subscription.updated", `{"id":"sub_1","customer":"cus_unknown"}`))
	require.NoError(t, err)

	err = processStripeEvent(context.Background(), svc,
		subscriptionEvent("checkout.session.completed", `{"customer":"cus_unknown","subscription":"sub_1"}`))
	require.NoError(t, err)
}

func TestProcessStripeEventReconcilesKnownCustomer(t *testing.T) {
	cus := "cus_9"
	sub := "sub_9"
	user := &models.User{ID: 9, StripeCustomerID: &cus, StripeSubscriptionID: &sub}
	repo := newStubBillingRepo(user)
	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	provider := &stubBillingProvider{subscriptions: map[string]*billing.ProviderSubscription{
		sub: {ID: sub, Status: "active", CurrentPeriodEnd: &periodEnd},
	}}
	svc := billing.NewService(repo, provider)

	err := processStripeEvent(context.Background(), svc,
		subscriptionEvent("customer.subscription.updated", `{"id":"sub_9","customer":"cus_9"}`))
	require.NoError(t, err)
	require.True(t, repo.users[9].IsPremium)
}

func TestProcessStripeEventCheckoutCompletedAttachesSubscription(t *testing.T) {
	cus := "cus_3"
	user := &models.User{ID: 3, StripeCustomerID: &cus}
	repo := newStubBillingRepo(user)
	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	provider := &stubBillingProvider{subscriptions: map[string]*billing.ProviderSubscription{
		"sub_3": {ID: "sub_3", Status: "active", CurrentPeriodEnd: &periodEnd},
	}}
	svc := billing.NewService(repo, provider)

	err := processStripeEvent(context.Background(), svc,
		subscriptionEvent("checkout.session.completed", `{"customer":"cus_3","subscription":"sub_3"}`))
	require.NoError(t, err)
	require.Equal(t, "sub_3", repo.attachedSubs[3])
	require.True(t, repo.users[3].IsPremium)
}

func TestHandleBillingCheckoutRejectsUnknownPlan(t *testing.T) {
	app := fiber.New()
	app.Post("/user/settings/membership/checkout", func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{UserID: 1, IsLoggedIn: true})
		return HandleBillingCheckout(c)
	})

	req := httptest.NewRequest(fiber.MethodPost, "/user/settings/membership/checkout",
		strings.NewReader("plan=lifetime"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, constants.MembershipSettingsRoute, resp.Header.Get(fiber.HeaderLocation))
}
