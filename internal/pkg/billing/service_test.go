package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bonlog/bonlog/app/models"
)

type fakeRepo struct {
	users  map[uint]*models.User
	events map[string]*models.BillingWebhookEvent

	entitlementWrites int
	clearWrites       int
}

func newFakeRepo(users ...*models.User) *fakeRepo {
	r := &fakeRepo{
		users:  make(map[uint]*models.User),
		events: make(map[string]*models.BillingWebhookEvent),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeRepo) GetUserByStripeCustomerID(customerID string) (*models.User, error) {
	for _, u := range r.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) SaveStripeCustomerID(userID uint, customerID string) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.StripeCustomerID = &customerID
	return nil
}

func (r *fakeRepo) SaveStripeSubscriptionID(userID uint, subscriptionID string) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.StripeSubscriptionID = &subscriptionID
	return nil
}

func (r *fakeRepo) ListUsersWithSubscription() ([]models.User, error) {
	var out []models.User
	for _, u := range r.users {
		if u.StripeSubscriptionID != nil && *u.StripeSubscriptionID != "" {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateEntitlement(userID uint, isPremium bool, expiresAt *time.Time) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.entitlementWrites++
	u.IsPremium = isPremium
	u.PremiumExpiresAt = expiresAt
	return nil
}

func (r *fakeRepo) ClearSubscriptionState(userID uint) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.clearWrites++
	u.IsPremium = false
	u.PremiumExpiresAt = nil
	u.StripeSubscriptionID = nil
	return nil
}

func (r *fakeRepo) SweepExpired(now time.Time) (int64, error) {
	var n int64
	for _, u := range r.users {
		if u.IsPremium && u.PremiumExpiresAt != nil && u.PremiumExpiresAt.Before(now) {
			u.IsPremium = false
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	event.ID = uint(len(r.events) + 1)
	r.events[key] = event
	return true, event, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
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

type fakeProvider struct {
	subscriptions map[string]*ProviderSubscription

	customersCreated int
	portalCalls      int
	checkoutCalls    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subscriptions: make(map[string]*ProviderSubscription)}
}

func (p *fakeProvider) CreateCustomer(_ context.Context, _, _ string, userID uint) (string, error) {
	p.customersCreated++
	return fmt.Sprintf("cus_test_%d", userID), nil
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, customerID, priceID, _, _ string) (string, error) {
	p.checkoutCalls++
	return "https://checkout.stripe.test/" + customerID + "/" + priceID, nil
}

func (p *fakeProvider) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	p.portalCalls++
	return "https://portal.stripe.test/" + customerID, nil
}

func (p *fakeProvider) GetSubscription(_ context.Context, subscriptionID string) (*ProviderSubscription, error) {
	sub, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	copied := *sub
	return &copied, nil
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestReconcileUserConvergesToProviderState(t *testing.T) {
	periodEnd := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	user := &models.User{ID: 1, IsPremium: false, StripeSubscriptionID: strPtr("sub_1")}
	repo := newFakeRepo(user)
	provider := newFakeProvider()
	provider.subscriptions["sub_1"] = &ProviderSubscription{
		ID:               "sub_1",
		Status:           "active",
		CurrentPeriodEnd: timePtr(periodEnd),
	}
	svc := NewService(repo, provider)

	changed, err := svc.ReconcileUser(context.Background(), user)
	require.NoError(t, err)
	require.True(t, changed)

	stored := repo.users[1]
	require.True(t, stored.IsPremium)
	require.NotNil(t, stored.PremiumExpiresAt)
	require.True(t, stored.PremiumExpiresAt.Equal(periodEnd))
}

func TestReconcileUserIsIdempotent(t *testing.T) {
	periodEnd := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	user := &models.User{ID: 1, StripeSubscriptionID: strPtr("sub_1")}
	repo := newFakeRepo(user)
	provider := newFakeProvider()
	provider.subscriptions["sub_1"] = &ProviderSubscription{
		ID:               "sub_1",
		Status:           "trialing",
		CurrentPeriodEnd: timePtr(periodEnd),
	}
	svc := NewService(repo, provider)

	changed, err := svc.ReconcileUser(context.Background(), user)
	require.NoError(t, err)
	require.True(t, changed)

	// Second run with unchanged provider state must perform zero writes.
	changed, err = svc.ReconcileUser(context.Background(), user)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 1, repo.entitlementWrites)
}

func TestReconcileUserNotFoundClearsState(t *testing.T) {
	expires := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	user := &models.User{
		ID:                   7,
		IsPremium:            true,
		PremiumExpiresAt:     timePtr(expires),
		StripeSubscriptionID: strPtr("sub_gone"),
	}
	repo := newFakeRepo(user)
	svc := NewService(repo, newFakeProvider())

	changed, err := svc.ReconcileUser(context.Background(), user)
	require.NoError(t, err)
	require.True(t, changed)

	stored := repo.users[7]
	require.False(t, stored.IsPremium)
	require.Nil(t, stored.PremiumExpiresAt)
	require.Nil(t, stored.StripeSubscriptionID)

	// Cleared users drop out of the batch scan; nothing further happens.
	changed, err = svc.ReconcileUser(context.Background(), user)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 1, repo.clearWrites)
}

func TestReconcileUserCancelledDropsPremium(t *testing.T) {
	expires := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	user := &models.User{
		ID:                   2,
		IsPremium:            true,
		PremiumExpiresAt:     timePtr(expires),
		StripeSubscriptionID: strPtr("sub_2"),
	}
	repo := newFakeRepo(user)
	provider := newFakeProvider()
	provider.subscriptions["sub_2"] = &ProviderSubscription{
		ID:               "sub_2",
		Status:           "canceled",
		CurrentPeriodEnd: timePtr(expires),
	}
	svc := NewService(repo, provider)

	changed, err := svc.ReconcileUser(context.Background(), user)
	require.NoError(t, err)
	require.True(t, changed)
	require.False(t, repo.users[2].IsPremium)
	// The subscription link survives a cancel; only not-found clears it.
	require.NotNil(t, repo.users[2].StripeSubscriptionID)
}

func TestReconcileAllIsolatesPerUserFailures(t *testing.T) {
	ok := &models.User{ID: 1, StripeSubscriptionID: strPtr("sub_ok")}
	broken := &models.User{ID: 2, StripeSubscriptionID: strPtr("sub_broken")}
	repo := newFakeRepo(ok, broken)
	provider := &erroringProvider{
		inner:  newFakeProvider(),
		failOn: "sub_broken",
	}
	provider.inner.subscriptions["sub_ok"] = &ProviderSubscription{
		ID:               "sub_ok",
		Status:           "active",
		CurrentPeriodEnd: timePtr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	svc := NewService(repo, provider)

	summary, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Scanned)
	require.Equal(t, 1, summary.Synced)
	require.Equal(t, 1, summary.Errors)
	require.True(t, repo.users[1].IsPremium)
}

type erroringProvider struct {
	inner  *fakeProvider
	failOn string
}

func (p *erroringProvider) CreateCustomer(ctx context.Context, email, name string, userID uint) (string, error) {
	return p.inner.CreateCustomer(ctx, email, name, userID)
}

func (p *erroringProvider) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	return p.inner.CreateCheckoutSession(ctx, customerID, priceID, successURL, cancelURL)
}

func (p *erroringProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return p.inner.CreatePortalSession(ctx, customerID, returnURL)
}

func (p *erroringProvider) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	if subscriptionID == p.failOn {
		return nil, errors.New("provider timeout")
	}
	return p.inner.GetSubscription(ctx, subscriptionID)
}

func TestSweepExpiredDemotesOnlyExpiredUsers(t *testing.T) {
	past := timePtr(time.Now().Add(-24 * time.Hour))
	future := timePtr(time.Now().Add(24 * time.Hour))
	expired := &models.User{ID: 1, IsPremium: true, PremiumExpiresAt: past}
	current := &models.User{ID: 2, IsPremium: true, PremiumExpiresAt: future}
	adminGrant := &models.User{ID: 3, IsPremium: true} // no expiry set
	free := &models.User{ID: 4}
	repo := newFakeRepo(expired, current, adminGrant, free)
	svc := NewService(repo, newFakeProvider())

	n, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.False(t, repo.users[1].IsPremium)
	// The sweep leaves the expiry timestamp as a historical record.
	require.NotNil(t, repo.users[1].PremiumExpiresAt)
	require.True(t, repo.users[2].IsPremium)
	require.True(t, repo.users[3].IsPremium)
	require.False(t, repo.users[4].IsPremium)

	// Re-running when nothing matches does nothing.
	n, err = svc.SweepExpired(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestEnsureCustomerCreatesAtMostOneCustomer(t *testing.T) {
	user := &models.User{ID: 5, Name: "matsuda", Email: "matsuda@example.jp"}
	repo := newFakeRepo(user)
	provider := newFakeProvider()
	svc := NewService(repo, provider)

	first, err := svc.EnsureCustomer(context.Background(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.EnsureCustomer(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, provider.customersCreated)
	require.Equal(t, first, *repo.users[5].StripeCustomerID)
}

func TestCreateCustomerPortalSessionRequiresCustomer(t *testing.T) {
	user := &models.User{ID: 6, Name: "kobayashi", Email: "kobayashi@example.jp"}
	repo := newFakeRepo(user)
	provider := newFakeProvider()
	svc := NewService(repo, provider)

	_, err := svc.CreateCustomerPortalSession(context.Background(), 6)
	require.ErrorIs(t, err, ErrNoBillingCustomer)
	require.Zero(t, provider.portalCalls)
}

func TestCreateCheckoutSessionRejectsUnknownPlan(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 1, Email: "a@example.jp", Name: "a"})
	svc := NewService(repo, newFakeProvider())

	_, err := svc.CreateCheckoutSession(context.Background(), 1, PlanType("lifetime"))
	require.ErrorIs(t, err, ErrUnknownPlan)
}

func TestRecordWebhookEventIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, newFakeProvider())

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}

	created, stored, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, stored)

	created, dup, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, stored.ID, dup.ID)
}

func TestWebhookEventRetryAfterFailureIsNotADuplicate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, newFakeProvider())

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_retry",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     `{"id":"evt_retry"}`,
		SignatureValid:  true,
	}

	created, stored, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	require.True(t, created)

	// First delivery fails mid-processing; the provider will redeliver.
	require.NoError(t, svc.MarkWebhookProcessed(context.Background(), stored.ID, errors.New("db unavailable")))

	created, redelivered, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	require.False(t, created)
	// The journal row exists but did not process cleanly, so the
	// redelivery must run through processing again.
	require.False(t, redelivered.ProcessedOK())

	require.NoError(t, svc.MarkWebhookProcessed(context.Background(), redelivered.ID, nil))

	_, final, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	require.True(t, final.ProcessedOK())
}
