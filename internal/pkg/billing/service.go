package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bonlog/bonlog/app/models"
	"github.com/bonlog/bonlog/internal/pkg/env"
)

// Expected failure conditions. These travel as values across the public
// boundary; callers branch on them instead of catching panics.
var (
	ErrUserNotFound      = errors.New("billing: user not found")
	ErrNoBillingCustomer = errors.New("billing: user has no billing customer")
	ErrUnknownPlan       = errors.New("billing: unknown plan type")
	ErrPlanNotConfigured = errors.New("billing: no price configured for plan")
)

// perUserProviderTimeout bounds each provider call in batch mode so one hung
// request cannot stall the whole run.
const perUserProviderTimeout = 20 * time.Second

// Service owns checkout/portal initiation, provider reconciliation and the
// expiry sweep. All shared state lives in the user rows; concurrent runs
// converge to the same provider-derived truth, so a race costs at most a
// redundant write.
type Service struct {
	repo     Repository
	provider SubscriptionProvider
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, provider SubscriptionProvider) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB creates a billing service from a GORM DB handle with the
// production Stripe provider.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeProvider())
}

// EnsureCustomer returns the user's provider customer id, creating and
// persisting one on first use. Subsequent calls reuse the stored id, so at
// most one provider customer exists per local user.
func (s *Service) EnsureCustomer(ctx context.Context, userID uint) (string, error) {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if user.HasStripeCustomer() {
		return *user.StripeCustomerID, nil
	}

	customerID, err := s.provider.CreateCustomer(ctx, user.Email, user.Name, user.ID)
	if err != nil {
		return "", fmt.Errorf("create provider customer: %w", err)
	}
	if err := s.repo.SaveStripeCustomerID(user.ID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

// CreateCheckoutSession starts a hosted checkout for the given plan and
// returns the single-use redirect URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uint, plan PlanType) (string, error) {
	priceID := PriceIDForPlan(plan)
	if plan != PlanMonthly && plan != PlanYearly {
		return "", ErrUnknownPlan
	}
	if priceID == "" {
		return "", ErrPlanNotConfigured
	}

	customerID, err := s.EnsureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	base := env.AppBaseURL()
	url, err := s.provider.CreateCheckoutSession(ctx, customerID, priceID,
		base+"/user/settings/membership?checkout=success",
		base+"/user/settings/membership?checkout=cancelled")
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return url, nil
}

// CreateCustomerPortalSession starts a self-service billing portal session.
// A user who never checked out has no customer record and gets
// ErrNoBillingCustomer without any provider call.
func (s *Service) CreateCustomerPortalSession(ctx context.Context, userID uint) (string, error) {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if !user.HasStripeCustomer() {
		return "", ErrNoBillingCustomer
	}

	base := env.AppBaseURL()
	url, err := s.provider.CreatePortalSession(ctx, *user.StripeCustomerID, base+"/user/settings/membership")
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return url, nil
}

// AttachSubscription links a provider subscription to the user (from the
// checkout.session.completed webhook) and reconciles immediately.
func (s *Service) AttachSubscription(ctx context.Context, userID uint, subscriptionID string) error {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return errors.New("billing: subscription id is required")
	}
	if err := s.repo.SaveStripeSubscriptionID(userID, subscriptionID); err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return err
	}
	_, err = s.ReconcileUser(ctx, user)
	return err
}

// ReconcileUser brings one user's cached entitlement into agreement with the
// provider's subscription record. It reports whether anything was written;
// running twice against unchanged provider state writes nothing the second
// time.
func (s *Service) ReconcileUser(ctx context.Context, user *models.User) (bool, error) {
	if user == nil || !user.HasStripeSubscription() {
		return false, nil
	}

	sub, err := s.provider.GetSubscription(ctx, *user.StripeSubscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		// Terminal state: the subscription was deleted/purged at the
		// provider. Clear everything regardless of prior local state.
		if err := s.repo.ClearSubscriptionState(user.ID); err != nil {
			return false, err
		}
		user.IsPremium = false
		user.PremiumExpiresAt = nil
		user.StripeSubscriptionID = nil
		return true, nil
	}
	if err != nil {
		return false, err
	}

	shouldBePremium := isEntitlingStatus(sub.Status)
	if user.IsPremium == shouldBePremium && timePtrEqual(user.PremiumExpiresAt, sub.CurrentPeriodEnd) {
		return false, nil
	}

	if err := s.repo.UpdateEntitlement(user.ID, shouldBePremium, sub.CurrentPeriodEnd); err != nil {
		return false, err
	}
	user.IsPremium = shouldBePremium
	user.PremiumExpiresAt = sub.CurrentPeriodEnd
	return true, nil
}

// ReconcileAll walks every user with a linked subscription and reconciles
// each one. Per-user failures are logged and counted; they never abort the
// rest of the batch.
func (s *Service) ReconcileAll(ctx context.Context) (SyncSummary, error) {
	users, err := s.repo.ListUsersWithSubscription()
	if err != nil {
		return SyncSummary{}, err
	}

	summary := SyncSummary{Scanned: len(users)}
	for i := range users {
		user := &users[i]
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		userCtx, cancel := context.WithTimeout(ctx, perUserProviderTimeout)
		changed, err := s.ReconcileUser(userCtx, user)
		cancel()

		if err != nil {
			summary.Errors++
			log.Printf("billing: reconcile user %d failed: %v", user.ID, err)
			continue
		}
		if changed {
			summary.Synced++
			log.Printf("billing: reconciled user %d premium=%v expires=%s",
				user.ID, user.IsPremium, formatExpiry(user.PremiumExpiresAt))
		}
	}
	return summary, nil
}

// SweepExpired demotes every user whose premium flag outlived its recorded
// expiry. This is the safety net for missed provider callbacks; it bounds
// the staleness window to the sweeper's run interval.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	_ = ctx
	return s.repo.SweepExpired(time.Now())
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without
// a provider id are keyed by payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("billing: provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("billing: webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// UserByCustomerID resolves a provider customer id to the local user.
func (s *Service) UserByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	_ = ctx
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, errors.New("billing: customer id is required")
	}
	user, err := s.repo.GetUserByStripeCustomerID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
