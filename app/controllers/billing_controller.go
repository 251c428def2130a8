package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/bonlog/bonlog/app/models"
	"github.com/bonlog/bonlog/internal/pkg/billing"
	"github.com/bonlog/bonlog/internal/pkg/constants"
	"github.com/bonlog/bonlog/internal/pkg/database"
	"github.com/bonlog/bonlog/internal/pkg/env"
	"github.com/bonlog/bonlog/internal/pkg/usercontext"
)

const billingRequestTimeout = 15 * time.Second

// HandleBillingCheckout starts a Stripe Checkout session for the chosen plan
// and sends the browser to Stripe's hosted page.
func HandleBillingCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	plan, ok := billing.ParsePlanType(c.FormValue("plan"))
	if !ok {
		return flashError(c, "不明なプランです", constants.MembershipSettingsRoute)
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	url, err := svc.CreateCheckoutSession(ctx, userCtx.UserID, plan)
	if err != nil {
		log.Printf("[Billing] checkout session for user %d failed: %v", userCtx.UserID, err)
		return flashError(c, "決済ページの作成に失敗しました。しばらくしてからお試しください", constants.MembershipSettingsRoute)
	}

	return c.Redirect(url, fiber.StatusSeeOther)
}

// HandleBillingPortal opens the Stripe customer portal for subscription
// management. Users without a billing customer have nothing to manage.
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	url, err := svc.CreateCustomerPortalSession(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, billing.ErrNoBillingCustomer) {
			return flashError(c, "有効なプレミアム会員情報がありません", constants.MembershipSettingsRoute)
		}
		log.Printf("[Billing] portal session for user %d failed: %v", userCtx.UserID, err)
		return flashError(c, "管理ページを開けませんでした。しばらくしてからお試しください", constants.MembershipSettingsRoute)
	}

	return c.Redirect(url, fiber.StatusSeeOther)
}

// HandleBillingResync lets a user force a reconciliation of their own
// membership against the provider.
func HandleBillingResync(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	db := database.GetDB()
	var user models.User
	if err := db.First(&user, userCtx.UserID).Error; err != nil {
		return flashError(c, "ユーザーが見つかりません", constants.MembershipSettingsRoute)
	}

	svc := billing.NewServiceFromDB(db)
	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	if _, err := svc.ReconcileUser(ctx, &user); err != nil {
		log.Printf("[Billing] resync for user %d failed: %v", user.ID, err)
		return flashError(c, "会員情報の再同期に失敗しました", constants.MembershipSettingsRoute)
	}

	return flashSuccess(c, "会員情報を最新の状態に更新しました", constants.MembershipSettingsRoute)
}

// stripeCheckoutSessionData is the slice of the checkout.session object the
// webhook handler needs.
type stripeCheckoutSessionData struct {
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

// stripeSubscriptionData is the slice of the subscription object the webhook
// handler needs.
type stripeSubscriptionData struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

// HandleStripeWebhook verifies, journals and processes Stripe events.
// Webhooks only trigger reconciliation; the provider read inside
// ReconcileUser is the source of truth, never the event payload.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	event, err := webhook.ConstructEventWithOptions(rawBody, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created && stored.ProcessedOK() {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	// A redelivery of an event whose first processing failed falls through
	// and is processed again.

	procErr := processStripeEvent(ctx, svc, event)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, procErr)
	if procErr != nil {
		log.Printf("[Billing] webhook %s (%s) failed: %v", event.ID, event.Type, procErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

func processStripeEvent(ctx context.Context, svc *billing.Service, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var data stripeCheckoutSessionData
		if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
			return err
		}
		if data.Customer == "" || data.Subscription == "" {
			return nil
		}
		user, err := svc.UserByCustomerID(ctx, data.Customer)
		if err != nil {
			if errors.Is(err, billing.ErrUserNotFound) {
				return nil
			}
			return err
		}
		return svc.AttachSubscription(ctx, user.ID, data.Subscription)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var data stripeSubscriptionData
		if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
			return err
		}
		user, err := svc.UserByCustomerID(ctx, data.Customer)
		if err != nil {
			if errors.Is(err, billing.ErrUserNotFound) {
				return nil
			}
			return err
		}
		_, err = svc.ReconcileUser(ctx, user)
		return err

	default:
		// Journaled but not actionable.
		return nil
	}
}
