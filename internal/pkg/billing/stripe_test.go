package billing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
)

func TestNormalizeStripeSubscriptionUsesLatestItemPeriod(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	sub := &stripe.Subscription{
		ID:     "sub_1",
		Status: stripe.SubscriptionStatusActive,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{CurrentPeriodEnd: early.Unix()},
				{CurrentPeriodEnd: late.Unix()},
			},
		},
	}

	got := normalizeStripeSubscription(sub)
	if got.Status != "active" {
		t.Fatalf("status = %q, want active", got.Status)
	}
	if got.CurrentPeriodEnd == nil || !got.CurrentPeriodEnd.Equal(late) {
		t.Fatalf("period end = %v, want %v", got.CurrentPeriodEnd, late)
	}
}

func TestNormalizeStripeSubscriptionWithoutItems(t *testing.T) {
	sub := &stripe.Subscription{ID: "sub_2", Status: stripe.SubscriptionStatusIncomplete}

	got := normalizeStripeSubscription(sub)
	if got.CurrentPeriodEnd != nil {
		t.Fatalf("expected nil period end, got %v", got.CurrentPeriodEnd)
	}
}

func TestGetSubscriptionMapsResourceMissing(t *testing.T) {
	p := NewStripeProvider()
	p.getSubscription = func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
		return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: http.StatusNotFound}
	}

	_, err := p.GetSubscription(context.Background(), "sub_missing")
	if !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestGetSubscriptionKeepsTransientErrors(t *testing.T) {
	p := NewStripeProvider()
	transient := &stripe.Error{HTTPStatusCode: http.StatusInternalServerError}
	p.getSubscription = func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
		return nil, transient
	}

	_, err := p.GetSubscription(context.Background(), "sub_1")
	if errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("transient provider error must not map to not-found")
	}
	if err == nil {
		t.Fatal("expected an error")
	}
}
