package billing

import "time"

// ProviderSubscription is the provider-agnostic view of a subscription used
// by reconciliation. CurrentPeriodEnd is nil when the provider reports no
// period (e.g. incomplete subscriptions).
type ProviderSubscription struct {
	ID                string
	Status            string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
}

// SyncSummary is the terminal result of a batch reconciliation run.
type SyncSummary struct {
	Scanned int
	Synced  int
	Errors  int
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
