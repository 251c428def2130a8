package models

import "time"

// BillingWebhookEvent journals every received provider webhook so replays and
// provider retries stay idempotent. The provider+event-id pair is unique; a
// second delivery of a successfully processed event is skipped, while a
// redelivery after a failed run is processed again.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProcessedOK reports whether the event already went through processing
// without an error. Only then may a redelivery be acknowledged as a duplicate.
func (e *BillingWebhookEvent) ProcessedOK() bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}

// Billing provider constants used across billing-related code.
const (
	BillingProviderStripe = "stripe"
)
