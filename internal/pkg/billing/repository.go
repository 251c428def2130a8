package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bonlog/bonlog/app/models"
)

// Repository provides the DB operations used by the billing service.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByStripeCustomerID(customerID string) (*models.User, error)
	SaveStripeCustomerID(userID uint, customerID string) error
	SaveStripeSubscriptionID(userID uint, subscriptionID string) error
	ListUsersWithSubscription() ([]models.User, error)
	UpdateEntitlement(userID uint, isPremium bool, expiresAt *time.Time) error
	ClearSubscriptionState(userID uint) error
	SweepExpired(now time.Time) (int64, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByStripeCustomerID(customerID string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) SaveStripeCustomerID(userID uint, customerID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("stripe_customer_id", customerID).Error
}

func (r *gormRepository) SaveStripeSubscriptionID(userID uint, subscriptionID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("stripe_subscription_id", subscriptionID).Error
}

func (r *gormRepository) ListUsersWithSubscription() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("stripe_subscription_id IS NOT NULL").Find(&users).Error
	return users, err
}

// UpdateEntitlement writes the flag and expiry in one statement so readers
// never observe a half-updated pair.
func (r *gormRepository) UpdateEntitlement(userID uint, isPremium bool, expiresAt *time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_premium":         isPremium,
			"premium_expires_at": expiresAt,
		}).Error
}

// ClearSubscriptionState wipes all three entitlement fields. Used when the
// provider reports the subscription as gone.
func (r *gormRepository) ClearSubscriptionState(userID uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_premium":             false,
			"premium_expires_at":     nil,
			"stripe_subscription_id": nil,
		}).Error
}

// SweepExpired demotes users whose premium flag outlived its expiry. Only the
// flag is touched; the expiry stays as a historical record and subscription
// cleanup belongs to reconciliation.
func (r *gormRepository) SweepExpired(now time.Time) (int64, error) {
	tx := r.db.Model(&models.User{}).
		Where("is_premium = ? AND premium_expires_at IS NOT NULL AND premium_expires_at < ?", true, now).
		Update("is_premium", false)
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
