package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER      = "user"
	ROLE_MODERATOR = "moderator"
	ROLE_ADMIN     = "admin"

	STATUS_ACTIVE    = "active"
	STATUS_INACTIVE  = "inactive"
	STATUS_SUSPENDED = "suspended"
)

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email            string     `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password         string     `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role             string     `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user moderator admin"`
	Status           string     `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive suspended"`
	Bio              string     `gorm:"type:text;default:null" json:"bio" validate:"max=1000"`
	AvatarURL        string     `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	Prefecture       string     `gorm:"type:varchar(50);default:null" json:"prefecture"`
	ActivationToken  string     `gorm:"type:varchar(100);index" json:"-"`
	ActivationSentAt *time.Time `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt      *time.Time `gorm:"type:timestamp;default:null" json:"last_login_at"`

	// Premium entitlement. IsPremium is the cached flag consulted by every
	// content gate; PremiumExpiresAt null plus IsPremium true means an
	// admin grant without enforced expiry. StripeSubscriptionID null while
	// IsPremium is true likewise marks an admin grant.
	IsPremium            bool       `gorm:"default:false;index" json:"is_premium"`
	PremiumExpiresAt     *time.Time `gorm:"type:timestamp;default:null" json:"premium_expires_at,omitempty"`
	StripeCustomerID     *string    `gorm:"type:varchar(191);default:null;uniqueIndex" json:"-"`
	StripeSubscriptionID *string    `gorm:"type:varchar(191);default:null;index" json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     username,
		Email:    email,
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_INACTIVE,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// GenerateActivationToken creates a random token and sets ActivationSentAt
func (u *User) GenerateActivationToken() error {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	u.ActivationToken = hex.EncodeToString(b)
	now := time.Now()
	u.ActivationSentAt = &now
	return nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// HasStripeCustomer reports whether a billing customer was already created
// for this user. Checkout reuses the stored id instead of creating a second
// provider customer.
func (u *User) HasStripeCustomer() bool {
	return u.StripeCustomerID != nil && *u.StripeCustomerID != ""
}

// HasStripeSubscription reports whether the user is linked to a provider
// subscription. Admin-granted premium has no subscription.
func (u *User) HasStripeSubscription() bool {
	return u.StripeSubscriptionID != nil && *u.StripeSubscriptionID != ""
}
