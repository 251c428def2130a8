package entitlements

import (
	"errors"

	"gorm.io/gorm"

	"github.com/bonlog/bonlog/app/models"
)

// MembershipLimits are the usage limits attached to a membership tier. Two
// fixed tiers exist; there are no per-user overrides.
type MembershipLimits struct {
	MaxPostLength    int
	MaxImages        int
	MaxVideos        int
	CanSchedulePost  bool
	CanViewAnalytics bool
}

var (
	freeLimits = MembershipLimits{
		MaxPostLength: 300,
		MaxImages:     4,
		MaxVideos:     1,
	}
	premiumLimits = MembershipLimits{
		MaxPostLength:    5000,
		MaxImages:        10,
		MaxVideos:        4,
		CanSchedulePost:  true,
		CanViewAnalytics: true,
	}
)

// LimitsFor maps the cached premium flag to its limit tuple.
func LimitsFor(isPremium bool) MembershipLimits {
	if isPremium {
		return premiumLimits
	}
	return freeLimits
}

// Reader answers entitlement questions from the cached user flag. It never
// calls the payment provider; staleness is bounded by the reconciliation
// job interval.
type Reader struct {
	db *gorm.DB
}

// NewReader creates an entitlement reader on an injected DB handle.
func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

// IsPremiumUser reports whether the user currently holds premium. A missing
// user reads as free tier, not as an error.
func (r *Reader) IsPremiumUser(userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}

	var isPremium bool
	err := r.db.Model(&models.User{}).
		Select("is_premium").
		Where("id = ?", userID).
		Take(&isPremium).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return isPremium, nil
}

// GetMembershipLimits returns the limit tuple for the user's current tier.
// Unknown users get free limits.
func (r *Reader) GetMembershipLimits(userID uint) (MembershipLimits, error) {
	isPremium, err := r.IsPremiumUser(userID)
	if err != nil {
		return freeLimits, err
	}
	return LimitsFor(isPremium), nil
}
