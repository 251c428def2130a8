package models

import (
	"time"

	"gorm.io/gorm"
)

type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"index:ux_follows_pair,unique" json:"follower_id"`
	FolloweeID uint      `gorm:"index:ux_follows_pair,unique" json:"followee_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ToggleFollow creates or removes the follow edge and reports whether the
// follower follows the followee after the call.
func ToggleFollow(db *gorm.DB, followerID, followeeID uint) (bool, error) {
	var f Follow
	err := db.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).First(&f).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return true, db.Create(&Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
		}
		return false, err
	}
	return false, db.Delete(&f).Error
}
