package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PostVisibilityPublic    = "public"
	PostVisibilityFollowers = "followers"
)

type Post struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UUID        string      `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"uuid"`
	UserID      uint        `gorm:"index" json:"user_id"`
	User        User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content     string      `gorm:"type:text;not null" json:"content" validate:"required_without=RepostOfID"`
	Visibility  string      `gorm:"type:varchar(20);default:'public'" json:"visibility" validate:"oneof=public followers"`
	Media       []PostMedia `gorm:"foreignKey:PostID" json:"media,omitempty"`
	RepostOfID  *uint       `gorm:"index;default:null" json:"repost_of_id,omitempty"`
	ReplyToID   *uint       `gorm:"index;default:null" json:"reply_to_id,omitempty"`
	ScheduledAt *time.Time  `gorm:"type:timestamp;default:null;index" json:"scheduled_at,omitempty"`
	PublishedAt *time.Time  `gorm:"type:timestamp;default:null;index" json:"published_at,omitempty"`
	LikeCount   int         `gorm:"default:0" json:"like_count"`
	RepostCount int         `gorm:"default:0" json:"repost_count"`
	ViewCount   int         `gorm:"default:0" json:"view_count"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// IsScheduled reports whether the post is still waiting for its publish time.
func (p *Post) IsScheduled() bool {
	return p.ScheduledAt != nil && p.PublishedAt == nil
}

// ToggleRepost creates or removes the viewer's repost of a post. Returns
// whether a repost exists after the call.
func ToggleRepost(db *gorm.DB, userID, postID uint) (bool, error) {
	var repost Post
	result := db.Where("user_id = ? AND repost_of_id = ?", userID, postID).First(&repost)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			now := time.Now()
			newRepost := Post{
				UUID:        uuid.New().String(),
				UserID:      userID,
				RepostOfID:  &postID,
				Visibility:  PostVisibilityPublic,
				PublishedAt: &now,
			}
			if err := db.Create(&newRepost).Error; err != nil {
				return false, err
			}
			return true, db.Model(&Post{}).Where("id = ?", postID).
				UpdateColumn("repost_count", gorm.Expr("repost_count + 1")).Error
		}
		return false, result.Error
	}

	if err := db.Delete(&repost).Error; err != nil {
		return true, err
	}
	return false, db.Model(&Post{}).Where("id = ? AND repost_count > 0", postID).
		UpdateColumn("repost_count", gorm.Expr("repost_count - 1")).Error
}
