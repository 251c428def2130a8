package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
	NotificationTypeReply   = "reply"
	NotificationTypeMention = "mention"
	NotificationTypeMessage = "message"
	NotificationTypeFollow  = "follow"
	NotificationTypeRepost  = "repost"
	NotificationTypeSystem  = "system"
)

type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	User        User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type        string         `gorm:"type:varchar(50)" json:"type" validate:"oneof=like comment reply mention message follow repost system"`
	ActorID     uint           `json:"actor_id"`
	Content     string         `gorm:"type:text" json:"content"`
	IsRead      bool           `gorm:"default:false" json:"is_read"`
	ReferenceID uint           `json:"reference_id"` // id of the post/comment/user the notification points at
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// MarkAsRead marks a single notification as read.
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}

// CreateNotification persists a new notification row.
func CreateNotification(db *gorm.DB, userID uint, notificationType string, actorID uint, content string, referenceID uint) error {
	notification := Notification{
		UserID:      userID,
		Type:        notificationType,
		ActorID:     actorID,
		Content:     content,
		ReferenceID: referenceID,
		IsRead:      false,
	}

	return db.Create(&notification).Error
}

// CountUnreadNotifications returns the badge count for the header.
func CountUnreadNotifications(db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.Model(&Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, err
}
