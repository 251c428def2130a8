package models

import (
	"time"

	"gorm.io/gorm"
)

// MessageThread is a direct-message conversation between exactly two users.
// UserAID is always the smaller id so the pair maps to one row.
type MessageThread struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UUID          string     `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"uuid"`
	UserAID       uint       `gorm:"index:ux_message_threads_pair,unique,priority:1" json:"user_a_id"`
	UserBID       uint       `gorm:"index:ux_message_threads_pair,unique,priority:2" json:"user_b_id"`
	LastMessageAt *time.Time `gorm:"type:timestamp;default:null;index" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type Message struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ThreadID  uint           `gorm:"index" json:"thread_id"`
	SenderID  uint           `gorm:"index" json:"sender_id"`
	Content   string         `gorm:"type:text;not null" json:"content" validate:"required,min=1,max=2000"`
	ReadAt    *time.Time     `gorm:"type:timestamp;default:null" json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// NormalizeThreadPair orders two user ids for the unique thread index.
func NormalizeThreadPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// CountUnreadMessages returns the number of unread messages addressed to the user.
func CountUnreadMessages(db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.Model(&Message{}).
		Joins("JOIN message_threads ON message_threads.id = messages.thread_id").
		Where("(message_threads.user_a_id = ? OR message_threads.user_b_id = ?)", userID, userID).
		Where("messages.sender_id <> ? AND messages.read_at IS NULL", userID).
		Count(&n).Error
	return n, err
}
