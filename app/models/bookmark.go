package models

import "time"

type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:ux_bookmarks_user_post,unique" json:"user_id"`
	PostID    uint      `gorm:"index:ux_bookmarks_user_post,unique" json:"post_id"`
	Post      Post      `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
