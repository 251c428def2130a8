package models

import (
	"time"

	"gorm.io/gorm"
)

type Like struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index:ux_likes_user_post,unique" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PostID    uint           `gorm:"index:ux_likes_user_post,unique" json:"post_id"`
	Post      Post           `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ToggleLike creates the like if missing, otherwise removes it. Returns
// whether a like exists after the call.
func ToggleLike(db *gorm.DB, userID, postID uint) (bool, error) {
	var like Like
	result := db.Where("user_id = ? AND post_id = ?", userID, postID).First(&like)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			newLike := Like{
				UserID: userID,
				PostID: postID,
			}
			if err := db.Create(&newLike).Error; err != nil {
				return false, err
			}
			return true, db.Model(&Post{}).Where("id = ?", postID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
		}
		return false, result.Error
	}

	if err := db.Delete(&like).Error; err != nil {
		return true, err
	}
	return false, db.Model(&Post{}).Where("id = ? AND like_count > 0", postID).
		UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
}
