package models

import "time"

const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// PostMedia references an object in the S3-compatible store. Uploads go
// directly from the browser via presigned URLs, so only the object key and
// declared metadata live here.
type PostMedia struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index" json:"post_id"`
	Kind      string    `gorm:"type:varchar(10);not null" json:"kind" validate:"oneof=image video"`
	ObjectKey string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"object_key"`
	MimeType  string    `gorm:"type:varchar(100)" json:"mime_type"`
	FileSize  int64     `gorm:"type:bigint" json:"file_size"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
