package models

import (
	"time"

	"gorm.io/gorm"
)

// Shop is an entry in the bonsai-shop directory. Coordinates feed the map
// bounding-box search; Prefecture feeds the list filter.
type Shop struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Description string         `gorm:"type:text" json:"description"`
	Prefecture  string         `gorm:"type:varchar(50);index" json:"prefecture"`
	Address     string         `gorm:"type:varchar(255)" json:"address"`
	Latitude    float64        `gorm:"type:decimal(10,7);index:idx_shops_lat_lng,priority:1" json:"latitude"`
	Longitude   float64        `gorm:"type:decimal(10,7);index:idx_shops_lat_lng,priority:2" json:"longitude"`
	WebsiteURL  string         `gorm:"type:varchar(255)" json:"website_url"`
	Phone       string         `gorm:"type:varchar(30)" json:"phone"`
	IsApproved  bool           `gorm:"default:false;index" json:"is_approved"`
	CreatedByID uint           `gorm:"index" json:"created_by_id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
