package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	EventKindExhibition = "exhibition"
	EventKindWorkshop   = "workshop"
	EventKindMarket     = "market"
)

// Event is an entry in the events calendar (exhibitions, workshops, markets).
type Event struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Description string         `gorm:"type:text" json:"description"`
	Kind        string         `gorm:"type:varchar(20);default:'exhibition'" json:"kind" validate:"oneof=exhibition workshop market"`
	Prefecture  string         `gorm:"type:varchar(50);index" json:"prefecture"`
	Venue       string         `gorm:"type:varchar(255)" json:"venue"`
	StartsAt    time.Time      `gorm:"type:timestamp;not null;index" json:"starts_at"`
	EndsAt      *time.Time     `gorm:"type:timestamp;default:null" json:"ends_at,omitempty"`
	CreatedByID uint           `gorm:"index" json:"created_by_id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
