package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/bonlog/bonlog/app/models"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository instance.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(event *models.Event) error {
	return r.db.Create(event).Error
}

func (r *eventRepository) ListByMonth(year int, month time.Month) ([]models.Event, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)

	var events []models.Event
	err := r.db.Where("starts_at >= ? AND starts_at < ?", start, end).
		Order("starts_at ASC").Find(&events).Error
	return events, err
}

func (r *eventRepository) ListUpcoming(limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var events []models.Event
	err := r.db.Where("starts_at >= ?", time.Now()).
		Order("starts_at ASC").Limit(limit).Find(&events).Error
	return events, err
}
