package repository

import (
	"time"

	"github.com/bonlog/bonlog/app/models"
)

// UserRepository defines data access for users.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByName(name string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	Update(user *models.User) error
}

// PostRepository defines data access for timeline posts.
type PostRepository interface {
	Create(post *models.Post) error
	GetByUUID(uuid string) (*models.Post, error)
	Timeline(viewerID uint, cursor time.Time, limit int) ([]models.Post, error)
	ByUser(userID uint, cursor time.Time, limit int) ([]models.Post, error)
	Search(query string, cursor time.Time, limit int) ([]models.Post, error)
	PublishDue(now time.Time) (int64, error)
	Delete(post *models.Post) error
}

// ShopRepository defines data access for the bonsai-shop directory.
type ShopRepository interface {
	Create(shop *models.Shop) error
	GetByID(id uint) (*models.Shop, error)
	ListByPrefecture(prefecture string, limit int) ([]models.Shop, error)
	ListInBounds(minLat, maxLat, minLng, maxLng float64, limit int) ([]models.Shop, error)
}

// EventRepository defines data access for the events calendar.
type EventRepository interface {
	Create(event *models.Event) error
	ListByMonth(year int, month time.Month) ([]models.Event, error)
	ListUpcoming(limit int) ([]models.Event, error)
}
