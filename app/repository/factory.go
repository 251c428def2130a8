package repository

import (
	"gorm.io/gorm"

	"github.com/bonlog/bonlog/internal/pkg/database"
)

// Repositories bundles all repository instances.
type Repositories struct {
	User  UserRepository
	Post  PostRepository
	Shop  ShopRepository
	Event EventRepository
}

// NewRepositories creates all repositories on an injected DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Post:  NewPostRepository(db),
		Shop:  NewShopRepository(db),
		Event: NewEventRepository(db),
	}
}

// GetGlobalFactory returns repositories bound to the global DB connection.
func GetGlobalFactory() *Repositories {
	return NewRepositories(database.GetDB())
}
