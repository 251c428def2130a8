package repository

import (
	"gorm.io/gorm"

	"github.com/bonlog/bonlog/app/models"
)

type shopRepository struct {
	db *gorm.DB
}

// NewShopRepository creates a new shop repository instance.
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepository{db: db}
}

func (r *shopRepository) Create(shop *models.Shop) error {
	return r.db.Create(shop).Error
}

func (r *shopRepository) GetByID(id uint) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.Where("is_approved = ?", true).First(&shop, id).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepository) ListByPrefecture(prefecture string, limit int) ([]models.Shop, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var shops []models.Shop
	q := r.db.Where("is_approved = ?", true)
	if prefecture != "" {
		q = q.Where("prefecture = ?", prefecture)
	}
	err := q.Order("name ASC").Limit(limit).Find(&shops).Error
	return shops, err
}

// ListInBounds serves the map view: all approved shops inside the visible
// bounding box. Fine-grained distance sorting happens client-side.
func (r *shopRepository) ListInBounds(minLat, maxLat, minLng, maxLng float64, limit int) ([]models.Shop, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var shops []models.Shop
	err := r.db.Where("is_approved = ?", true).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng).
		Limit(limit).Find(&shops).Error
	return shops, err
}
