package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/bonlog/bonlog/app/models"
)

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository instance.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

func (r *postRepository) GetByUUID(uuid string) (*models.Post, error) {
	var post models.Post
	err := r.db.Preload("User").Preload("Media").Where("uuid = ?", uuid).First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Timeline returns published posts older than the cursor, newest first.
// Authors the viewer blocked or muted are excluded, as are authors who
// blocked the viewer. Pagination is cursor-based on published_at; offset
// pagination degrades badly on a feed table.
func (r *postRepository) Timeline(viewerID uint, cursor time.Time, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	q := r.db.Preload("User").Preload("Media").
		Where("published_at IS NOT NULL AND published_at < ?", cursor).
		Where("visibility = ?", models.PostVisibilityPublic)

	if viewerID != 0 {
		q = q.Where(`user_id NOT IN (
			SELECT target_id FROM relationships WHERE actor_id = ?
		)`, viewerID).
			Where(`user_id NOT IN (
			SELECT actor_id FROM relationships WHERE target_id = ? AND kind = ?
		)`, viewerID, models.RelationshipBlock)
	}

	var posts []models.Post
	err := q.Order("published_at DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (r *postRepository) ByUser(userID uint, cursor time.Time, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	var posts []models.Post
	err := r.db.Preload("Media").
		Where("user_id = ? AND published_at IS NOT NULL AND published_at < ?", userID, cursor).
		Order("published_at DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

// Search delegates full-text matching to MySQL. The posts.content column
// carries a FULLTEXT index with the ngram parser for Japanese text (see
// migrations).
func (r *postRepository) Search(query string, cursor time.Time, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	var posts []models.Post
	err := r.db.Preload("User").Preload("Media").
		Where("published_at IS NOT NULL AND published_at < ?", cursor).
		Where("MATCH(content) AGAINST(? IN NATURAL LANGUAGE MODE)", query).
		Order("published_at DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

// PublishDue flips scheduled posts whose time has come to published. Run by
// the queue's publish job.
func (r *postRepository) PublishDue(now time.Time) (int64, error) {
	tx := r.db.Model(&models.Post{}).
		Where("scheduled_at IS NOT NULL AND published_at IS NULL AND scheduled_at <= ?", now).
		Update("published_at", now)
	return tx.RowsAffected, tx.Error
}

func (r *postRepository) Delete(post *models.Post) error {
	return r.db.Delete(post).Error
}
