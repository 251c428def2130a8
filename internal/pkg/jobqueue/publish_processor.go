package jobqueue

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/bonlog/bonlog/app/models"
)

// PublishPostProcessor flips scheduled posts whose time has come to
// published. Enqueued periodically by the server's scheduler tick.
type PublishPostProcessor struct {
	db *gorm.DB
}

func NewPublishPostProcessor(db *gorm.DB) *PublishPostProcessor {
	return &PublishPostProcessor{db: db}
}

func (p *PublishPostProcessor) Handle(ctx context.Context, job *Job) error {
	now := time.Now()
	tx := p.db.WithContext(ctx).Model(&models.Post{}).
		Where("scheduled_at IS NOT NULL AND published_at IS NULL AND scheduled_at <= ?", now).
		Update("published_at", now)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected > 0 {
		log.Printf("[JobQueue] published %d scheduled posts", tx.RowsAffected)
	}
	return nil
}
