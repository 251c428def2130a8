package jobqueue

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bonlog/bonlog/app/models"
)

// NotificationProcessor drains notification jobs into notification rows.
type NotificationProcessor struct {
	db *gorm.DB
}

func NewNotificationProcessor(db *gorm.DB) *NotificationProcessor {
	return &NotificationProcessor{db: db}
}

// Handle creates the notification row for a social interaction. Self-
// notifications are dropped silently.
func (p *NotificationProcessor) Handle(ctx context.Context, job *Job) error {
	_ = ctx
	payload, err := NotificationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("decode notification payload: %w", err)
	}
	if payload.UserID == 0 || payload.UserID == payload.ActorID {
		return nil
	}

	return models.CreateNotification(p.db, payload.UserID, payload.Type,
		payload.ActorID, payload.Content, payload.ReferenceID)
}

// EnqueueNotification is the producer-side helper used by controllers.
func EnqueueNotification(q *Queue, payload NotificationJobPayload) {
	if q == nil {
		return
	}
	if _, err := q.Enqueue(JobTypeNotification, payload.ToMap()); err != nil {
		// Notifications are best-effort; a lost one is not worth failing
		// the originating request.
		return
	}
}
