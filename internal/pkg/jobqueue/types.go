package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of background job.
type JobType string

const (
	JobTypeNotification   JobType = "notification"
	JobTypePublishPost    JobType = "publish_post"
	JobTypeActivationMail JobType = "activation_mail"
)

// JobStatus defines the status of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job stored in Redis.
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// NotificationJobPayload fans a social interaction out into a notification row.
type NotificationJobPayload struct {
	UserID      uint   `json:"user_id"`
	ActorID     uint   `json:"actor_id"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	ReferenceID uint   `json:"reference_id"`
}

func (p NotificationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      p.UserID,
		"actor_id":     p.ActorID,
		"type":         p.Type,
		"content":      p.Content,
		"reference_id": p.ReferenceID,
	}
}

func NotificationJobPayloadFromMap(data map[string]interface{}) (*NotificationJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var p NotificationJobPayload
	if err := json.Unmarshal(jsonData, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
