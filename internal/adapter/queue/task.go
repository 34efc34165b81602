package queue

import (
	"time"
)

// Task statuses. A task moves pending -> running -> succeeded/failed, with
// running -> pending again when a retryable failure schedules another attempt.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Task is one queued unit of work, persisted so accepted webhooks survive a
// restart. Payload carries the raw event body; Kind selects the handler side.
type Task struct {
	ID          string `gorm:"primaryKey"`
	Kind        string `gorm:"index"`
	Payload     []byte
	Status      string `gorm:"index"`
	Attempts    int
	LastError   string
	NextRetryAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
