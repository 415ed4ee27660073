package models

import "time"

// Subscriber links a Telegram chat to a job-board user whose applications are watched.
type Subscriber struct {
	ChatID    int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"index"`
	CreatedAt time.Time
}
