package models

import "time"

const NotificationTypeApplicationStatus = "application_status"

type Notification struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"userId"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	JobID       int64     `json:"jobId"`
	Read        bool      `json:"read"`
	CreatedDate time.Time `json:"createdDate"`
}
