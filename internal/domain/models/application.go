package models

import "time"

type ApplicationStatus string

const (
	StatusApplied         ApplicationStatus = "postulado"
	StatusCvViewed        ApplicationStatus = "cv-visto"
	StatusInProcess       ApplicationStatus = "en-proceso"
	StatusFinalist        ApplicationStatus = "finalista"
	StatusProcessFinished ApplicationStatus = "proceso-finalizado"
)

type StatusChange struct {
	Status ApplicationStatus `json:"status"`
	Date   time.Time         `json:"date"`
}

// Application is the locally cached copy of a candidate's application to a job.
// The backend owns it, so the cached value may be stale.
type Application struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"userId"`
	JobID         int64             `json:"jobId"`
	Status        ApplicationStatus `json:"status"`
	AppliedDate   time.Time         `json:"appliedDate"`
	StatusHistory []StatusChange    `json:"statusHistory"`
}
