package services

import (
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"slices"
)

type transitionKey struct {
	applicationID int64
	status        models.ApplicationStatus
}

// WatchSession carries the comparison baseline of one user between synthesizer runs,
// together with every (application, status) pair already reported in this session.
type WatchSession struct {
	UserID   int64
	previous []models.Application
	reported map[transitionKey]struct{}
}

func NewWatchSession(userID int64) *WatchSession {
	return &WatchSession{UserID: userID, reported: make(map[transitionKey]struct{})}
}

func (s *WatchSession) IsSeeded() bool {
	return len(s.previous) > 0
}

func (s *WatchSession) wasReported(key transitionKey) bool {
	_, ok := s.reported[key]
	return ok
}

func (s *WatchSession) markReported(key transitionKey) {
	s.reported[key] = struct{}{}
}

func (s *WatchSession) advance(current []models.Application) {
	s.previous = slices.Clone(current)
}
