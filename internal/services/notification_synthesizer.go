package services

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/maxaizer/jobboard-alerts/internal/domain/events"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/maxaizer/jobboard-alerts/internal/logger"
	"github.com/maxaizer/jobboard-alerts/internal/metrics"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type jobLookup interface {
	JobByID(ctx context.Context, id int64) (*models.Job, error)
}

type notificationStore interface {
	AppendNotifications(ctx context.Context, notifications ...models.Notification) error
}

type NotificationSynthesizer struct {
	bus           EventBus.Bus
	jobs          jobLookup
	notifications notificationStore
	clock         clockwork.Clock
	newID         func() string
}

func NewNotificationSynthesizer(bus EventBus.Bus, jobs jobLookup, notifications notificationStore,
	clock clockwork.Clock) *NotificationSynthesizer {

	return &NotificationSynthesizer{
		bus:           bus,
		jobs:          jobs,
		notifications: notifications,
		clock:         clock,
		newID:         uuid.NewString,
	}
}

type detectedTransition struct {
	key          transitionKey
	notification models.Notification
	icon         string
}

// Process diffs current against the session baseline and persists one notification per
// status transition. The first call for a session only seeds the baseline. When the
// notifications can't be persisted nothing is published and the baseline stays as it was,
// so the same transitions are detected again on the next call.
func (s *NotificationSynthesizer) Process(ctx context.Context, session *WatchSession,
	current []models.Application) ([]models.Notification, error) {

	current = lo.Filter(current, func(app models.Application, _ int) bool {
		return app.UserID == session.UserID
	})

	if !session.IsSeeded() {
		session.advance(current)
		log.Debugf("seeded baseline for user %v with %v applications", session.UserID, len(current))
		return nil, nil
	}

	previous := lo.KeyBy(session.previous, func(app models.Application) int64 { return app.ID })

	var detected []detectedTransition
	pending := make(map[transitionKey]struct{})
	for _, app := range current {
		before, ok := previous[app.ID]
		if !ok || before.Status == app.Status {
			continue
		}
		if _, duplicate := pending[transitionKey{applicationID: app.ID, status: app.Status}]; duplicate {
			continue
		}

		transition, ok := s.detect(ctx, session, before, app)
		if ok {
			pending[transition.key] = struct{}{}
			detected = append(detected, transition)
		}
	}

	created := lo.Map(detected, func(t detectedTransition, _ int) models.Notification { return t.notification })

	if len(created) > 0 {
		if err := s.notifications.AppendNotifications(ctx, created...); err != nil {
			return nil, errors.Wrapf(err, "append %d notifications for user %v", len(created), session.UserID)
		}
	}

	for _, transition := range detected {
		session.markReported(transition.key)
		metrics.NotificationsCounter.WithLabelValues(string(transition.key.status)).Inc()
		s.bus.Publish(events.NotificationCreatedTopic, events.NotificationCreated{
			Notification: transition.notification,
			Icon:         transition.icon,
		})
	}

	session.advance(current)
	return created, nil
}

func (s *NotificationSynthesizer) detect(ctx context.Context, session *WatchSession,
	before models.Application, after models.Application) (detectedTransition, bool) {

	entry := log.WithFields(log.Fields{
		"user_id":        session.UserID,
		"application_id": after.ID,
		"from":           before.Status,
		"to":             after.Status,
	})

	key := transitionKey{applicationID: after.ID, status: after.Status}
	if session.wasReported(key) {
		entry.Debug("transition already reported in this session")
		metrics.SkippedTransitionsCounter.WithLabelValues("already_reported").Inc()
		return detectedTransition{}, false
	}

	template, ok := templateFor(after.Status)
	if !ok {
		entry.Warn("no notification template for application status, transition skipped")
		metrics.SkippedTransitionsCounter.WithLabelValues("unknown_status").Inc()
		return detectedTransition{}, false
	}

	return detectedTransition{
		key:  key,
		icon: template.icon,
		notification: models.Notification{
			ID:          s.newID(),
			UserID:      session.UserID,
			Type:        models.NotificationTypeApplicationStatus,
			Title:       template.title,
			Message:     template.render(s.lookupJob(ctx, after.JobID)),
			JobID:       after.JobID,
			Read:        false,
			CreatedDate: s.clock.Now().UTC(),
		},
	}, true
}

func (s *NotificationSynthesizer) lookupJob(ctx context.Context, jobID int64) *models.Job {
	job, err := s.jobs.JobByID(ctx, jobID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStore).
			Warnf("failed to look up job %v, using generic text: %v", jobID, err)
		return nil
	}
	return job
}
