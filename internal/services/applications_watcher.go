package services

import (
	"context"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/maxaizer/jobboard-alerts/internal/logger"
	"github.com/maxaizer/jobboard-alerts/internal/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"sync"
)

type applicationsSource interface {
	GetJobs(ctx context.Context) ([]models.Job, error)
	GetApplications(ctx context.Context, userID int64) ([]models.Application, error)
}

type subscribersSource interface {
	GetAll(ctx context.Context) ([]models.Subscriber, error)
}

type applicationsSnapshot interface {
	ReplaceJobs(ctx context.Context, jobs []models.Job) error
	ReplaceApplications(ctx context.Context, userID int64, applications []models.Application) error
	Applications(ctx context.Context, userID int64) ([]models.Application, error)
}

type notificationProcessor interface {
	Process(ctx context.Context, session *WatchSession, current []models.Application) ([]models.Notification, error)
}

// ApplicationsWatcher periodically pulls jobs and applications of every subscribed user
// and turns status changes into notifications. Cycles never overlap.
type ApplicationsWatcher struct {
	api         applicationsSource
	subscribers subscribersSource
	snapshot    applicationsSnapshot
	synthesizer notificationProcessor
	cron        *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[int64]*WatchSession
}

func NewApplicationsWatcher(api applicationsSource, subscribers subscribersSource, snapshot applicationsSnapshot,
	synthesizer notificationProcessor, schedule string) (*ApplicationsWatcher, error) {

	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := cron.PrintfLogger(log.StandardLogger())

	w := &ApplicationsWatcher{
		api:         api,
		subscribers: subscribers,
		snapshot:    snapshot,
		synthesizer: synthesizer,
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[int64]*WatchSession),
	}

	_, err := w.cron.AddFunc(schedule, func() { w.RunOnce(w.ctx) })
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "invalid watcher schedule %q", schedule)
	}

	return w, nil
}

func (w *ApplicationsWatcher) Start() {
	w.cron.Start()
	log.Infof("applications watcher started")
}

// Stop cancels the running cycle, if any, and waits for it to return.
func (w *ApplicationsWatcher) Stop() {
	w.cancel()
	<-w.cron.Stop().Done()
}

// RunOnce performs one sync cycle. A failure for one user is logged and doesn't affect the others.
func (w *ApplicationsWatcher) RunOnce(ctx context.Context) {

	timer := prometheus.NewTimer(metrics.SyncDuration)
	defer timer.ObserveDuration()

	w.mu.Lock()
	defer w.mu.Unlock()

	subscribers, err := w.subscribers.GetAll(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to get subscribers: %v", err)
		return
	}

	w.refreshJobs(ctx)

	userIDs := lo.Uniq(lo.Map(subscribers, func(s models.Subscriber, _ int) int64 { return s.UserID }))
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		w.syncUser(ctx, userID)
	}

	w.forgetUnsubscribed(userIDs)
}

func (w *ApplicationsWatcher) refreshJobs(ctx context.Context) {
	jobs, err := w.api.GetJobs(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeJobBoardApi).
			Errorf("failed to get jobs, keeping cached ones: %v", err)
		return
	}

	if err = w.snapshot.ReplaceJobs(ctx, jobs); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStore).Errorf("failed to store jobs: %v", err)
	}
}

func (w *ApplicationsWatcher) syncUser(ctx context.Context, userID int64) {

	applications, err := w.api.GetApplications(ctx, userID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeJobBoardApi).
			Errorf("failed to get applications of user %v: %v", userID, err)
		return
	}

	if err = w.snapshot.ReplaceApplications(ctx, userID, applications); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStore).
			Errorf("failed to store applications of user %v: %v", userID, err)
		return
	}

	current, err := w.snapshot.Applications(ctx, userID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStore).
			Errorf("failed to read applications of user %v: %v", userID, err)
		return
	}

	notifications, err := w.synthesizer.Process(ctx, w.session(userID), current)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStore).
			Errorf("failed to create notifications for user %v: %v", userID, err)
		return
	}

	if len(notifications) > 0 {
		log.Infof("created %d notifications for user %v", len(notifications), userID)
	}
}

func (w *ApplicationsWatcher) session(userID int64) *WatchSession {
	session, ok := w.sessions[userID]
	if !ok {
		session = NewWatchSession(userID)
		w.sessions[userID] = session
	}
	return session
}

func (w *ApplicationsWatcher) forgetUnsubscribed(userIDs []int64) {
	for userID := range w.sessions {
		if !lo.Contains(userIDs, userID) {
			delete(w.sessions, userID)
		}
	}
}
