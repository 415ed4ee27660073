package services

import (
	"context"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/maxaizer/jobboard-alerts/internal/logger"
	"github.com/maxaizer/jobboard-alerts/internal/metrics"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"slices"
	"sync"
)

var (
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrInvalidTransition  = errors.New("invalid suggestion state transition")
)

type suggestionsSource interface {
	GetSuggestedJobs(ctx context.Context, userID int64) ([]models.SuggestedJob, error)
	UpdateSuggestedJobStatus(ctx context.Context, userID int64, suggestionID int64, estado models.SuggestionState) error
	CheckApplication(ctx context.Context, userID int64, jobID int64) (bool, error)
}

// SuggestionsReconciler keeps the actionable suggestion list of every user: recruiter
// suggestions minus the ones the user has already applied to.
type SuggestionsReconciler struct {
	api   suggestionsSource
	mu    sync.Mutex
	lists map[int64][]models.SuggestedJob
	// one lock per suggestion, held from validation until the confirmed state is applied
	updates  map[suggestionKey]*sync.Mutex
	detached sync.WaitGroup
}

type suggestionKey struct {
	userID       int64
	suggestionID int64
}

func NewSuggestionsReconciler(api suggestionsSource) *SuggestionsReconciler {
	return &SuggestionsReconciler{
		api:     api,
		lists:   make(map[int64][]models.SuggestedJob),
		updates: make(map[suggestionKey]*sync.Mutex),
	}
}

// LoadSuggestions fetches the user's suggestions and checks each of them concurrently.
// A failed check keeps the suggestion visible. The result keeps the remote order.
func (r *SuggestionsReconciler) LoadSuggestions(ctx context.Context, userID int64) ([]models.SuggestedJob, error) {

	suggestions, err := r.api.GetSuggestedJobs(ctx, userID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeJobBoardApi).
			Errorf("failed to get suggested jobs for user %v: %v", userID, err)
		return nil, errors.Wrap(err, "get suggested jobs")
	}

	suggestions = lo.Reject(suggestions, func(s models.SuggestedJob, _ int) bool {
		return s.Estado == models.SuggestionDismissed
	})

	var wg sync.WaitGroup
	for i := range suggestions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			suggestions[i].HasApplied = r.hasApplied(ctx, userID, suggestions[i])
		}(i)
	}
	wg.Wait()

	active := lo.Filter(suggestions, func(s models.SuggestedJob, _ int) bool { return !s.HasApplied })

	r.mu.Lock()
	r.lists[userID] = active
	r.mu.Unlock()

	log.Infof("loaded %v actionable suggestions of %v for user %v", len(active), len(suggestions), userID)
	return slices.Clone(active), nil
}

func (r *SuggestionsReconciler) hasApplied(ctx context.Context, userID int64, suggestion models.SuggestedJob) bool {
	applied, err := r.api.CheckApplication(ctx, userID, suggestion.Job.ID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeJobBoardApi).
			Warnf("failed to check application for job %v, keeping suggestion %v: %v", suggestion.Job.ID, suggestion.ID, err)
		metrics.ApplicationChecksCounter.WithLabelValues("failed").Inc()
		return false
	}

	if applied {
		metrics.ApplicationChecksCounter.WithLabelValues("applied").Inc()
	} else {
		metrics.ApplicationChecksCounter.WithLabelValues("not_applied").Inc()
	}
	return applied
}

// Suggestions returns the last loaded actionable list of the user.
func (r *SuggestionsReconciler) Suggestions(userID int64) []models.SuggestedJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lists[userID])
}

// UpdateStatus moves a suggestion to estado once the API confirms it. A dismissed
// suggestion leaves the list, any other state is updated in place. Updates of the same
// suggestion run one at a time, each validated against the state left by the previous one.
func (r *SuggestionsReconciler) UpdateStatus(ctx context.Context, userID int64, suggestionID int64,
	estado models.SuggestionState) error {

	unlock := r.lockSuggestion(userID, suggestionID)
	defer unlock()

	suggestion, err := r.find(userID, suggestionID)
	if err != nil {
		return err
	}

	if !suggestion.CanTransitionTo(estado) {
		return errors.Wrapf(ErrInvalidTransition, "%v -> %v", suggestion.Estado, estado)
	}

	if err = r.api.UpdateSuggestedJobStatus(ctx, userID, suggestionID, estado); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeJobBoardApi).
			Errorf("failed to update suggestion %v to %v: %v", suggestionID, estado, err)
		return errors.Wrap(err, "update suggested job status")
	}

	metrics.SuggestionUpdatesCounter.WithLabelValues(string(estado)).Inc()
	r.apply(userID, suggestionID, estado)
	return nil
}

// ViewAndApply returns the suggested job right away. A pending suggestion is marked as
// viewed in the background; a failure there is only logged.
func (r *SuggestionsReconciler) ViewAndApply(userID int64, suggestionID int64) (models.Job, error) {

	suggestion, err := r.find(userID, suggestionID)
	if err != nil {
		return models.Job{}, err
	}

	if suggestion.Estado == models.SuggestionPending {
		r.detached.Add(1)
		go func() {
			defer r.detached.Done()
			err := r.UpdateStatus(context.Background(), userID, suggestionID, models.SuggestionViewed)
			switch {
			case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSuggestionNotFound):
				log.Debugf("suggestion %v changed before it was marked as viewed: %v", suggestionID, err)
			case err != nil:
				log.Warnf("failed to mark suggestion %v as viewed: %v", suggestionID, err)
			}
		}()
	}

	return suggestion.Job, nil
}

// Wait blocks until every background mark-as-viewed task has finished.
func (r *SuggestionsReconciler) Wait() {
	r.detached.Wait()
}

func (r *SuggestionsReconciler) find(userID int64, suggestionID int64) (models.SuggestedJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	suggestion, ok := lo.Find(r.lists[userID], func(s models.SuggestedJob) bool { return s.ID == suggestionID })
	if !ok {
		return models.SuggestedJob{}, errors.Wrapf(ErrSuggestionNotFound, "suggestion %v", suggestionID)
	}
	return suggestion, nil
}

func (r *SuggestionsReconciler) lockSuggestion(userID int64, suggestionID int64) func() {
	key := suggestionKey{userID: userID, suggestionID: suggestionID}

	r.mu.Lock()
	lock, ok := r.updates[key]
	if !ok {
		lock = &sync.Mutex{}
		r.updates[key] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// apply writes a confirmed state. The list may have been reloaded meanwhile, so the
// transition is checked again against the current entry.
func (r *SuggestionsReconciler) apply(userID int64, suggestionID int64, estado models.SuggestionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.lists[userID]
	index := slices.IndexFunc(list, func(s models.SuggestedJob) bool { return s.ID == suggestionID })
	if index < 0 {
		return
	}

	if !list[index].CanTransitionTo(estado) {
		log.Warnf("suggestion %v is %v now, not applying %v", suggestionID, list[index].Estado, estado)
		return
	}

	if estado == models.SuggestionDismissed {
		r.lists[userID] = slices.Delete(list, index, index+1)
		return
	}
	list[index].Estado = estado
}
