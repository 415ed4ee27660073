package services

import (
	"context"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/maxaizer/jobboard-alerts/internal/repositories"
	"github.com/samber/lo"
)

// SnapshotProvider reads and refreshes the cached applications, jobs and notifications.
// The store is shared by all users, so every read is filtered by user here.
type SnapshotProvider struct {
	store *repositories.Store
	jobs  *repositories.CachedJobs
}

func NewSnapshotProvider(store *repositories.Store, jobs *repositories.CachedJobs) *SnapshotProvider {
	return &SnapshotProvider{store: store, jobs: jobs}
}

func (p *SnapshotProvider) Applications(ctx context.Context, userID int64) ([]models.Application, error) {
	all, err := repositories.List[models.Application](ctx, p.store, repositories.KeyApplications)
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(app models.Application, _ int) bool { return app.UserID == userID }), nil
}

func (p *SnapshotProvider) JobByID(ctx context.Context, id int64) (*models.Job, error) {
	return p.jobs.GetByID(ctx, id)
}

// ReplaceApplications swaps the cached applications of one user, keeping everyone else's.
func (p *SnapshotProvider) ReplaceApplications(ctx context.Context, userID int64, applications []models.Application) error {
	own := lo.Filter(applications, func(app models.Application, _ int) bool { return app.UserID == userID })

	return repositories.Update(ctx, p.store, repositories.KeyApplications, func(all []models.Application) []models.Application {
		others := lo.Reject(all, func(app models.Application, _ int) bool { return app.UserID == userID })
		return append(others, own...)
	})
}

func (p *SnapshotProvider) ReplaceJobs(ctx context.Context, jobs []models.Job) error {
	return p.jobs.Replace(ctx, jobs)
}

func (p *SnapshotProvider) Notifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	all, err := repositories.List[models.Notification](ctx, p.store, repositories.KeyNotifications)
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(n models.Notification, _ int) bool { return n.UserID == userID }), nil
}

func (p *SnapshotProvider) AppendNotifications(ctx context.Context, notifications ...models.Notification) error {
	return repositories.Append(ctx, p.store, repositories.KeyNotifications, notifications...)
}
