package repositories

import (
	"context"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	gocache "github.com/patrickmn/go-cache"
	"strconv"
	"sync"
	"time"
)

// missingJob marks an id that is not in the last loaded list.
type missingJob struct{}

// CachedJobs resolves jobs by id from the store's "jobs" list, memoizing every job
// of the last loaded list and every id that was not in it.
type CachedJobs struct {
	store *Store
	cache *gocache.Cache
	// serializes list loads with Replace so a stale list is never memoized
	mu sync.Mutex
}

func NewCachedJobs(store *Store) *CachedJobs {
	return &CachedJobs{store: store, cache: gocache.New(10*time.Minute, 20*time.Minute)}
}

// GetByID returns nil without error when no job has the given id.
func (c *CachedJobs) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	if job, found := c.cached(id); found {
		return job, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if job, found := c.cached(id); found {
		return job, nil
	}

	jobs, err := List[models.Job](ctx, c.store, KeyJobs)
	if err != nil {
		return nil, err
	}

	var result *models.Job
	for i := range jobs {
		c.cache.SetDefault(cacheKey(jobs[i].ID), jobs[i])
		if jobs[i].ID == id {
			result = &jobs[i]
		}
	}
	if result == nil {
		c.cache.SetDefault(cacheKey(id), missingJob{})
	}
	return result, nil
}

func (c *CachedJobs) cached(id int64) (*models.Job, bool) {
	value, found := c.cache.Get(cacheKey(id))
	if !found {
		return nil, false
	}
	job, ok := value.(models.Job)
	if !ok {
		return nil, true
	}
	return &job, true
}

// Replace overwrites the stored job list and drops every memoized job.
func (c *CachedJobs) Replace(ctx context.Context, jobs []models.Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(ctx, KeyJobs, jobs); err != nil {
		return err
	}
	c.cache.Flush()
	return nil
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
