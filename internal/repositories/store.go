package repositories

import (
	"context"
	"encoding/json"
	"github.com/pkg/errors"
	"sync"
)

const (
	KeyApplications  = "applications"
	KeyJobs          = "jobs"
	KeyNotifications = "notifications"
)

type dataRepository interface {
	Save(ctx context.Context, id string, data []byte) error
	Load(ctx context.Context, id string) ([]byte, error)
}

// Store keeps JSON values under string keys. It is shared by the whole process and
// does not partition by user.
type Store struct {
	data dataRepository
	mu   sync.Mutex
}

func NewStore(data dataRepository) *Store {
	return &Store{data: data}
}

// Get decodes the value stored under key into dest and reports whether the key exists.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx, key, dest)
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(ctx, key, value)
}

func (s *Store) get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.data.Load(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "load key %s", key)
	}
	if raw == nil {
		return false, nil
	}
	if err = json.Unmarshal(raw, dest); err != nil {
		return false, errors.Wrapf(err, "decode key %s", key)
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode key %s", key)
	}
	return errors.Wrapf(s.data.Save(ctx, key, raw), "save key %s", key)
}

// Append adds items to the end of the list stored under key, creating it when missing.
func Append[T any](ctx context.Context, s *Store, key string, items ...T) error {
	if len(items) == 0 {
		return nil
	}
	return Update(ctx, s, key, func(list []T) []T {
		return append(list, items...)
	})
}

// Update replaces the list stored under key with fn's result while holding the store lock.
func Update[T any](ctx context.Context, s *Store, key string, fn func([]T) []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []T
	if _, err := s.get(ctx, key, &list); err != nil {
		return err
	}
	return s.set(ctx, key, fn(list))
}

// List loads the list stored under key. A missing key is an empty list.
func List[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	var list []T
	if _, err := s.Get(ctx, key, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}
