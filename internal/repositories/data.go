package repositories

import (
	"context"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Data is the raw key/value table behind the Store and the bot's saved contexts.
// A missing key loads as nil without error.
type Data struct {
	db *gorm.DB
}

func NewDataRepository(db *gorm.DB) *Data {
	return &Data{db: db}
}

func (repo *Data) Save(ctx context.Context, key string, value []byte) error {
	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&models.ArbitraryData{ID: key, Value: value}).Error
	return errors.Wrapf(err, "save %s", key)
}

func (repo *Data) Load(ctx context.Context, key string) ([]byte, error) {
	return load(repo.db.WithContext(ctx), key)
}

// LoadAndRemove reads and deletes the key in one transaction.
func (repo *Data) LoadAndRemove(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if value, err = load(tx, key); err != nil || value == nil {
			return err
		}
		return tx.Delete(&models.ArbitraryData{}, "id = ?", key).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load and remove %s", key)
	}
	return value, nil
}

func load(db *gorm.DB, key string) ([]byte, error) {
	var data models.ArbitraryData
	err := db.First(&data, "id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", key)
	}
	return data.Value, nil
}
