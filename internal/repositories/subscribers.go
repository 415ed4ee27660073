package repositories

import (
	"context"
	"errors"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Subscribers struct {
	db *gorm.DB
}

func NewSubscribersRepository(db *gorm.DB) *Subscribers {
	return &Subscribers{db: db}
}

// Link binds a chat to a job-board user, replacing any previous binding of that chat.
func (repo *Subscribers) Link(ctx context.Context, chatID int64, userID int64) error {
	return repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id"}),
		}).
		Create(&models.Subscriber{ChatID: chatID, UserID: userID}).Error
}

func (repo *Subscribers) GetByChatID(ctx context.Context, chatID int64) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := repo.db.WithContext(ctx).First(&subscriber, "chat_id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

func (repo *Subscribers) GetByUserID(ctx context.Context, userID int64) ([]models.Subscriber, error) {
	var subscribers []models.Subscriber
	if err := repo.db.WithContext(ctx).Find(&subscribers, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return subscribers, nil
}

func (repo *Subscribers) GetAll(ctx context.Context) ([]models.Subscriber, error) {
	var subscribers []models.Subscriber
	if err := repo.db.WithContext(ctx).Order("created_at").Find(&subscribers).Error; err != nil {
		return nil, err
	}
	return subscribers, nil
}

func (repo *Subscribers) Remove(ctx context.Context, chatID int64) error {
	return repo.db.WithContext(ctx).Delete(&models.Subscriber{}, "chat_id = ?", chatID).Error
}
