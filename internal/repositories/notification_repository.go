package repositories

import (
	"errors"
	"fmt"

	"github.com/socialpulse/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	GetByUserID(userID uint) ([]models.Notification, error)
	GetByID(id uint) (*models.Notification, error)
	GetUnreadCount(userID uint) (int64, error)
	MarkSeen(notificationID uint) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

// CreateNotification inserts one notification row. The recipient must resolve
// to an existing user (ErrNotFound otherwise), and a colliding event key means
// this event was already delivered to this recipient (ErrDuplicateEvent).
func (r *postgresNotificationRepository) CreateNotification(notification *models.Notification) error {
	var count int64
	if err := r.db.Model(&models.User{}).Where("id = ?", notification.UserID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("recipient %d: %w", notification.UserID, models.ErrNotFound)
	}

	if err := r.db.Create(notification).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("event key %s: %w", notification.EventKey, models.ErrDuplicateEvent)
		}
		return err
	}
	return nil
}

// GetByUserID returns all notifications for a user, newest first, with the
// trigger references preloaded for enrichment.
func (r *postgresNotificationRepository) GetByUserID(userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Preload("Post.Author").
		Preload("Comment.User").
		Preload("Comment.Post").
		Preload("Reaction").
		Preload("Follow").
		Find(&notifications).Error
	return notifications, err
}

func (r *postgresNotificationRepository) GetByID(id uint) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.First(&notification, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("notification %d: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return &notification, nil
}

func (r *postgresNotificationRepository) GetUnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).Where("user_id = ? AND seen = false", userID).Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkSeen(notificationID uint) error {
	return r.db.Model(&models.Notification{}).Where("id = ?", notificationID).Update("seen", true).Error
}
