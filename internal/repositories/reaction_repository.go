package repositories

import (
	"fmt"

	"github.com/socialpulse/backend/internal/models"
	"gorm.io/gorm"
)

// ReactionRepository defines the interface for reaction data operations
type ReactionRepository interface {
	CreateReaction(reaction *models.Reaction) error
	DeleteReaction(postID, userID uint) error
	GetReactionsCountByPostID(postID uint) (int64, error)
	HasUserReacted(postID, userID uint) (bool, error)
}

// PostgresReactionRepository implements ReactionRepository for PostgreSQL
type PostgresReactionRepository struct {
	db *gorm.DB
}

// NewPostgresReactionRepository creates a new PostgresReactionRepository
func NewPostgresReactionRepository(db *gorm.DB) *PostgresReactionRepository {
	return &PostgresReactionRepository{db: db}
}

// CreateReaction creates a new reaction in PostgreSQL
func (r *PostgresReactionRepository) CreateReaction(reaction *models.Reaction) error {
	return r.db.Create(reaction).Error
}

// DeleteReaction deletes a user's reaction on a post from PostgreSQL
func (r *PostgresReactionRepository) DeleteReaction(postID, userID uint) error {
	res := r.db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Reaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reaction: %w", models.ErrNotFound)
	}
	return nil
}

// GetReactionsCountByPostID retrieves the count of reactions for a specific post
func (r *PostgresReactionRepository) GetReactionsCountByPostID(postID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Reaction{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// HasUserReacted checks if a user has already reacted to a specific post
func (r *PostgresReactionRepository) HasUserReacted(postID, userID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Reaction{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
