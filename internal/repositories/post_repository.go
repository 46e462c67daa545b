package repositories

import (
	"errors"
	"fmt"

	"github.com/socialpulse/backend/internal/models"
	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(post *models.Post) error
	GetPostByID(id uint) (*models.Post, error)
	GetPostsByAuthorID(authorID uint, offset, limit int) ([]models.Post, error)
	GetAllPosts(offset, limit int) ([]models.Post, error)
	DeletePost(id uint) error
	FindAuthorEmail(postID uint) (string, error)
}

// PostgresPostRepository implements PostRepository for PostgreSQL
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// CreatePost creates a new post in PostgreSQL
func (r *PostgresPostRepository) CreatePost(post *models.Post) error {
	return r.db.Create(post).Error
}

// GetPostByID retrieves a post by ID with its author preloaded
func (r *PostgresPostRepository) GetPostByID(id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %d: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByAuthorID retrieves posts authored by a specific user
func (r *PostgresPostRepository) GetPostsByAuthorID(authorID uint, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Where("author_id = ?", authorID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	return posts, err
}

// GetAllPosts retrieves posts across all authors, newest first
func (r *PostgresPostRepository) GetAllPosts(offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&posts).Error
	return posts, err
}

// DeletePost deletes a post by ID from PostgreSQL
func (r *PostgresPostRepository) DeletePost(id uint) error {
	return r.db.Delete(&models.Post{}, id).Error
}

// FindAuthorEmail resolves the email of the author of the given post.
func (r *PostgresPostRepository) FindAuthorEmail(postID uint) (string, error) {
	var email string
	err := r.db.Model(&models.Post{}).
		Select("users.email").
		Joins("JOIN users ON users.id = posts.author_id").
		Where("posts.id = ?", postID).
		Scan(&email).Error
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", fmt.Errorf("post %d: %w", postID, models.ErrNotFound)
	}
	return email, nil
}
