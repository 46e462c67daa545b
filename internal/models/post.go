package models

import "time"

// Post represents an authored post (PostgreSQL)
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AuthorID  uint      `json:"author_id" gorm:"index"`
	Author    *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=120"`
	Content string `json:"content" validate:"required,min=1,max=5000"`
}
