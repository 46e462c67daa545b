package models

import "gorm.io/gorm"

// Comment represents a comment on a post
type Comment struct {
	gorm.Model
	PostID  uint   `json:"post_id" gorm:"index"`
	UserID  uint   `json:"user_id" gorm:"index"` // ID of the user who made the comment
	User    *User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Post    *Post  `json:"post,omitempty" gorm:"foreignKey:PostID"`
	Content string `json:"content" validate:"required,min=1,max=500"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	PostID  uint   `json:"post_id" validate:"required"`
	Content string `json:"content" validate:"required,min=1,max=500"`
}
