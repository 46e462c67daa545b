package models

import "time"

// Reaction represents a reaction on a post
type Reaction struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	PostID       uint      `json:"post_id" gorm:"index;uniqueIndex:idx_post_user_reaction"`
	UserID       uint      `json:"user_id" gorm:"index;uniqueIndex:idx_post_user_reaction"`
	ReactionType string    `json:"reaction_type" gorm:"size:20"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateReactionRequest defines the request body for reacting to a post
type CreateReactionRequest struct {
	ReactionType string `json:"reaction_type" validate:"required,oneof=LIKE LOVE LAUGH SAD ANGRY"`
}
