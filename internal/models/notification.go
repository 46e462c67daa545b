package models

import "time"

// Notification types. A notification carries at most one trigger reference,
// selected by its type.
const (
	NotificationTypeWelcome     = "WELCOME"
	NotificationTypeNewPost     = "NEW_POST"
	NotificationTypeNewComment  = "NEW_COMMENT"
	NotificationTypeNewReaction = "NEW_REACTION"
	NotificationTypeNewFollower = "NEW_FOLLOWER"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"user_id" gorm:"index"` // recipient
	Type       string     `json:"type" gorm:"size:30;index"`
	Content    string     `json:"content"`
	Seen       bool       `json:"seen" gorm:"default:false;index"`
	EventKey   string     `json:"-" gorm:"size:64;uniqueIndex"` // dedupes redeliveries of the same event
	PostID     *uint      `json:"post_id,omitempty" gorm:"index"`
	CommentID  *uint      `json:"comment_id,omitempty"`
	ReactionID *uint      `json:"reaction_id,omitempty"`
	FollowID   *uint      `json:"follow_id,omitempty"`
	Post       *Post      `json:"-" gorm:"foreignKey:PostID"`
	Comment    *Comment   `json:"-" gorm:"foreignKey:CommentID"`
	Reaction   *Reaction  `json:"-" gorm:"foreignKey:ReactionID"`
	Follow     *Follow    `json:"-" gorm:"foreignKey:FollowID"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index"`
}
