package models

import "time"

// FanoutFailure records one follower the fan-out could not notify.
type FanoutFailure struct {
	FollowerID uint   `json:"follower_id" bson:"follower_id"`
	Reason     string `json:"reason" bson:"reason"`
}

// FanoutReport summarizes one processed post.created event. Stored in MongoDB
// so per-follower failures are kept instead of discarded.
type FanoutReport struct {
	EventID    string          `json:"event_id" bson:"event_id"`
	PostID     uint            `json:"post_id" bson:"post_id"`
	AuthorID   uint            `json:"author_id" bson:"author_id"`
	Attempted  int             `json:"attempted" bson:"attempted"`
	Delivered  int             `json:"delivered" bson:"delivered"`
	Duplicates int             `json:"duplicates" bson:"duplicates"`
	Failures   []FanoutFailure `json:"failures,omitempty" bson:"failures,omitempty"`
	CreatedAt  time.Time       `json:"created_at" bson:"created_at"`
}
