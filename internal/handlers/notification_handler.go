package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/repositories"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notificationRepository: notifRepo}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PATCH("/notifications/:id/seen", h.MarkSeen)
}

// PostSummary is the denormalized trigger info for NEW_POST notifications
type PostSummary struct {
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorName string    `json:"author_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommentSummary is the denormalized trigger info for NEW_COMMENT notifications
type CommentSummary struct {
	Content       string `json:"content"`
	PostTitle     string `json:"post_title,omitempty"`
	CommenterName string `json:"commenter_name,omitempty"`
}

// ReactionSummary is the denormalized trigger info for NEW_REACTION notifications
type ReactionSummary struct {
	ReactionType string `json:"reaction_type"`
}

// FollowSummary is the denormalized trigger info for NEW_FOLLOWER notifications
type FollowSummary struct {
	FollowerID uint      `json:"follower_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TriggerSummary carries whichever trigger reference the notification holds
type TriggerSummary struct {
	Post     *PostSummary     `json:"post,omitempty"`
	Comment  *CommentSummary  `json:"comment,omitempty"`
	Reaction *ReactionSummary `json:"reaction,omitempty"`
	Follow   *FollowSummary   `json:"follow,omitempty"`
}

// EnrichedNotification is a notification with its trigger summary attached
type EnrichedNotification struct {
	models.Notification
	Trigger *TriggerSummary `json:"trigger,omitempty"`
}

func enrichNotification(n models.Notification) EnrichedNotification {
	enriched := EnrichedNotification{Notification: n}

	switch {
	case n.Post != nil:
		summary := &PostSummary{
			Title:     n.Post.Title,
			Content:   n.Post.Content,
			CreatedAt: n.Post.CreatedAt,
		}
		if n.Post.Author != nil {
			summary.AuthorName = n.Post.Author.Name
		}
		enriched.Trigger = &TriggerSummary{Post: summary}
	case n.Comment != nil:
		summary := &CommentSummary{Content: n.Comment.Content}
		if n.Comment.Post != nil {
			summary.PostTitle = n.Comment.Post.Title
		}
		if n.Comment.User != nil {
			summary.CommenterName = n.Comment.User.Name
		}
		enriched.Trigger = &TriggerSummary{Comment: summary}
	case n.Reaction != nil:
		enriched.Trigger = &TriggerSummary{Reaction: &ReactionSummary{ReactionType: n.Reaction.ReactionType}}
	case n.Follow != nil:
		enriched.Trigger = &TriggerSummary{Follow: &FollowSummary{
			FollowerID: n.Follow.FollowerID,
			CreatedAt:  n.Follow.CreatedAt,
		}}
	}
	return enriched
}

// GetNotifications returns the caller's notifications, newest first, each
// enriched with a summary of whatever triggered it.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	notifications, err := h.notificationRepository.GetByUserID(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	enriched := make([]EnrichedNotification, 0, len(notifications))
	for _, n := range notifications {
		enriched = append(enriched, enrichNotification(n))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"notifications": enriched},
	})
}

// GetUnreadCount returns the unseen notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.notificationRepository.GetUnreadCount(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkSeen flips a notification to seen. Only the owning user may do so, and
// marking an already-seen notification is a no-op, not an error.
func (h *NotificationHandler) MarkSeen(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	notifID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	notification, err := h.notificationRepository.GetByID(uint(notifID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if notification.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You do not have access to this notification")
	}

	if notification.Seen {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Notification has already been marked as seen"})
	}

	if err := h.notificationRepository.MarkSeen(uint(notifID)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Notification marked as seen"})
}
