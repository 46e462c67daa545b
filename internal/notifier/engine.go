package notifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/socialpulse/backend/internal/events"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/repositories"
	"github.com/socialpulse/backend/pkg/bus"
	"golang.org/x/sync/errgroup"
)

const welcomeMessage = "Welcome to our service"

// defaultFanoutWorkers bounds the concurrency of per-follower notification
// writes so an author with a huge follower set cannot exhaust connections.
const defaultFanoutWorkers = 8

// Subscriber registers an asynchronous handler per topic. Satisfied by
// *bus.Client.
type Subscriber interface {
	Subscribe(topic string, handler bus.Handler) error
}

// Engine consumes domain events, resolves the affected audience, and writes
// notification records. Notifications are created here and nowhere else.
type Engine struct {
	notifications repositories.NotificationRepository
	posts         repositories.PostRepository
	follows       repositories.FollowRepository
	reports       repositories.ReportRepository
	workers       int
	now           func() time.Time
}

// NewEngine creates a new fan-out engine. reports may be nil, in which case
// delivery reports are logged but not persisted.
func NewEngine(
	notifRepo repositories.NotificationRepository,
	postRepo repositories.PostRepository,
	followRepo repositories.FollowRepository,
	reportRepo repositories.ReportRepository,
	workers int,
) *Engine {
	if workers <= 0 {
		workers = defaultFanoutWorkers
	}
	return &Engine{
		notifications: notifRepo,
		posts:         postRepo,
		follows:       followRepo,
		reports:       reportRepo,
		workers:       workers,
		now:           time.Now,
	}
}

// Run registers the engine's consumers on the bus.
func (e *Engine) Run(sub Subscriber) error {
	if err := sub.Subscribe(events.TopicUserCreated, e.HandleUserCreated); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.TopicUserCreated, err)
	}
	if err := sub.Subscribe(events.TopicPostCreated, e.HandlePostCreated); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.TopicPostCreated, err)
	}
	return nil
}

// eventKey derives the idempotency key for one (event, recipient) pair. The
// unique index on notifications.event_key makes broker redeliveries safe.
func eventKey(eventID string, recipientID uint) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", eventID, recipientID)))
	return hex.EncodeToString(sum[:])
}

// HandleUserCreated sends the welcome notification for a user.created event.
func (e *Engine) HandleUserCreated(ctx context.Context, body []byte) error {
	env, err := events.Decode(body)
	if err != nil {
		log.Printf("Dropping user.created event: %v", err)
		return nil
	}

	user, err := events.DecodePayload[events.UserCreated](env)
	if err != nil {
		log.Printf("Dropping user.created event %s: %v", env.ID, err)
		return nil
	}

	notification := &models.Notification{
		UserID:    user.ID,
		Type:      models.NotificationTypeWelcome,
		Content:   welcomeMessage,
		EventKey:  eventKey(env.ID, user.ID),
		CreatedAt: e.now(),
	}

	switch err := e.notifications.CreateNotification(notification); {
	case err == nil:
		log.Printf("Sent welcome notification to %s", user.Email)
		return nil
	case errors.Is(err, models.ErrNotFound):
		// Source data mismatch, not fatal: the recipient is gone.
		log.Printf("Skipping welcome notification, user %d not found", user.ID)
		return nil
	case errors.Is(err, models.ErrDuplicateEvent):
		log.Printf("Welcome notification for event %s already delivered", env.ID)
		return nil
	default:
		return fmt.Errorf("failed to create welcome notification: %w", err)
	}
}

// HandlePostCreated notifies every follower of the post's author. The
// follower set is resolved at delivery time. Per-follower failures are
// isolated and collected into a delivery report instead of aborting the
// broadcast.
func (e *Engine) HandlePostCreated(ctx context.Context, body []byte) error {
	env, err := events.Decode(body)
	if err != nil {
		log.Printf("Dropping post.created event: %v", err)
		return nil
	}

	post, err := events.DecodePayload[events.PostCreated](env)
	if err != nil {
		log.Printf("Dropping post.created event %s: %v", env.ID, err)
		return nil
	}

	authorEmail, err := e.posts.FindAuthorEmail(post.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Publish is decoupled from consumption; nobody to report to.
			log.Printf("Post %d not found, skipping fan-out for event %s", post.ID, env.ID)
			return nil
		}
		return fmt.Errorf("failed to resolve author of post %d: %w", post.ID, err)
	}

	followers, err := e.follows.GetFollowers(post.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to resolve followers of user %d: %w", post.AuthorID, err)
	}

	content := fmt.Sprintf("New post by %s", authorEmail)
	report := models.FanoutReport{
		EventID:   env.ID,
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Attempted: len(followers),
		CreatedAt: e.now(),
	}

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, follower := range followers {
		follower := follower
		g.Go(func() error {
			postID := post.ID
			notification := &models.Notification{
				UserID:    follower.ID,
				Type:      models.NotificationTypeNewPost,
				Content:   content,
				EventKey:  eventKey(env.ID, follower.ID),
				PostID:    &postID,
				CreatedAt: e.now(),
			}

			err := e.notifications.CreateNotification(notification)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Delivered++
			case errors.Is(err, models.ErrDuplicateEvent):
				report.Duplicates++
			default:
				log.Printf("Failed to notify follower %d about post %d: %v", follower.ID, post.ID, err)
				report.Failures = append(report.Failures, models.FanoutFailure{
					FollowerID: follower.ID,
					Reason:     err.Error(),
				})
			}
			// Failures are isolated per follower, never returned.
			return nil
		})
	}
	g.Wait()

	log.Printf("Fan-out for post %d: %d attempted, %d delivered, %d duplicates, %d failed",
		post.ID, report.Attempted, report.Delivered, report.Duplicates, len(report.Failures))

	if e.reports != nil {
		if err := e.reports.SaveReport(ctx, &report); err != nil {
			log.Printf("Failed to save fan-out report for event %s: %v", env.ID, err)
		}
	}
	return nil
}
