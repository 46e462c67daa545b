package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/repositories"
)

// ReactionHandler handles HTTP requests related to reactions
type ReactionHandler struct {
	reactionRepository repositories.ReactionRepository
	postRepository     repositories.PostRepository // To verify the reacted post exists
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(reactionRepo repositories.ReactionRepository, postRepo repositories.PostRepository) *ReactionHandler {
	return &ReactionHandler{
		reactionRepository: reactionRepo,
		postRepository:     postRepo,
	}
}

// RegisterReactionRoutes registers reaction-related routes
func (h *ReactionHandler) RegisterReactionRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/reactions", h.ReactToPost)
	g.DELETE("/posts/:post_id/reactions", h.RemoveReaction)
	g.GET("/posts/:post_id/reactions/count", h.GetReactionsCount)
}

// ReactToPost adds the authenticated user's reaction to a post
func (h *ReactionHandler) ReactToPost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	var req models.CreateReactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Verify post exists
	if _, err := h.postRepository.GetPostByID(uint(postID)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	hasReacted, err := h.reactionRepository.HasUserReacted(uint(postID), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hasReacted {
		return echo.NewHTTPError(http.StatusConflict, "Post already has a reaction from this user")
	}

	reaction := &models.Reaction{
		PostID:       uint(postID),
		UserID:       currentUserID,
		ReactionType: req.ReactionType,
	}

	if err := h.reactionRepository.CreateReaction(reaction); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, reaction)
}

// RemoveReaction removes the authenticated user's reaction from a post
func (h *ReactionHandler) RemoveReaction(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	if err := h.reactionRepository.DeleteReaction(uint(postID), currentUserID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Reaction not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// GetReactionsCount retrieves the total number of reactions for a post
func (h *ReactionHandler) GetReactionsCount(c echo.Context) error {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	count, err := h.reactionRepository.GetReactionsCountByPostID(uint(postID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"post_id": postID, "reactions_count": count})
}
