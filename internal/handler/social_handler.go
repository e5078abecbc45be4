package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/AbhishekPandey12345/CampusHub/internal/service"
	pkglog "github.com/AbhishekPandey12345/CampusHub/pkg/log"
	"github.com/AbhishekPandey12345/CampusHub/pkg/middleware"
	"github.com/AbhishekPandey12345/CampusHub/pkg/response"
)

// ToggleFollow handles POST /api/v1/users/:user_id/follow/toggle.
// The authenticated user follows the target if not already following,
// otherwise unfollows. The response carries the resulting state and counts.
func (h *Handler) ToggleFollow(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	followerID := middleware.GetUserID(c)
	if followerID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	targetID := c.Param("user_id")
	if targetID == "" {
		response.BadRequest(c, "user_id is required")
		return
	}

	result, err := h.social.ToggleFollow(ctx, followerID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfFollow):
			response.BadRequest(c, "cannot follow yourself")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).
				Str(pkglog.FieldUserID, followerID).
				Str(pkglog.FieldTargetID, targetID).
				Msg("toggle follow failed")
			response.InternalError(c, "failed to toggle follow")
		}
		return
	}

	response.Success(c, result)
}

// GetFollowersCount handles GET /api/v1/users/:user_id/followers/count.
func (h *Handler) GetFollowersCount(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := c.Param("user_id")
	if userID == "" {
		response.BadRequest(c, "user_id is required")
		return
	}

	count, err := h.social.GetFollowersCount(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("get followers count failed")
		response.InternalError(c, "failed to get followers count")
		return
	}

	response.Success(c, gin.H{"user_id": userID, "followers": count})
}

// GetFollowingCount handles GET /api/v1/users/:user_id/following/count.
func (h *Handler) GetFollowingCount(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := c.Param("user_id")
	if userID == "" {
		response.BadRequest(c, "user_id is required")
		return
	}

	count, err := h.social.GetFollowingCount(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("get following count failed")
		response.InternalError(c, "failed to get following count")
		return
	}

	response.Success(c, gin.H{"user_id": userID, "following": count})
}
