package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/internal/service"
	pkglog "github.com/AbhishekPandey12345/CampusHub/pkg/log"
	"github.com/AbhishekPandey12345/CampusHub/pkg/middleware"
	"github.com/AbhishekPandey12345/CampusHub/pkg/response"
	"github.com/AbhishekPandey12345/CampusHub/pkg/storage"
)

const (
	maxAvatarSize = 5 << 20 // 5 MiB
	avatarURLTTL  = 24 * time.Hour
)

// Handler handles HTTP requests for conversations and the social graph.
type Handler struct {
	conversations  service.ConversationService
	social         service.SocialGraphService
	storage        storage.Storage
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	conversations service.ConversationService,
	social service.SocialGraphService,
	store storage.Storage,
	authMiddleware *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		conversations:  conversations,
		social:         social,
		storage:        store,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		conversations := api.Group("/conversations", h.authMiddleware.RequireAuth())
		{
			conversations.POST("/direct", h.CreateDirect)
			conversations.POST("/group", h.CreateGroup)
			conversations.GET("", h.ListConversations)
			conversations.GET("/:conversation_id", h.GetConversation)
			conversations.PATCH("/:conversation_id/name", h.RenameConversation)
			conversations.DELETE("/:conversation_id", h.DeleteConversation)
			conversations.POST("/:conversation_id/members", h.AddMember)
			conversations.DELETE("/:conversation_id/members/:user_id", h.RemoveMember)
			conversations.POST("/:conversation_id/messages", h.AppendMessage)
			conversations.GET("/:conversation_id/messages", h.ListMessages)
		}

		users := api.Group("/users")
		{
			// POST /api/v1/users/:user_id/follow/toggle (auth required)
			users.POST("/:user_id/follow/toggle", h.authMiddleware.RequireAuth(), h.ToggleFollow)
			// count reads are public
			users.GET("/:user_id/followers/count", h.GetFollowersCount)
			users.GET("/:user_id/following/count", h.GetFollowingCount)
		}
	}
}

// CreateDirect handles POST /api/v1/conversations/direct.
// Returns the existing direct conversation with the target, or creates one.
func (h *Handler) CreateDirect(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.CreateDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "target_id is required")
		return
	}

	view, err := h.conversations.FindOrCreateDirect(ctx, userID, req.TargetID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfChat):
			response.BadRequest(c, "cannot start a conversation with yourself")
		case errors.Is(err, service.ErrChatDisabled):
			response.Forbidden(c, "target user does not accept new conversations")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).
				Str(pkglog.FieldUserID, userID).
				Str(pkglog.FieldTargetID, req.TargetID).
				Msg("create direct conversation failed")
			response.InternalError(c, "failed to open conversation")
		}
		return
	}

	response.Success(c, view)
}

// CreateGroup handles POST /api/v1/conversations/group.
// Multipart form: name, member_ids (repeated), optional avatar file.
func (h *Handler) CreateGroup(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.CreateGroupRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "name and member_ids are required")
		return
	}

	avatarURL, err := h.saveAvatar(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	view, err := h.conversations.CreateGroup(ctx, userID, req.Name, avatarURL, req.MemberIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTooFewMembers):
			response.BadRequest(c, "a group needs at least two other members")
		case errors.Is(err, service.ErrGroupAddDisabled):
			response.Forbidden(c, "a member does not accept group invitations")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "a member does not exist")
		default:
			l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("create group conversation failed")
			response.InternalError(c, "failed to create group")
		}
		return
	}

	response.Created(c, view)
}

// ListConversations handles GET /api/v1/conversations.
func (h *Handler) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	views, err := h.conversations.ListForUser(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("list conversations failed")
		response.InternalError(c, "failed to list conversations")
		return
	}

	response.Success(c, views)
}

// GetConversation handles GET /api/v1/conversations/:conversation_id.
func (h *Handler) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	conversationID := c.Param("conversation_id")
	view, err := h.conversations.GetByID(ctx, userID, conversationID)
	if err != nil {
		h.respondConversationError(c, l, err, userID, conversationID, "get conversation failed")
		return
	}

	response.Success(c, view)
}

// RenameConversation handles PATCH /api/v1/conversations/:conversation_id/name.
func (h *Handler) RenameConversation(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.RenameRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}

	conversationID := c.Param("conversation_id")
	if err := h.conversations.Rename(ctx, userID, conversationID, req.Name); err != nil {
		h.respondConversationError(c, l, err, userID, conversationID, "rename conversation failed")
		return
	}

	response.SuccessMessage(c, nil, "conversation renamed")
}

// DeleteConversation handles DELETE /api/v1/conversations/:conversation_id.
func (h *Handler) DeleteConversation(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	conversationID := c.Param("conversation_id")
	if err := h.conversations.Delete(ctx, userID, conversationID); err != nil {
		h.respondConversationError(c, l, err, userID, conversationID, "delete conversation failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// AddMember handles POST /api/v1/conversations/:conversation_id/members.
func (h *Handler) AddMember(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "user_id is required")
		return
	}

	conversationID := c.Param("conversation_id")
	if err := h.conversations.AddMember(ctx, userID, conversationID, req.UserID); err != nil {
		switch {
		case errors.Is(err, service.ErrGroupAddDisabled):
			response.Forbidden(c, "target user does not accept group invitations")
		default:
			h.respondConversationError(c, l, err, userID, conversationID, "add member failed")
		}
		return
	}

	response.SuccessMessage(c, nil, "member added")
}

// RemoveMember handles DELETE /api/v1/conversations/:conversation_id/members/:user_id.
func (h *Handler) RemoveMember(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	conversationID := c.Param("conversation_id")
	memberID := c.Param("user_id")
	if err := h.conversations.RemoveMember(ctx, userID, conversationID, memberID); err != nil {
		h.respondConversationError(c, l, err, userID, conversationID, "remove member failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// AppendMessage handles POST /api/v1/conversations/:conversation_id/messages.
func (h *Handler) AppendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "content is required")
		return
	}

	conversationID := c.Param("conversation_id")
	view, err := h.conversations.AppendMessage(ctx, userID, conversationID, req.Content)
	if err != nil {
		h.respondConversationError(c, l, err, userID, conversationID, "append message failed")
		return
	}

	response.Created(c, view)
}

// ListMessages handles GET /api/v1/conversations/:conversation_id/messages.
func (h *Handler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	conversationID := c.Param("conversation_id")
	views, err := h.conversations.ListMessages(ctx, userID, conversationID)
	if err != nil {
		h.respondConversationError(c, l, err, userID, conversationID, "list messages failed")
		return
	}

	response.Success(c, views)
}

// respondConversationError maps the shared conversation error cases.
func (h *Handler) respondConversationError(c *gin.Context, l zerolog.Logger, err error, userID, conversationID, logMsg string) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		response.NotFound(c, "conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		response.Forbidden(c, "not a participant of this conversation")
	case errors.Is(err, service.ErrNotGroup):
		response.Forbidden(c, "operation only applies to group conversations")
	case errors.Is(err, service.ErrNotAdmin):
		response.Forbidden(c, "only the group admin may perform this action")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "user not found")
	default:
		l.Error().Err(err).
			Str(pkglog.FieldUserID, userID).
			Str(pkglog.FieldConversationID, conversationID).
			Msg(logMsg)
		response.InternalError(c, "internal error")
	}
}

// saveAvatar stores an optional multipart avatar file and returns its URL.
// Returns an empty URL when no avatar part was sent.
func (h *Handler) saveAvatar(c *gin.Context) (string, error) {
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", errors.New("invalid avatar upload")
	}
	if fileHeader.Size > maxAvatarSize {
		return "", errors.New("avatar exceeds maximum size")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", errors.New("invalid avatar upload")
	}
	defer file.Close()

	key := "avatars/" + uuid.New().String() + filepath.Ext(fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")
	ctx := c.Request.Context()
	if err := h.storage.Write(ctx, key, file, fileHeader.Size, contentType); err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Msg("failed to store avatar")
		return "", errors.New("failed to store avatar")
	}

	return h.storage.GetURL(ctx, key, avatarURLTTL)
}
