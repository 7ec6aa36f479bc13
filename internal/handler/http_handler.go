package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/service"
	"github.com/coachhub/coach-chat/pkg/log"
	"github.com/coachhub/coach-chat/pkg/middleware"
	"github.com/coachhub/coach-chat/pkg/response"
)

// Handler handles HTTP requests for the chat service.
type Handler struct {
	chatService    service.ChatService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(chatService service.ChatService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		chatService:    chatService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	api.Use(h.authMiddleware.RequireAuth())
	{
		chats := api.Group("/chats")
		{
			chats.GET("", h.ListConversations)
			chats.POST("", h.CreateConversation)
			chats.PATCH("/check/:chatId", h.EnsureConversation)
			chats.GET("/refresh/:chatId", h.GetConversation)
			chats.GET("/refresh/:chatId/:lastMessageId", h.GetConversation)
			chats.POST("/messages", h.AddMessage)
			chats.DELETE("/:chatId", h.DeleteConversation)
		}

		api.PUT("/participants/me", h.UpsertParticipant)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

func caller(c *gin.Context) domain.Caller {
	return domain.Caller{
		ID:   middleware.GetUserID(c),
		Role: domain.Role(middleware.GetRole(c)),
	}
}

// CreateConversation starts a conversation with another participant.
func (h *Handler) CreateConversation(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create conversation request")
		response.BadRequest(c, err.Error())
		return
	}

	id, err := h.chatService.CreateConversation(ctx, caller(c), req.CounterpartID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, domain.CreateConversationResponse{ConversationID: id})
}

// EnsureConversation recreates a conversation the client already knows
// about, if the server lost or never had it.
func (h *Handler) EnsureConversation(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.EnsureConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind ensure conversation request")
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.chatService.EnsureConversation(ctx, caller(c), c.Param("chatId"), req.Members); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, domain.CreateConversationResponse{ConversationID: c.Param("chatId")})
}

// GetConversation returns a conversation, optionally only the messages after
// lastMessageId, and marks it read for the caller.
func (h *Handler) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := h.chatService.GetConversation(ctx, caller(c), c.Param("chatId"), c.Param("lastMessageId"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, view)
}

// AddMessage posts a message as the caller.
func (h *Handler) AddMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind add message request")
		response.BadRequest(c, err.Error())
		return
	}

	who := caller(c)
	id, err := h.chatService.AddMessage(ctx, who, req.ChatID, who.ID, req.Text)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, domain.AddMessageResponse{MessageID: id})
}

// DeleteConversation deletes a conversation and everything hanging off it.
func (h *Handler) DeleteConversation(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.chatService.DeleteConversation(ctx, caller(c), c.Param("chatId")); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "conversation deleted"})
}

// ListConversations lists the caller's conversations, most recent first.
func (h *Handler) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()

	list, err := h.chatService.ListConversations(ctx, caller(c))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, list)
}

// UpsertParticipant registers or renames the caller.
func (h *Handler) UpsertParticipant(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.UpsertParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind upsert participant request")
		response.BadRequest(c, err.Error())
		return
	}

	p, err := h.chatService.UpsertParticipant(ctx, caller(c), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, p)
}

// handleError maps a classified service error onto the response envelope.
func handleError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		response.BadRequest(c, msg)
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, msg)
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(c, msg)
	case errors.Is(err, domain.ErrConflict):
		response.Conflict(c, msg)
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldPath, c.FullPath()).Msg("request failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError, "server error")
	}
}
