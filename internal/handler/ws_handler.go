package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/coachhub/coach-chat/internal/audit"
	"github.com/coachhub/coach-chat/internal/config"
	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/hub"
	"github.com/coachhub/coach-chat/pkg/log"
	"github.com/coachhub/coach-chat/pkg/middleware"
	"github.com/coachhub/coach-chat/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler serves the live notification channel.
type WSHandler struct {
	hub       *hub.Hub
	validator middleware.TokenValidator
	wsCfg     config.WebSocketConfig
}

// NewWSHandler creates a WebSocket handler.
func NewWSHandler(h *hub.Hub, validator middleware.TokenValidator, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:       h,
		validator: validator,
		wsCfg:     wsCfg,
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/chat/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the request and starts the client pumps. The
// connection receives nothing until it sends log_in.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	l := log.L().With().Str(log.FieldClientID, client.ID()).Logger()
	ctx := log.WithLogger(context.Background(), l)

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.Push(domain.NewErrorMessage(response.CodeBadRequest, "invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeLogIn:
		var msg domain.LogInMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.Push(domain.NewErrorMessage(response.CodeBadRequest, "invalid log_in message"))
			return
		}
		h.handleLogIn(ctx, client, &msg)

	case domain.MsgTypePing:
		client.Push(domain.BaseMessage{Type: domain.MsgTypePong})

	default:
		client.Push(domain.NewErrorMessage(response.CodeBadRequest, "unknown message type"))
	}
}

func (h *WSHandler) handleLogIn(ctx context.Context, client *hub.Client, msg *domain.LogInMessage) {
	l := log.Ctx(ctx)

	claims, err := h.validator.ValidateToken(msg.Token)
	if err != nil {
		l.Warn().Err(err).Msg("websocket log_in rejected")
		client.Push(domain.NewErrorMessage(response.CodeUnauthorized, "invalid token"))
		return
	}
	if msg.UserID != claims.UserID {
		l.Warn().Str(log.FieldUserID, msg.UserID).Msg("websocket log_in user mismatch")
		client.Push(domain.NewErrorMessage(response.CodeUnauthorized, "user does not match token"))
		return
	}

	h.hub.LogIn(client, msg.Token, claims.UserID)
	client.Push(domain.LoggedInMessage{Type: domain.MsgTypeLoggedIn, UserID: claims.UserID})

	ctx = log.WithStr(ctx, log.FieldUserID, claims.UserID)
	audit.Log(ctx, audit.ActionChannelLogIn, claims.UserID, "channel logged in")
}
