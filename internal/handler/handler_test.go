package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachhub/coach-chat/internal/config"
	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/hub"
	"github.com/coachhub/coach-chat/internal/notify"
	"github.com/coachhub/coach-chat/internal/repository"
	"github.com/coachhub/coach-chat/internal/service"
	"github.com/coachhub/coach-chat/pkg/database"
	"github.com/coachhub/coach-chat/pkg/jwt"
	"github.com/coachhub/coach-chat/pkg/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	tokens *jwt.Manager
	hub    *hub.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     ":memory:",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := hub.NewRegistry()
	h := hub.NewHub(registry)
	go h.Run(ctx)

	svc := service.NewChatService(
		repository.NewGormConversationRepository(db),
		repository.NewGormMessageRepository(db),
		repository.NewGormParticipantRepository(db),
		notify.NewNotifier(registry, nil),
		service.Options{},
	)

	tokens := jwt.NewManager("test-secret", "coach-chat-test", time.Hour)
	engine := gin.New()
	NewHandler(svc, middleware.NewAuthMiddleware(tokens)).RegisterRoutes(engine)
	NewWSHandler(h, tokens, config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     16,
	}).RegisterRoutes(engine)

	return &testServer{engine: engine, tokens: tokens, hub: h}
}

type user struct {
	id    string
	token string
}

func (s *testServer) user(t *testing.T, name string, role domain.Role) user {
	t.Helper()
	id := uuid.New().String()
	token, err := s.tokens.Sign(id, string(role))
	require.NoError(t, err)
	u := user{id: id, token: token}
	w := s.do(t, u, http.MethodPut, "/api/v1/participants/me", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return u
}

func (s *testServer) do(t *testing.T, u user, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (s *testServer) createConversation(t *testing.T, from, to user) string {
	t.Helper()
	w := s.do(t, from, http.MethodPost, "/api/v1/chats", map[string]string{"counterpart_id": to.id})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp domain.CreateConversationResponse
	decode(t, w, &resp)
	return resp.ConversationID
}

func (s *testServer) addMessage(t *testing.T, from user, chatID, text string) string {
	t.Helper()
	w := s.do(t, from, http.MethodPost, "/api/v1/chats/messages", map[string]string{"chat_id": chatID, "text": text})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp domain.AddMessageResponse
	decode(t, w, &resp)
	return resp.MessageID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, user{}, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, user{}, http.MethodGet, "/api/v1/chats", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, user{token: "garbage"}, http.MethodGet, "/api/v1/chats", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestConversationFlow(t *testing.T) {
	s := newTestServer(t)
	coach := s.user(t, "Coach", domain.RoleCoach)
	client := s.user(t, "Client", domain.RoleClient)

	chatID := s.createConversation(t, coach, client)
	m1 := s.addMessage(t, coach, chatID, "hello")
	m2 := s.addMessage(t, client, chatID, "hi coach")

	w := s.do(t, client, http.MethodGet, "/api/v1/chats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.ConversationSummary
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, chatID, list[0].ID)
	assert.True(t, list[0].Unread)

	w = s.do(t, client, http.MethodGet, "/api/v1/chats/refresh/"+chatID+"/"+m1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view domain.ConversationView
	decode(t, w, &view)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, m2, view.Messages[0].ID)
	assert.Len(t, view.Participants, 2)

	w = s.do(t, client, http.MethodGet, "/api/v1/chats/refresh/"+chatID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)
	assert.Len(t, view.Messages, 2)

	w = s.do(t, client, http.MethodGet, "/api/v1/chats", nil)
	decode(t, w, &list)
	assert.False(t, list[0].Unread)

	w = s.do(t, coach, http.MethodDelete, "/api/v1/chats/"+chatID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, client, http.MethodGet, "/api/v1/chats/refresh/"+chatID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	coach := s.user(t, "Coach", domain.RoleCoach)
	client := s.user(t, "Client", domain.RoleClient)
	outsider := s.user(t, "Other", domain.RoleClient)
	chatID := s.createConversation(t, coach, client)

	tests := []struct {
		name   string
		as     user
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed id", coach, http.MethodGet, "/api/v1/chats/refresh/not-an-id", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown chat", coach, http.MethodGet, "/api/v1/chats/refresh/" + uuid.New().String(), nil, http.StatusNotFound, "NOT_FOUND"},
		{"outsider reads", outsider, http.MethodGet, "/api/v1/chats/refresh/" + chatID, nil, http.StatusForbidden, "FORBIDDEN"},
		{"outsider posts", outsider, http.MethodPost, "/api/v1/chats/messages", map[string]string{"chat_id": chatID, "text": "x"}, http.StatusForbidden, "FORBIDDEN"},
		{"outsider deletes", outsider, http.MethodDelete, "/api/v1/chats/" + chatID, nil, http.StatusForbidden, "FORBIDDEN"},
		{"missing body", coach, http.MethodPost, "/api/v1/chats", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown counterpart", coach, http.MethodPost, "/api/v1/chats", map[string]string{"counterpart_id": uuid.New().String()}, http.StatusNotFound, "NOT_FOUND"},
		{"short name", coach, http.MethodPut, "/api/v1/participants/me", map[string]string{"name": "x"}, http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.as, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			env := decode(t, w, nil)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestEnsureConversation(t *testing.T) {
	s := newTestServer(t)
	coach := s.user(t, "Coach", domain.RoleCoach)
	client := s.user(t, "Client", domain.RoleClient)
	chatID := uuid.New().String()

	body := map[string][]string{"members": {coach.id, client.id}}
	for i := 0; i < 2; i++ {
		w := s.do(t, client, http.MethodPatch, "/api/v1/chats/check/"+chatID, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := s.do(t, coach, http.MethodGet, "/api/v1/chats", nil)
	var list []domain.ConversationSummary
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, chatID, list[0].ID)

	w = s.do(t, client, http.MethodPatch, "/api/v1/chats/check/"+uuid.New().String(),
		map[string][]string{"members": {client.id, uuid.New().String()}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func logIn(t *testing.T, conn *websocket.Conn, u user) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "log_in", "token": u.token, "user_id": u.id}))
	frame := readFrame(t, conn)
	require.Equal(t, "logged_in", frame["type"], frame)
}

func TestWebSocketPingAndBadLogin(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	coach := s.user(t, "Coach", domain.RoleCoach)
	client := s.user(t, "Client", domain.RoleClient)

	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", readFrame(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "log_in", "token": "bad", "user_id": coach.id}))
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, "UNAUTHORIZED", frame["code"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "log_in", "token": coach.token, "user_id": client.id}))
	frame = readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	assert.Equal(t, "BAD_REQUEST", readFrame(t, conn)["code"])
}

func TestWebSocketNewMessageReachesEveryDevice(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	coach := s.user(t, "Coach", domain.RoleCoach)
	client := s.user(t, "Client", domain.RoleClient)
	chatID := s.createConversation(t, coach, client)

	// Two devices for the client, each with its own token.
	secondToken, err := s.tokens.Sign(client.id, string(domain.RoleClient))
	require.NoError(t, err)
	phone := dialWS(t, srv)
	logIn(t, phone, client)
	laptop := dialWS(t, srv)
	logIn(t, laptop, user{id: client.id, token: secondToken})

	msgID := s.addMessage(t, coach, chatID, "see you at 9")

	for _, conn := range []*websocket.Conn{phone, laptop} {
		frame := readFrame(t, conn)
		assert.Equal(t, "new_message_in_chat", frame["type"])
		assert.Equal(t, chatID, frame["conversation_id"])
		assert.Equal(t, msgID, frame["message_id"])
		assert.NotEmpty(t, frame["timestamp"])
		assert.NotContains(t, frame, "text")
	}
}

func TestWebSocketDisconnectPrunesRegistry(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	client := s.user(t, "Client", domain.RoleClient)

	conn := dialWS(t, srv)
	logIn(t, conn, client)
	assert.Equal(t, 1, s.hub.Registry().Len())

	conn.Close()
	assert.Eventually(t, func() bool { return s.hub.Registry().Len() == 0 }, 3*time.Second, 20*time.Millisecond)
}
