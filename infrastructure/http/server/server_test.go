package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fanous-live/auth"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/mocks"
	"fanous-live/observability"
	"fanous-live/runtime"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	handler       http.Handler
	auth          *mocks.MockIAuthService
	chat          *mocks.MockIChatService
	notifications *mocks.MockINotificationService
	registry      *runtime.Registry
	token         string
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.GenerateToken("u1", []string{"user"})
	require.NoError(t, err)

	f := fixture{
		auth:          mocks.NewMockIAuthService(ctrl),
		chat:          mocks.NewMockIChatService(ctrl),
		notifications: mocks.NewMockINotificationService(ctrl),
		registry:      runtime.NewRegistry(),
		token:         token,
	}
	f.handler = NewHandler(slog.Default(), Dependencies{
		Auth:          f.auth,
		Chat:          f.chat,
		Notifications: f.notifications,
		Registry:      f.registry,
		Monitoring:    observability.NewMonitoringManager(slog.Default()),
		Issuer:        issuer,
	})
	return f
}

func (f fixture) do(t *testing.T, method, path string, body any, authenticated bool) (*httptest.ResponseRecorder, Response) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, path, reader)
	if authenticated {
		r.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)

	var response Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w, response
}

func TestServer_Register(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.auth.EXPECT().Register(gomock.Any(), "jane@example.com", "Str0ng!Passw0rd", "Jane").
		Return(domain.AuthResult{UserID: "u1", DisplayName: "Jane", Token: "tok"}, nil)

	w, response := f.do(t, http.MethodPost, "/api/v1/auth/register",
		registerRequest{Email: "jane@example.com", Password: "Str0ng!Passw0rd", DisplayName: "Jane"}, false)

	req.Equal(http.StatusCreated, w.Code)
	req.Equal(http.StatusCreated, response.ResponseCode)
	req.Equal("tok", response.ResponseResult.(map[string]any)["token"])
}

func TestServer_Register_Conflict(t *testing.T) {
	f := newFixture(t)
	f.auth.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.AuthResult{}, errors.ErrUserAlreadyExists)

	w, response := f.do(t, http.MethodPost, "/api/v1/auth/register",
		registerRequest{Email: "jane@example.com", Password: "x"}, false)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "user already exists", response.ResponseMessage)
}

func TestServer_Login_Invalid_Credentials(t *testing.T) {
	f := newFixture(t)
	f.auth.EXPECT().Login(gomock.Any(), "jane@example.com", "wrong").Return(domain.AuthResult{}, errors.ErrInvalidCredentials)

	w, response := f.do(t, http.MethodPost, "/api/v1/auth/login", loginRequest{Email: "jane@example.com", Password: "wrong"}, false)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, http.StatusUnauthorized, response.ResponseCode)
}

func TestServer_Malformed_Body(t *testing.T) {
	f := newFixture(t)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{nope"))
	w := httptest.NewRecorder()

	f.handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Protected_Routes_Require_Token(t *testing.T) {
	f := newFixture(t)
	f.notifications.EXPECT().List(gomock.Any(), gomock.Any()).Times(0)

	w, response := f.do(t, http.MethodGet, "/api/v1/notifications", nil, false)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "unauthorized", response.ResponseMessage)
}

func TestServer_List_Notifications(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	list := domain.NewNotificationList([]domain.Notification{{ID: uuid.New(), UserID: "u1", Title: "Welcome"}})
	f.notifications.EXPECT().List(gomock.Any(), "u1").Return(list, nil)

	w, response := f.do(t, http.MethodGet, "/api/v1/notifications", nil, true)

	req.Equal(http.StatusOK, w.Code)
	result := response.ResponseResult.(map[string]any)
	req.EqualValues(1, result["unReadCount"])
}

func TestServer_List_Notifications_Empty(t *testing.T) {
	f := newFixture(t)
	f.notifications.EXPECT().List(gomock.Any(), "u1").Return(domain.NotificationList{}, errors.ErrNotFound)

	w, _ := f.do(t, http.MethodGet, "/api/v1/notifications", nil, true)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Create_Notification(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	cmd := domain.NotifyCommand{TargetUserID: "u2", Title: "Order shipped", Body: "Your bike is on its way"}
	f.notifications.EXPECT().Notify(gomock.Any(), cmd).
		Return(domain.Notification{ID: uuid.New(), UserID: "u2", Title: cmd.Title}, true, nil)

	w, response := f.do(t, http.MethodPost, "/api/v1/notifications", cmd, true)

	req.Equal(http.StatusCreated, w.Code)
	req.Equal(true, response.ResponseResult.(map[string]any)["delivered"])
}

func TestServer_Notification_Read_And_Delete(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	id := uuid.New()
	f.notifications.EXPECT().MarkRead(gomock.Any(), "u1", id).Return(nil)
	f.notifications.EXPECT().Delete(gomock.Any(), "u1", id).Return(errors.ErrNotFound)
	f.notifications.EXPECT().MarkAllRead(gomock.Any(), "u1").Return(2, nil)
	f.notifications.EXPECT().Clear(gomock.Any(), "u1").Return(3, nil)

	w, _ := f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/notifications/%s/read", id), nil, true)
	req.Equal(http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/notifications/%s", id), nil, true)
	req.Equal(http.StatusNotFound, w.Code)

	w, response := f.do(t, http.MethodPut, "/api/v1/notifications/read", nil, true)
	req.Equal(http.StatusOK, w.Code)
	req.EqualValues(2, response.ResponseResult.(map[string]any)["count"])

	w, response = f.do(t, http.MethodDelete, "/api/v1/notifications", nil, true)
	req.Equal(http.StatusOK, w.Code)
	req.EqualValues(3, response.ResponseResult.(map[string]any)["count"])

	w, _ = f.do(t, http.MethodPut, "/api/v1/notifications/not-a-uuid/read", nil, true)
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestServer_Chat_Routes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.chat.EXPECT().UnreadCount(gomock.Any(), "u1").Return(5, nil)
	f.chat.EXPECT().History(gomock.Any(), "u1", "u2", true).Return(domain.NewThreadView("u1", "u2", nil), nil)
	f.chat.EXPECT().Search(gomock.Any(), "u1", "u2", "bike", 5).Return([]domain.Message{{Body: "nice bike"}}, nil)

	w, response := f.do(t, http.MethodGet, "/api/v1/chat/unread", nil, true)
	req.Equal(http.StatusOK, w.Code)
	req.EqualValues(5, response.ResponseResult.(map[string]any)["unreadCount"])

	w, _ = f.do(t, http.MethodGet, "/api/v1/chat/u2?markRead=true", nil, true)
	req.Equal(http.StatusOK, w.Code)

	w, response = f.do(t, http.MethodGet, "/api/v1/chat/u2/search?q=bike&limit=5", nil, true)
	req.Equal(http.StatusOK, w.Code)
	req.Len(response.ResponseResult, 1)

	w, _ = f.do(t, http.MethodGet, "/api/v1/chat/u2/search?q=bike&limit=abc", nil, true)
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestServer_Send_Message_Uses_Token_Owner(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	message := domain.Message{ID: uuid.New(), SenderID: "u1", ReceiverID: "u2", Body: "hi"}
	f.chat.EXPECT().
		SendMessage(gomock.Any(), domain.SendMessageCommand{SenderID: "u1", ReceiverID: "u2", Body: "hi"}).
		Return(domain.SendResult{Message: message, Delivered: domain.NewUserSet("u2")}, nil)

	w, response := f.do(t, http.MethodPost, "/api/v1/chat/u2", sendMessageRequest{Body: "hi"}, true)

	req.Equal(http.StatusCreated, w.Code)
	req.Equal(true, response.ResponseResult.(map[string]any)["delivered"])
}

func TestServer_Send_Message_Persistence_Failure(t *testing.T) {
	f := newFixture(t)
	f.chat.EXPECT().SendMessage(gomock.Any(), gomock.Any()).
		Return(domain.SendResult{}, fmt.Errorf("%w: disk full", errors.ErrPersistence))

	w, response := f.do(t, http.MethodPost, "/api/v1/chat/u2", sendMessageRequest{Body: "hi"}, true)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "persistence failure", response.ResponseMessage)
}

type nopConn struct{ id string }

func (c nopConn) ID() string { return c.id }
func (c nopConn) Send(_ context.Context, _ domain.Envelope) error {
	return nil
}
func (c nopConn) Close() error { return nil }

func TestServer_Presence(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.registry.Register("u2", "Bob", nopConn{id: "c2"})

	w, response := f.do(t, http.MethodGet, "/api/v1/presence/u2", nil, true)
	req.Equal(http.StatusOK, w.Code)
	req.Equal("ONLINE", response.ResponseResult.(map[string]any)["status"])

	_, response = f.do(t, http.MethodGet, "/api/v1/presence/u3", nil, true)
	req.Equal("OFFLINE", response.ResponseResult.(map[string]any)["status"])

	_, response = f.do(t, http.MethodGet, "/api/v1/presence", nil, true)
	req.Len(response.ResponseResult, 1)
}

func TestServer_Health_And_Metrics(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	req.Equal(http.StatusOK, w.Code)
	var report observability.HealthReport
	req.NoError(json.Unmarshal(w.Body.Bytes(), &report))
	req.Equal("ok", report.Status)

	r = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "fanous_live_http_requests_total")
}
