package server

import (
	"fanous-live/auth"
	"fanous-live/domain"
	"fanous-live/errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

type sendMessageResponse struct {
	Message   domain.Message    `json:"message"`
	Thread    domain.ThreadView `json:"chatHistory"`
	Delivered bool              `json:"delivered"`
}

type createNotificationResponse struct {
	Notification domain.Notification `json:"notification"`
	Delivered    bool                `json:"delivered"`
}

type countResponse struct {
	Count int `json:"count"`
}

type presenceResponse struct {
	UserID string                `json:"userId"`
	Status domain.PresenceStatus `json:"status"`
	Entry  *domain.PresenceEntry `json:"entry,omitempty"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var input registerRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	result, err := s.deps.Auth.Register(r.Context(), input.Email, input.Password, input.DisplayName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, "User registered", result)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	result, err := s.deps.Auth.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, "Login successful", result)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	list, err := s.deps.Notifications.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, "Notification list", list)
}

// createNotification stores and pushes a notification to targetUserId.
func (s *Server) createNotification(w http.ResponseWriter, r *http.Request) {
	var cmd domain.NotifyCommand
	if !decodeJSON(w, r, &cmd) {
		return
	}
	notification, delivered, err := s.deps.Notifications.Notify(r.Context(), cmd)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, "Notification created", createNotificationResponse{
		Notification: notification,
		Delivered:    delivered,
	})
}

func (s *Server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	count, err := s.deps.Notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, "Notifications marked read", countResponse{Count: count})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := notificationID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Notifications.MarkRead(r.Context(), userID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, "Notification marked read", nil)
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := notificationID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Notifications.Delete(r.Context(), userID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, "Notification deleted", nil)
}

func (s *Server) clearNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	count, err := s.deps.Notifications.Clear(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, "Notifications cleared", countResponse{Count: count})
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	count, err := s.deps.Chat.UnreadCount(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, "Unread message count", domain.UnreadCountPayload{UnreadCount: count})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	markRead, _ := strconv.ParseBool(r.URL.Query().Get("markRead"))
	view, err := s.deps.Chat.History(r.Context(), userID, mux.Vars(r)["peerId"], markRead)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, "Chat history", view)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, fmt.Errorf("%w: limit must be a positive number", errors.ErrInvalidPayload))
			return
		}
		limit = parsed
	}
	hits, err := s.deps.Chat.Search(r.Context(), userID, mux.Vars(r)["peerId"], r.URL.Query().Get("q"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, "Search results", hits)
}

// sendMessage relays a message on behalf of the token owner.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var input sendMessageRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	result, err := s.deps.Chat.SendMessage(r.Context(), domain.SendMessageCommand{
		SenderID:   userID,
		ReceiverID: mux.Vars(r)["peerId"],
		Body:       input.Body,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, "Message sent", sendMessageResponse{
		Message:   result.Message,
		Thread:    result.SenderView,
		Delivered: result.Delivered.Has(result.Message.ReceiverID),
	})
}

func (s *Server) online(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, http.StatusOK, "Online users", s.deps.Registry.Online())
}

func (s *Server) presence(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	response := presenceResponse{UserID: userID, Status: domain.OFFLINE}
	if entry, ok := s.deps.Registry.Find(userID); ok {
		response.Status = domain.ONLINE
		response.Entry = &entry
	}
	writeResult(w, http.StatusOK, "Presence", response)
}

func notificationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, fmt.Errorf("%w: invalid notification id", errors.ErrInvalidPayload))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.HTTPStatus(err) >= http.StatusInternalServerError {
		s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, err)
}
