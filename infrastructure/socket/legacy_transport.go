package socket

import (
	"context"
	"encoding/json"
	"fanous-live/auth"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/runtime"
	"fanous-live/services"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// LegacyTransport serves the request-type frames used by the older mobile
// clients. Every request carries its own token. Identify binds the connection
// in the shared registry, so pushes reach these clients too.
type LegacyTransport struct {
	log           *slog.Logger
	hub           *runtime.Hub
	issuer        *auth.TokenIssuer
	chat          services.IChatService
	notifications services.INotificationService
	upgrader      websocket.Upgrader
	cfg           Config
}

func NewLegacyTransport(
	log *slog.Logger,
	hub *runtime.Hub,
	issuer *auth.TokenIssuer,
	chat services.IChatService,
	notifications services.INotificationService,
	origins OriginPolicy,
	cfg Config,
) *LegacyTransport {
	return &LegacyTransport{
		log:           log,
		hub:           hub,
		issuer:        issuer,
		chat:          chat,
		notifications: notifications,
		upgrader:      newUpgrader(origins),
		cfg:           cfg,
	}
}

func (t *LegacyTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Debug("Upgrade refused", "origin", r.Header.Get("Origin"), "error", err)
		return
	}
	conn := newConn(ws, t.log, TransportLegacy, encodeLegacy, t.cfg)
	go conn.writePump()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := t.hub.Open(conn)
	conn.readLoop(func(raw []byte) {
		t.handle(ctx, session, conn, raw)
	})
	_ = session.Close(ctx)
}

func (t *LegacyTransport) handle(ctx context.Context, session *runtime.Session, conn *Conn, raw []byte) {
	if !conn.allow() {
		t.reply(ctx, session, domain.EventError, errorResponse(errors.ErrRateLimited))
		return
	}

	var req legacyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.reply(ctx, session, domain.EventError, errorResponse(fmt.Errorf("%w: malformed frame", errors.ErrInvalidPayload)))
		return
	}

	// A single frame may ask for several things at once.
	handled := false
	if req.RequestType == requestIdentify {
		handled = true
		t.identify(ctx, session, req.Token)
	}
	if req.RequestType == requestNotificationList {
		handled = true
		t.notificationList(ctx, session, req.Token)
	}
	if req.UserToken != "" {
		handled = true
		t.unreadCount(ctx, session, req.UserToken)
	}
	if req.Type == requestChatHistory {
		handled = true
		t.chatHistory(ctx, session, req)
	}
	if !handled {
		t.reply(ctx, session, domain.EventError, errorResponse(fmt.Errorf("%w: unknown request", errors.ErrInvalidPayload)))
		return
	}
	session.Touch()
}

func (t *LegacyTransport) identify(ctx context.Context, session *runtime.Session, token string) {
	userID, err := t.userFrom(token)
	if err != nil {
		t.reply(ctx, session, domain.EventIdentified, errorResponse(err))
		return
	}
	entry, err := session.Identify(ctx, userID, "")
	if err != nil {
		t.reply(ctx, session, domain.EventIdentified, t.failure(session, err))
		return
	}
	t.reply(ctx, session, domain.EventIdentified, okResponse("Identified", domain.IdentifiedPayload{
		UserID:       entry.UserID,
		DisplayName:  entry.DisplayName,
		ConnectionID: entry.ConnectionID,
	}))
}

func (t *LegacyTransport) notificationList(ctx context.Context, session *runtime.Session, token string) {
	userID, err := t.userFrom(token)
	if err != nil {
		t.reply(ctx, session, domain.EventNotificationList, errorResponse(err))
		return
	}
	list, err := t.notifications.List(ctx, userID)
	if err != nil {
		t.reply(ctx, session, domain.EventNotificationList, t.failure(session, err))
		return
	}
	t.reply(ctx, session, domain.EventNotificationList, okResponse("Notification list", list))
}

func (t *LegacyTransport) unreadCount(ctx context.Context, session *runtime.Session, token string) {
	userID, err := t.userFrom(token)
	if err != nil {
		t.reply(ctx, session, domain.EventUnreadCount, errorResponse(err))
		return
	}
	count, err := t.chat.UnreadCount(ctx, userID)
	if err != nil {
		t.reply(ctx, session, domain.EventUnreadCount, t.failure(session, err))
		return
	}
	t.reply(ctx, session, domain.EventUnreadCount, okResponse("Unread message count", domain.UnreadCountPayload{UnreadCount: count}))
}

// chatHistory marks the peer's messages read unless the client opts out.
func (t *LegacyTransport) chatHistory(ctx context.Context, session *runtime.Session, req legacyRequest) {
	userID, err := t.userFrom(req.Token)
	if err != nil {
		t.reply(ctx, session, domain.EventChatHistory, errorResponse(err))
		return
	}
	markRead := req.MarkRead == nil || *req.MarkRead
	view, err := t.chat.History(ctx, userID, req.ReceiverID, markRead)
	if err != nil {
		t.reply(ctx, session, domain.EventChatHistory, t.failure(session, err))
		return
	}
	t.reply(ctx, session, domain.EventChatHistory, okResponse("Chat history", view))
}

func (t *LegacyTransport) userFrom(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: token is required", errors.ErrUnauthorized)
	}
	claims, err := t.issuer.ValidateToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUnauthorized, err)
	}
	return claims.UserID, nil
}

func (t *LegacyTransport) failure(session *runtime.Session, err error) legacyResponse {
	if errors.HTTPStatus(err) >= http.StatusInternalServerError {
		t.log.Warn("Legacy request failed", "connection_id", session.ID(), "error", err)
	}
	return errorResponse(err)
}

func (t *LegacyTransport) reply(ctx context.Context, session *runtime.Session, event domain.EventName, response legacyResponse) {
	if err := session.Reply(ctx, domain.Envelope{Event: event, Data: response}); err != nil {
		t.log.Debug("Legacy reply dropped", "connection_id", session.ID(), "error", err)
	}
}
