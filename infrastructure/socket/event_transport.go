package socket

import (
	"context"
	"encoding/json"
	"fanous-live/auth"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/runtime"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

const (
	TransportEvent  = "event"
	TransportLegacy = "legacy"
)

// EventTransport serves the named-event dialect.
type EventTransport struct {
	log      *slog.Logger
	hub      *runtime.Hub
	issuer   *auth.TokenIssuer
	upgrader websocket.Upgrader
	cfg      Config
}

// NewEventTransport builds the handler. When issuer is set, an identify
// carrying a token must match the token's user.
func NewEventTransport(log *slog.Logger, hub *runtime.Hub, issuer *auth.TokenIssuer, origins OriginPolicy, cfg Config) *EventTransport {
	return &EventTransport{
		log:      log,
		hub:      hub,
		issuer:   issuer,
		upgrader: newUpgrader(origins),
		cfg:      cfg,
	}
}

func newUpgrader(origins OriginPolicy) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.Check,
	}
}

func (t *EventTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Debug("Upgrade refused", "origin", r.Header.Get("Origin"), "error", err)
		return
	}
	conn := newConn(ws, t.log, TransportEvent, encodeEvent, t.cfg)
	go conn.writePump()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := t.hub.Open(conn)
	conn.log.Debug("Connection opened", "remote_addr", r.RemoteAddr)
	conn.readLoop(func(raw []byte) {
		t.handle(ctx, session, conn, raw)
	})
	_ = session.Close(ctx)
}

func (t *EventTransport) handle(ctx context.Context, session *runtime.Session, conn *Conn, raw []byte) {
	if !conn.allow() {
		session.ReplyError(ctx, errors.ErrRateLimited)
		return
	}

	var frame eventFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		session.ReplyError(ctx, fmt.Errorf("%w: malformed frame", errors.ErrInvalidPayload))
		return
	}

	switch frame.Event {
	case eventIdentify, eventOnlineUser:
		var data identifyData
		if err := decodeData(frame.Data, &data); err != nil {
			session.ReplyError(ctx, err)
			return
		}
		t.identify(ctx, session, data)
	case eventSendMessage, eventOneToOneChat:
		var data sendMessageData
		if err := decodeData(frame.Data, &data); err != nil {
			session.ReplyError(ctx, err)
			return
		}
		if _, err := session.SendMessage(ctx, data.command()); err != nil {
			t.fail(ctx, session, err)
		}
	default:
		session.ReplyError(ctx, fmt.Errorf("%w: unknown event %q", errors.ErrInvalidPayload, frame.Event))
	}
}

func (t *EventTransport) identify(ctx context.Context, session *runtime.Session, data identifyData) {
	userID, err := t.identity(data)
	if err != nil {
		session.ReplyError(ctx, err)
		return
	}
	entry, err := session.Identify(ctx, userID, data.DisplayName)
	if err != nil {
		t.fail(ctx, session, err)
		return
	}
	_ = session.Reply(ctx, domain.Envelope{
		Event: domain.EventIdentified,
		Data: domain.IdentifiedPayload{
			UserID:       entry.UserID,
			DisplayName:  entry.DisplayName,
			ConnectionID: entry.ConnectionID,
		},
	})
}

func (t *EventTransport) identity(data identifyData) (string, error) {
	if data.Token == "" || t.issuer == nil {
		if t.cfg.RequireToken {
			return "", fmt.Errorf("%w: token is required", errors.ErrUnauthorized)
		}
		return data.UserID, nil
	}
	claims, err := t.issuer.ValidateToken(data.Token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUnauthorized, err)
	}
	if data.UserID != "" && data.UserID != claims.UserID {
		return "", fmt.Errorf("%w: token does not belong to %s", errors.ErrUnauthorized, data.UserID)
	}
	return claims.UserID, nil
}

func (t *EventTransport) fail(ctx context.Context, session *runtime.Session, err error) {
	if errors.HTTPStatus(err) >= http.StatusInternalServerError {
		t.log.Warn("Event failed", "connection_id", session.ID(), "user_id", session.UserID(), "error", err)
	}
	session.ReplyError(ctx, err)
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: data is required", errors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
