package runtime

import (
	"context"
	"fanous-live/contract"
	"fanous-live/domain"
	"fanous-live/errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	stderrors "errors"
)

type SessionState int

const (
	Connecting SessionState = iota
	Identified
	Active
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Identified:
		return "IDENTIFIED"
	case Active:
		return "ACTIVE"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Hub opens sessions bound to the shared registry and router.
// Both transports go through it, so a user identified on one transport
// is reachable from the other.
type Hub struct {
	log       *slog.Logger
	registry  contract.IRegistry
	router    contract.IRouter
	chat      contract.ChatRelay
	directory contract.UserDirectory
}

func NewHub(
	log *slog.Logger,
	registry contract.IRegistry,
	router contract.IRouter,
	chat contract.ChatRelay,
	directory contract.UserDirectory,
) *Hub {
	return &Hub{
		log:       log,
		registry:  registry,
		router:    router,
		chat:      chat,
		directory: directory,
	}
}

// Open starts tracking an accepted connection.
func (h *Hub) Open(conn contract.Connection) *Session {
	return &Session{
		hub:           h,
		conn:          conn,
		state:         Connecting,
		EstablishedAt: time.Now().UTC(),
	}
}

func (h *Hub) Registry() contract.IRegistry {
	return h.registry
}

// Session is the per-connection state machine:
// CONNECTING -> IDENTIFIED -> ACTIVE -> CLOSED.
// Events of one connection are expected to be handled by a single reader,
// Close may come from anywhere.
type Session struct {
	hub           *Hub
	conn          contract.Connection
	EstablishedAt time.Time

	mu     sync.Mutex
	state  SessionState
	userID string
}

func (s *Session) ID() string {
	return s.conn.ID()
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID returns the identified user, empty before identify.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Identify binds the connection to userID and announces it online.
// Identifying again replaces the previous binding.
func (s *Session) Identify(ctx context.Context, userID, displayName string) (domain.PresenceEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.PresenceEntry{}, fmt.Errorf("%w: userId is required", errors.ErrInvalidPayload)
	}
	if s.State() == Closed {
		return domain.PresenceEntry{}, errors.ErrConnectionClosed
	}

	user, err := s.hub.directory.GetUserByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return domain.PresenceEntry{}, err
		}
		return domain.PresenceEntry{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if displayName == "" {
		displayName = user.DisplayName
	}

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return domain.PresenceEntry{}, errors.ErrConnectionClosed
	}
	var previous domain.PresenceEntry
	replaced := false
	if s.userID != "" && s.userID != userID {
		previous, replaced = s.hub.registry.Unregister(s.conn.ID())
	}
	s.hub.registry.Register(userID, displayName, s.conn)
	s.userID = userID
	if s.state == Connecting {
		s.state = Identified
	}
	s.mu.Unlock()

	if replaced {
		s.broadcastPresence(ctx, previous.UserID, domain.OFFLINE)
	}
	s.broadcastPresence(ctx, userID, domain.ONLINE)

	entry, _ := s.hub.registry.Find(userID)
	s.hub.log.Info("Connection identified",
		"user_id", userID,
		"connection_id", s.conn.ID())
	return entry, nil
}

// SendMessage relays a chat message on behalf of the identified user.
// When no view could be delivered to the sender, it is written back to this
// connection so the origin always sees its own message.
func (s *Session) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.SendResult, error) {
	userID, err := s.requireIdentified()
	if err != nil {
		return domain.SendResult{}, err
	}
	if cmd.SenderID != "" && cmd.SenderID != userID {
		return domain.SendResult{}, fmt.Errorf("%w: senderId does not match the identified user", errors.ErrInvalidPayload)
	}
	cmd.SenderID = userID

	result, err := s.hub.chat.SendMessage(ctx, cmd)
	if err != nil {
		return domain.SendResult{}, err
	}
	s.Touch()

	if !result.Delivered.Has(userID) {
		envelope := domain.Envelope{
			Event: domain.EventMessage,
			Data:  domain.ChatPayload{Message: result.Message, Thread: result.SenderView},
		}
		if err := s.conn.Send(ctx, envelope); err != nil {
			s.hub.log.Warn("Echo to origin failed", "connection_id", s.conn.ID(), "error", err)
		}
	}
	return result, nil
}

// RequireIdentified returns the bound user or ErrNotIdentified.
func (s *Session) RequireIdentified() (string, error) {
	return s.requireIdentified()
}

func (s *Session) requireIdentified() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Closed:
		return "", errors.ErrConnectionClosed
	case Connecting:
		return "", errors.ErrNotIdentified
	default:
		return s.userID, nil
	}
}

// Touch records a successful operation on an identified connection.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Identified {
		s.state = Active
	}
}

// Reply sends an envelope to this connection only.
func (s *Session) Reply(ctx context.Context, envelope domain.Envelope) error {
	return s.conn.Send(ctx, envelope)
}

// ReplyError reports err to this connection only.
func (s *Session) ReplyError(ctx context.Context, err error) {
	envelope := domain.Envelope{
		Event: domain.EventError,
		Data: domain.ErrorPayload{
			Message: errors.PublicMessage(err),
			Code:    errors.HTTPStatus(err),
		},
	}
	if sendErr := s.conn.Send(ctx, envelope); sendErr != nil {
		s.hub.log.Debug("Error reply dropped", "connection_id", s.conn.ID(), "error", sendErr)
	}
}

// Close is idempotent. OFFLINE is only announced when this connection
// still owned the presence entry.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	s.state = Closed
	entry, removed := s.hub.registry.Unregister(s.conn.ID())
	s.mu.Unlock()

	if removed {
		s.broadcastPresence(ctx, entry.UserID, domain.OFFLINE)
		s.hub.log.Info("Connection closed",
			"user_id", entry.UserID,
			"connection_id", s.conn.ID(),
			"duration", time.Since(s.EstablishedAt).Round(time.Millisecond))
	}
	return s.conn.Close()
}

func (s *Session) broadcastPresence(ctx context.Context, userID string, status domain.PresenceStatus) {
	s.hub.router.Broadcast(ctx, domain.Envelope{
		Event: domain.EventPresenceChanged,
		Data:  domain.PresenceChanged{UserID: userID, Status: status},
	})
}
