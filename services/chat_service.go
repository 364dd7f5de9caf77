//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fanous-live/contract"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/moderation"
	"fanous-live/observability"
	"fanous-live/repositories"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const defaultSearchLimit = 20

var validate = validator.New()

type IChatService interface {
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.SendResult, error)
	History(ctx context.Context, userID, peerID string, markRead bool) (domain.ThreadView, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	Search(ctx context.Context, userID, peerID, query string, limit int) ([]domain.Message, error)
}

// ChatService validates, persists, and relays one-to-one messages.
// Persistence decides success; live delivery is a side effect.
type ChatService struct {
	log           *slog.Logger
	router        contract.IRouter
	messages      repositories.IMessageRepository
	directory     contract.UserDirectory
	index         repositories.ISearchIndex
	moderator     *moderation.Moderator
	monitoring    *observability.MonitoringManager
	maxBodyLength int
	now           func() time.Time
}

func NewChatService(
	log *slog.Logger,
	router contract.IRouter,
	messages repositories.IMessageRepository,
	directory contract.UserDirectory,
	index repositories.ISearchIndex,
	moderator *moderation.Moderator,
	monitoring *observability.MonitoringManager,
	maxBodyLength int,
) *ChatService {
	return &ChatService{
		log:           log,
		router:        router,
		messages:      messages,
		directory:     directory,
		index:         index,
		moderator:     moderator,
		monitoring:    monitoring,
		maxBodyLength: maxBodyLength,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.SendResult, error) {
	cmd.SenderID = strings.TrimSpace(cmd.SenderID)
	cmd.ReceiverID = strings.TrimSpace(cmd.ReceiverID)
	cmd.Body = strings.TrimSpace(cmd.Body)

	// 1. Nothing is stored for an invalid command
	if err := validate.Struct(cmd); err != nil {
		return domain.SendResult{}, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if s.maxBodyLength > 0 && utf8.RuneCountInString(cmd.Body) > s.maxBodyLength {
		return domain.SendResult{}, fmt.Errorf("%w: body longer than %d characters", errors.ErrInvalidPayload, s.maxBodyLength)
	}
	if err := s.checkReceiver(ctx, cmd.ReceiverID); err != nil {
		return domain.SendResult{}, err
	}

	// 2. Moderation and language tag
	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   cmd.SenderID,
		ReceiverID: cmd.ReceiverID,
		Body:       cmd.Body,
		Lang:       moderation.DetectLanguage(cmd.Body),
		SentAt:     s.now(),
	}
	if s.moderator != nil {
		message.Body, message.Censored = s.moderator.Censor(cmd.Body)
	}

	// 3. Persist
	if err := s.messages.Append(ctx, message); err != nil {
		return domain.SendResult{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if s.monitoring != nil {
		s.monitoring.IncrMessagesSent()
	}

	// 4. One read, two perspectives. The message is stored from here on,
	// so a failed read only degrades the views to the new message.
	thread, err := s.messages.ThreadFor(ctx, message.ReceiverID, message.SenderID)
	if err != nil {
		s.log.Warn("Thread not loaded, sending the new message alone",
			"message_id", message.ID, "error", err)
		thread = []domain.Message{message}
	}
	result := domain.SendResult{
		Message:      message,
		ReceiverView: domain.NewThreadView(message.ReceiverID, message.SenderID, thread),
		SenderView:   domain.NewThreadView(message.SenderID, message.ReceiverID, thread),
	}

	// 5. Best-effort delivery
	result.Delivered = s.router.DeliverEach(ctx, []string{message.SenderID, message.ReceiverID},
		func(userID string) domain.Envelope {
			return domain.Envelope{
				Event: domain.EventMessage,
				Data:  domain.ChatPayload{Message: message, Thread: result.ViewFor(userID)},
			}
		})

	if s.index != nil {
		if err := s.index.Index(ctx, message); err != nil {
			s.log.Warn("Message not indexed", "message_id", message.ID, "error", err)
		}
	}

	s.log.Debug("Message relayed",
		"message_id", message.ID,
		"sender", message.SenderID,
		"receiver", message.ReceiverID,
		"delivered", result.Delivered.Slice(),
		"censored", len(message.Censored))
	return result, nil
}

func (s *ChatService) checkReceiver(ctx context.Context, receiverID string) error {
	if s.directory == nil {
		return nil
	}
	exists, err := s.directory.Exists(ctx, receiverID)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if !exists {
		return fmt.Errorf("%w: unknown receiver %s", errors.ErrInvalidPayload, receiverID)
	}
	return nil
}

// History returns the thread as seen by userID. With markRead, messages
// received from peerID are flagged read before the thread is loaded.
func (s *ChatService) History(ctx context.Context, userID, peerID string, markRead bool) (domain.ThreadView, error) {
	if userID == "" || peerID == "" {
		return domain.ThreadView{}, fmt.Errorf("%w: userId and peerId are required", errors.ErrInvalidPayload)
	}
	if markRead {
		marked, err := s.messages.MarkRead(ctx, userID, peerID)
		if err != nil {
			return domain.ThreadView{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
		}
		if marked > 0 {
			s.log.Debug("Messages marked read", "user_id", userID, "peer_id", peerID, "count", marked)
		}
	}
	thread, err := s.messages.ThreadFor(ctx, userID, peerID)
	if err != nil {
		return domain.ThreadView{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return domain.NewThreadView(userID, peerID, thread), nil
}

func (s *ChatService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: userId is required", errors.ErrInvalidPayload)
	}
	count, err := s.messages.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return count, nil
}

func (s *ChatService) Search(ctx context.Context, userID, peerID, query string, limit int) ([]domain.Message, error) {
	query = strings.TrimSpace(query)
	if userID == "" || peerID == "" || query == "" {
		return nil, fmt.Errorf("%w: userId, peerId and query are required", errors.ErrInvalidPayload)
	}
	if s.index == nil {
		return []domain.Message{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	hits, err := s.index.Search(ctx, userID, peerID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if hits == nil {
		hits = []domain.Message{}
	}
	return hits, nil
}
