//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"fanous-live/domain"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	Append(ctx context.Context, message domain.Message) error
	ThreadFor(ctx context.Context, userID, peerID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, userID, peerID string) (int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

// NewMessageRepository keeps at most limitMessages per thread read, nil means everything.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// Keys:
//
//	chat:{a}|{b}:{ts19}:{uuid}     -> message, a < b
//	inbox:{receiver}:{ts19}:{uuid} -> chat key, present while unread
//
// The 19-digit zero padded timestamp keeps lexicographical order chronological,
// the UUID separates messages sharing the same nanosecond.
func threadPrefix(userID, peerID string) string {
	return fmt.Sprintf("chat:%s:", domain.PairKey(userID, peerID))
}

func messageKey(message domain.Message) string {
	return fmt.Sprintf("%s%019d:%s",
		threadPrefix(message.SenderID, message.ReceiverID),
		message.SentAt.UnixNano(),
		message.ID,
	)
}

func inboxPrefix(userID string) string {
	return fmt.Sprintf("inbox:%s:", userID)
}

func inboxKey(message domain.Message) string {
	return fmt.Sprintf("%s%019d:%s", inboxPrefix(message.ReceiverID), message.SentAt.UnixNano(), message.ID)
}

// Append stores the message and, when unread, indexes it in the receiver inbox.
func (m MessageRepository) Append(ctx context.Context, message domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := messageKey(message)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), encodeMessage(message)); err != nil {
			return err
		}
		if message.Read {
			return nil
		}
		return txn.Set([]byte(inboxKey(message)), []byte(key))
	})
}

// ThreadFor returns the conversation between userID and peerID in chronological order.
// Only the most recent limitMessages are read.
func (m MessageRepository) ThreadFor(ctx context.Context, userID, peerID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := threadPrefix(userID, peerID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Newest first: seek past the highest possible timestamp
		seekKey := append([]byte(prefixStr), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := decodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkRead flags every message sent by peerID to userID as read.
// It returns how many messages changed.
func (m MessageRepository) MarkRead(ctx context.Context, userID, peerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	thread := threadPrefix(userID, peerID)
	marked := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		inboxKeys, chatKeys, err := m.unreadFrom(txn, userID, thread)
		if err != nil {
			return err
		}
		for i, chatKey := range chatKeys {
			item, err := txn.Get(chatKey)
			if err != nil && err != badger.ErrKeyNotFound {
				return err
			}
			if err == nil {
				value, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				message, err := decodeMessage(value)
				if err != nil {
					return err
				}
				message.Read = true
				if err := txn.Set(chatKey, encodeMessage(message)); err != nil {
					return err
				}
				marked++
			}
			if err := txn.Delete(inboxKeys[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return marked, err
}

// unreadFrom lists the inbox entries of userID pointing into thread.
func (m MessageRepository) unreadFrom(txn *badger.Txn, userID, thread string) ([][]byte, [][]byte, error) {
	var inboxKeys, chatKeys [][]byte
	prefix := []byte(inboxPrefix(userID))
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
	defer it.Close()

	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		chatKey, err := item.ValueCopy(nil)
		if err != nil {
			return nil, nil, err
		}
		if !strings.HasPrefix(string(chatKey), thread) {
			continue
		}
		inboxKeys = append(inboxKeys, item.KeyCopy(nil))
		chatKeys = append(chatKeys, chatKey)
	}
	return inboxKeys, chatKeys, nil
}

// UnreadCount counts the unread messages received by userID across all threads.
func (m MessageRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(inboxPrefix(userID))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
