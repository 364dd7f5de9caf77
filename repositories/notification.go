//go:generate go run go.uber.org/mock/mockgen -source=notification.go -destination=../mocks/mock_notification_repository.go -package=mocks
package repositories

import (
	"context"
	"fanous-live/domain"
	"fanous-live/errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type INotificationRepository interface {
	Append(ctx context.Context, notification domain.Notification) error
	List(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID string, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string, notificationID uuid.UUID) error
	Clear(ctx context.Context, userID string) (int, error)
}

// NotificationRepository stores notifications under
// "notif:{user}:{ts19}:{uuid}". Deleting only flags the record.
type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

func notificationPrefix(userID string) string {
	return fmt.Sprintf("notif:%s:", userID)
}

func notificationKey(n domain.Notification) string {
	return fmt.Sprintf("%s%019d:%s", notificationPrefix(n.UserID), n.CreatedAt.UnixNano(), n.ID)
}

func (r NotificationRepository) Append(ctx context.Context, notification domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(notificationKey(notification)), encodeNotification(notification))
	})
}

// List returns the visible notifications of userID, newest first.
func (r NotificationRepository) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var notifications []domain.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := notificationPrefix(userID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append([]byte(prefixStr), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				n, err := decodeNotification(value)
				if err != nil {
					return err
				}
				if !n.Deleted {
					notifications = append(notifications, n)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return notifications, err
}

func (r NotificationRepository) MarkRead(ctx context.Context, userID string, notificationID uuid.UUID) error {
	return r.updateOne(ctx, userID, notificationID, func(n *domain.Notification) { n.Read = true })
}

func (r NotificationRepository) Delete(ctx context.Context, userID string, notificationID uuid.UUID) error {
	return r.updateOne(ctx, userID, notificationID, func(n *domain.Notification) { n.Deleted = true })
}

func (r NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return r.updateAll(ctx, userID, func(n *domain.Notification) bool {
		if n.Read {
			return false
		}
		n.Read = true
		return true
	})
}

// Clear hides every notification of userID.
func (r NotificationRepository) Clear(ctx context.Context, userID string) (int, error) {
	return r.updateAll(ctx, userID, func(n *domain.Notification) bool {
		if n.Deleted {
			return false
		}
		n.Deleted = true
		return true
	})
}

// updateOne applies mutate to a visible notification, ErrNotFound otherwise.
func (r NotificationRepository) updateOne(ctx context.Context, userID string, notificationID uuid.UUID, mutate func(*domain.Notification)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	suffix := ":" + notificationID.String()
	return r.db.Update(func(txn *badger.Txn) error {
		entries, err := r.load(txn, userID, func(key string) bool { return strings.HasSuffix(key, suffix) })
		if err != nil {
			return err
		}
		if len(entries) == 0 || entries[0].notification.Deleted {
			return fmt.Errorf("%w: notification %s", errors.ErrNotFound, notificationID)
		}
		n := entries[0].notification
		mutate(&n)
		return txn.Set(entries[0].key, encodeNotification(n))
	})
}

// updateAll applies mutate to every visible notification and counts the changed ones.
func (r NotificationRepository) updateAll(ctx context.Context, userID string, mutate func(*domain.Notification) bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	changed := 0
	err := r.db.Update(func(txn *badger.Txn) error {
		entries, err := r.load(txn, userID, func(string) bool { return true })
		if err != nil {
			return err
		}
		for _, e := range entries {
			n := e.notification
			if n.Deleted || !mutate(&n) {
				continue
			}
			if err := txn.Set(e.key, encodeNotification(n)); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	return changed, err
}

type notificationEntry struct {
	key          []byte
	notification domain.Notification
}

func (r NotificationRepository) load(txn *badger.Txn, userID string, keep func(key string) bool) ([]notificationEntry, error) {
	var entries []notificationEntry
	prefix := []byte(notificationPrefix(userID))
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
	defer it.Close()

	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		if !keep(string(item.Key())) {
			continue
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		n, err := decodeNotification(value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, notificationEntry{key: item.KeyCopy(nil), notification: n})
	}
	return entries, nil
}
