//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"context"
	stderrors "errors"
	"fanous-live/domain"
	"fanous-live/errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, email, displayName, hashedPassword string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByID(ctx context.Context, userID string) (domain.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

// UserRepository keeps "user:{email}" -> user and "userid:{id}" -> email.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(email string) []byte {
	return []byte("user:" + normalizeEmail(email))
}

func userIDKey(userID string) []byte {
	return []byte("userid:" + userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser persists a new account and returns it with its generated ID.
func (u *UserRepository) CreateUser(ctx context.Context, email, displayName, hashedPassword string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		DisplayName:  displayName,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	err := u.db.Update(func(txn *badger.Txn) error {
		key := userKey(user.Email)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, encodeUser(user)); err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), []byte(user.Email))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, email)
		return err
	})
	return user, err
}

func (u *UserRepository) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(userID))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", errors.ErrUserNotFound, userID)
		}
		if err != nil {
			return err
		}
		email, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = getUser(txn, string(email))
		return err
	})
	return user, err
}

func (u *UserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := u.GetUserByID(ctx, userID)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func getUser(txn *badger.Txn, email string) (domain.User, error) {
	item, err := txn.Get(userKey(email))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, fmt.Errorf("%w: %s", errors.ErrUserNotFound, email)
	}
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err = item.Value(func(val []byte) error {
		user, err = decodeUser(val)
		return err
	})
	return user, err
}
