package repositories

import (
	"context"
	"fanous-live/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewUserRepository(openTestDB(t))

	created, err := repository.CreateUser(ctx, " Alice@Example.com ", "Alice", "$argon2id$hash")
	req.NoError(err)
	req.NotEmpty(created.ID)
	req.Equal("alice@example.com", created.Email)
	req.Equal([]string{"user"}, created.Roles)

	byEmail, err := repository.GetUserByEmail(ctx, "ALICE@example.com")
	req.NoError(err)
	req.Equal(created, byEmail)

	byID, err := repository.GetUserByID(ctx, created.ID)
	req.NoError(err)
	req.Equal(created, byID)

	exists, err := repository.Exists(ctx, created.ID)
	req.NoError(err)
	req.True(exists)
}

func TestUserRepository_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.CreateUser(ctx, "bob@example.com", "Bob", "hash")
	req.NoError(err)

	_, err = repository.CreateUser(ctx, "bob@example.com", "Bobby", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.GetUserByID(ctx, "missing")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.GetUserByEmail(ctx, "missing@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)

	exists, err := repository.Exists(ctx, "missing")
	req.NoError(err)
	req.False(exists)
}
