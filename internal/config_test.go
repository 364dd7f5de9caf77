package internal

import (
	"os"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("AUTH_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.Equal("0.0.0.0:8080", config.Address())
	req.Equal("0.0.0.0:9090", config.AdminAddress())
	req.Equal(24*time.Hour, config.AuthTokenDuration)
	req.Equal([]string{"https://a.example", "https://b.example"}, config.Origins())
	req.Nil(config.LimitMessages)
	req.Empty(config.BlugeFilepath)
	req.False(config.RequireToken)
}

func TestConfig_Missing_Required(t *testing.T) {
	t.Setenv("BADGER_FILEPATH", "unused")
	t.Setenv("AUTH_SECRET", "unused")
	require.NoError(t, os.Unsetenv("BADGER_FILEPATH"))
	require.NoError(t, os.Unsetenv("AUTH_SECRET"))

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	require.Error(t, err)
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("**")
	req.Error(err)

	_, err = CharacterRune("")
	req.Error(err)
}
