package internal

import (
	"fmt"
	"strings"
	"time"
)

// Config is read from the environment (a .env file is loaded first when present).
type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=8080"`
	AdminPort int    `env:"ADMIN_PORT,default=9090"`
	DebugPort int    `env:"DEBUG_PORT,default=8081"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=65536"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=64"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout     time.Duration `env:"PONG_TIMEOUT,default=60s"`
	RateBurst       int           `env:"RATE_LIMIT_BURST,default=20"`
	RateInterval    time.Duration `env:"RATE_LIMIT_INTERVAL,default=250ms"`
	MaxBodyLength   int           `env:"MAX_BODY_LENGTH,default=2000"`
	RequireToken    bool          `env:"REQUIRE_SOCKET_TOKEN,default=false"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`

	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) AdminAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.AdminPort)
}

// Origins splits the comma separated allow-list.
func (c Config) Origins() []string {
	return strings.Split(c.AllowedOrigins, ",")
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
