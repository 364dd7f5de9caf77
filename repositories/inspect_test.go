package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDump_Describes_Stored_Records(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openTestDB(t)
	messages := NewMessageRepository(db, slog.Default(), nil)
	req.NoError(messages.Append(ctx, newMessage("alice", "bob", "hello", time.Now().UTC())))

	rows, err := Dump(db, "", 0)
	req.NoError(err)

	// One chat record and its inbox entry
	req.Len(rows, 2)
	req.Equal("chat", rows[0].Kind)
	req.Contains(rows[0].Summary, `alice -> bob read=false`)
	req.Equal("inbox", rows[1].Kind)
	req.Contains(rows[1].Summary, "chat:alice|bob:")

	limited, err := Dump(db, "chat:", 1)
	req.NoError(err)
	req.Len(limited, 1)
}

func TestDescribe_Unknown_Prefix(t *testing.T) {
	row := Describe([]byte("other:key"), []byte{1, 2, 3})
	require.Equal(t, "other", row.Kind)
	require.Equal(t, "3 bytes", row.Summary)
}
