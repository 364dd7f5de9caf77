package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

func TestSearchIndex_Finds_Messages_Within_Thread(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	req.NoError(err)
	defer writer.Close()
	index := NewSearchIndex(writer, slog.Default())
	at := time.Now().UTC().Truncate(time.Second)

	bike := newMessage("alice", "bob", "is the red bicycle still for sale?", at)
	req.NoError(index.Index(ctx, bike))
	req.NoError(index.Index(ctx, newMessage("bob", "alice", "yes, come on saturday", at.Add(time.Minute))))
	req.NoError(index.Index(ctx, newMessage("alice", "clara", "selling another bicycle", at)))

	// When searching the alice/bob thread from bob's side
	hits, err := index.Search(ctx, "bob", "alice", "bicycle", 10)

	// Then only the matching message of that thread comes back
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(bike.ID, hits[0].ID)
	req.Equal(bike.Body, hits[0].Body)
	req.Equal("alice", hits[0].SenderID)
	req.True(bike.SentAt.Equal(hits[0].SentAt))
}

func TestSearchIndex_No_Match(t *testing.T) {
	req := require.New(t)
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	req.NoError(err)
	defer writer.Close()
	index := NewSearchIndex(writer, slog.Default())

	hits, err := index.Search(context.Background(), "alice", "bob", "anything", 10)

	req.NoError(err)
	req.Empty(hits)
}
