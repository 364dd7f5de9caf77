//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_search_index.go -package=mocks
package repositories

import (
	"context"
	"fanous-live/domain"
	"fmt"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

const (
	fieldID       = "_id"
	fieldBody     = "body"
	fieldThread   = "thread"
	fieldSender   = "sender"
	fieldReceiver = "receiver"
	fieldSentAt   = "sent_at"
)

type ISearchIndex interface {
	Index(ctx context.Context, message domain.Message) error
	Search(ctx context.Context, userID, peerID, query string, limit int) ([]domain.Message, error)
}

// SearchIndex is a full-text index of chat bodies, scoped per thread.
// Badger stays the source of truth, the index can be rebuilt from it.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

// Index adds or replaces the document of message.
func (s *SearchIndex) Index(ctx context.Context, message domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField(fieldBody, message.Body).StoreValue()).
		AddField(bluge.NewKeywordField(fieldThread, domain.PairKey(message.SenderID, message.ReceiverID))).
		AddField(bluge.NewKeywordField(fieldSender, message.SenderID).StoreValue()).
		AddField(bluge.NewKeywordField(fieldReceiver, message.ReceiverID).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldSentAt, message.SentAt).StoreValue().Sortable())

	return s.writer.Update(doc.ID(), doc)
}

// Search returns the best matches for query in the thread of userID and peerID.
// Returned messages carry the stored fields only, read markers are not indexed.
func (s *SearchIndex) Search(ctx context.Context, userID, peerID, query string, limit int) ([]domain.Message, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Closing search reader failed", "error", err)
		}
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField(fieldBody)).
		AddMust(bluge.NewTermQuery(domain.PairKey(userID, peerID)).SetField(fieldThread))
	request := bluge.NewTopNSearch(limit, q)

	dmi, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	match, err := dmi.Next()
	for err == nil && match != nil {
		var message domain.Message
		var visitErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldID:
				message.ID, visitErr = uuid.ParseBytes(value)
			case fieldBody:
				message.Body = string(value)
			case fieldSender:
				message.SenderID = string(value)
			case fieldReceiver:
				message.ReceiverID = string(value)
			case fieldSentAt:
				message.SentAt, visitErr = bluge.DecodeDateTime(value)
			}
			return visitErr == nil
		})
		if err != nil {
			return nil, err
		}
		if visitErr != nil {
			return nil, fmt.Errorf("decode search hit: %w", visitErr)
		}
		message.SentAt = message.SentAt.UTC()
		messages = append(messages, message)
		match, err = dmi.Next()
	}
	if err != nil {
		return nil, err
	}
	return messages, nil
}
