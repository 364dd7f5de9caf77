// Package domain contains core concepts of the real-time service.
// This file defines chat messages and the per-user thread views.
// Messages are append-only: once stored only their read marker changes.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is a one-to-one chat message.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Body       string    `json:"body"`
	Lang       string    `json:"lang,omitempty"`
	Censored   []string  `json:"censored,omitempty"`
	SentAt     time.Time `json:"sentAt"`
	Read       bool      `json:"read"`
}

// ThreadView is a conversation seen from Owner's side.
// Two views of the same thread share messages and differ only in Unread.
type ThreadView struct {
	Owner    string    `json:"owner"`
	Peer     string    `json:"peer"`
	Messages []Message `json:"messages"`
	Unread   int       `json:"unread"`
}

func NewThreadView(owner, peer string, messages []Message) ThreadView {
	unread := 0
	for _, m := range messages {
		if m.ReceiverID == owner && !m.Read {
			unread++
		}
	}
	if messages == nil {
		messages = []Message{}
	}
	return ThreadView{Owner: owner, Peer: peer, Messages: messages, Unread: unread}
}

// PairKey identifies the conversation between two users regardless of direction.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}
