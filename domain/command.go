package domain

import "time"

// SendMessageCommand is the input of the chat relay.
type SendMessageCommand struct {
	SenderID   string `json:"senderId" validate:"required"`
	ReceiverID string `json:"receiverId" validate:"required"`
	Body       string `json:"body" validate:"required"`
}

// SendResult is returned once the message is persisted.
// Delivered lists the users a view was handed to; anybody missing was offline
// or its transport failed.
type SendResult struct {
	Message      Message    `json:"message"`
	ReceiverView ThreadView `json:"receiverView"`
	SenderView   ThreadView `json:"senderView"`
	Delivered    UserSet    `json:"-"`
}

// ViewFor selects the thread view matching recipient.
func (r SendResult) ViewFor(recipient string) ThreadView {
	if recipient == r.Message.ReceiverID {
		return r.ReceiverView
	}
	return r.SenderView
}

type NotifyCommand struct {
	TargetUserID string `json:"targetUserId" validate:"required"`
	Title        string `json:"title" validate:"required,max=200"`
	Body         string `json:"body" validate:"max=4000"`
}

// NotificationEvent is the fire-and-forget payload pushed to a user.
type NotificationEvent struct {
	TargetUserID string    `json:"targetUserId"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"createdAt"`
}
