package domain

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"isRead"`
	Deleted   bool      `json:"-"`
}

func (n Notification) Event() NotificationEvent {
	return NotificationEvent{
		TargetUserID: n.UserID,
		Title:        n.Title,
		Body:         n.Body,
		CreatedAt:    n.CreatedAt,
	}
}

type NotificationList struct {
	Data        []Notification `json:"data"`
	UnreadCount int            `json:"unReadCount"`
}

func NewNotificationList(items []Notification) NotificationList {
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	return NotificationList{Data: items, UnreadCount: unread}
}
