package domain

// EventName is the transport-agnostic name of an outbound event.
// Each transport adapter frames an Envelope its own way.
type EventName string

const (
	EventIdentified       EventName = "identified"
	EventMessage          EventName = "message"
	EventNotification     EventName = "notification"
	EventPresenceChanged  EventName = "presenceChanged"
	EventError            EventName = "error"
	EventNotificationList EventName = "notificationList"
	EventUnreadCount      EventName = "unreadCount"
	EventChatHistory      EventName = "chatHistory"
)

type Envelope struct {
	Event EventName
	Data  any
}

// ErrorPayload is only ever sent back to the originating connection.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// ChatPayload carries a new message and the recipient's own view of the thread.
type ChatPayload struct {
	Message Message    `json:"message"`
	Thread  ThreadView `json:"chatHistory"`
}

type IdentifiedPayload struct {
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName"`
	ConnectionID string `json:"connectionId"`
}

type UnreadCountPayload struct {
	UnreadCount int `json:"unreadCount"`
}
