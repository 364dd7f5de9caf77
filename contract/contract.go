//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"fanous-live/domain"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is used for logging and supervision during worker lifecycle events.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is one live transport session, whatever library produced it.
// Send must not block: a slow or closed peer is reported as an error.
type Connection interface {
	ID() string
	Send(ctx context.Context, envelope domain.Envelope) error
	Close() error
}

// IRegistry tracks which users are online and through which connection.
type IRegistry interface {
	Register(userID, displayName string, conn Connection)
	Unregister(connectionID string) (domain.PresenceEntry, bool)
	Find(userID string) (domain.PresenceEntry, bool)
	IsOnline(userID string) bool
	Connection(userID string) (Connection, bool)
	Connections() []Connection
	Online() []domain.PresenceEntry
	Count() int
}

// ViewFunc builds the payload for one recipient.
type ViewFunc func(userID string) domain.Envelope

// IRouter delivers best-effort, at most once, to currently connected users.
type IRouter interface {
	Deliver(ctx context.Context, recipients []string, envelope domain.Envelope) domain.UserSet
	DeliverEach(ctx context.Context, recipients []string, viewFor ViewFunc) domain.UserSet
	Broadcast(ctx context.Context, envelope domain.Envelope) domain.UserSet
}

// ChatRelay is the part of the chat service a connection session needs.
type ChatRelay interface {
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.SendResult, error)
}

type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	GetUserByID(ctx context.Context, userID string) (domain.User, error)
}
