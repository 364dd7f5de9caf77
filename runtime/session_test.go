package runtime

import (
	"context"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/mocks"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type hubFixture struct {
	registry  *Registry
	chat      *mocks.MockChatRelay
	directory *mocks.MockUserDirectory
	hub       *Hub
}

func newHubFixture(t *testing.T) hubFixture {
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	f := hubFixture{
		registry:  registry,
		chat:      mocks.NewMockChatRelay(ctrl),
		directory: mocks.NewMockUserDirectory(ctrl),
	}
	f.hub = NewHub(slog.Default(), registry, NewRouter(slog.Default(), registry), f.chat, f.directory)
	return f
}

func (f hubFixture) knownUsers(users ...string) {
	for _, u := range users {
		f.directory.EXPECT().GetUserByID(gomock.Any(), u).
			Return(domain.User{ID: u, DisplayName: "name-" + u}, nil).AnyTimes()
	}
}

func TestSession_Starts_Connecting(t *testing.T) {
	f := newHubFixture(t)
	session := f.hub.Open(newFakeConn())
	require.Equal(t, Connecting, session.State())
	require.Empty(t, session.UserID())
}

func TestSession_Identify_Registers_And_Broadcasts_Online(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t)
	f.knownUsers("u1", "u2")
	watcherConn := newFakeConn()
	watcher := f.hub.Open(watcherConn)
	_, err := watcher.Identify(ctx, "u2", "")
	req.NoError(err)

	// When u1 identifies
	conn := newFakeConn()
	session := f.hub.Open(conn)
	entry, err := session.Identify(ctx, "u1", "")

	// Then u1 is registered with its directory name
	req.NoError(err)
	req.Equal(Identified, session.State())
	req.Equal("u1", entry.UserID)
	req.Equal("name-u1", entry.DisplayName)
	req.Equal(conn.ID(), entry.ConnectionID)
	req.True(f.registry.IsOnline("u1"))

	// And every connection heard about it
	online := domain.Envelope{
		Event: domain.EventPresenceChanged,
		Data:  domain.PresenceChanged{UserID: "u1", Status: domain.ONLINE},
	}
	req.Contains(watcherConn.Sent(), online)
	req.Contains(conn.Sent(), online)
}

func TestSession_Identify_Unknown_User(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	f.directory.EXPECT().GetUserByID(gomock.Any(), "ghost").Return(domain.User{}, errors.ErrUserNotFound)
	session := f.hub.Open(newFakeConn())

	_, err := session.Identify(context.Background(), "ghost", "")

	req.ErrorIs(err, errors.ErrUserNotFound)
	req.Equal(Connecting, session.State())
	req.Zero(f.registry.Count())

	_, err = session.Identify(context.Background(), "  ", "")
	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestSession_SendMessage_Before_Identify(t *testing.T) {
	f := newHubFixture(t)
	f.chat.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Times(0)
	session := f.hub.Open(newFakeConn())

	_, err := session.SendMessage(context.Background(), domain.SendMessageCommand{ReceiverID: "u2", Body: "hi"})

	require.ErrorIs(t, err, errors.ErrNotIdentified)
}

func TestSession_SendMessage_Uses_Identified_Sender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t)
	f.knownUsers("u1")
	session := f.hub.Open(newFakeConn())
	_, err := session.Identify(ctx, "u1", "")
	req.NoError(err)

	f.chat.EXPECT().
		SendMessage(gomock.Any(), domain.SendMessageCommand{SenderID: "u1", ReceiverID: "u2", Body: "hi"}).
		Return(domain.SendResult{Delivered: domain.NewUserSet("u1")}, nil).
		Times(1)

	_, err = session.SendMessage(ctx, domain.SendMessageCommand{ReceiverID: "u2", Body: "hi"})

	req.NoError(err)
	req.Equal(Active, session.State())
}

func TestSession_SendMessage_Spoofed_Sender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t)
	f.knownUsers("u1")
	f.chat.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Times(0)
	session := f.hub.Open(newFakeConn())
	_, err := session.Identify(ctx, "u1", "")
	req.NoError(err)

	_, err = session.SendMessage(ctx, domain.SendMessageCommand{SenderID: "u3", ReceiverID: "u2", Body: "hi"})

	req.ErrorIs(err, errors.ErrInvalidPayload)
	req.Equal(Identified, session.State())
}

func TestSession_SendMessage_Echoes_To_Origin_When_Undelivered(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t)
	f.knownUsers("u1")
	conn := newFakeConn()
	session := f.hub.Open(conn)
	_, err := session.Identify(ctx, "u1", "")
	req.NoError(err)
	result := domain.SendResult{
		Message:    domain.Message{SenderID: "u1", ReceiverID: "u2", Body: "hi"},
		SenderView: domain.ThreadView{Owner: "u1", Peer: "u2"},
		Delivered:  domain.NewUserSet(),
	}
	f.chat.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(result, nil)

	_, err = session.SendMessage(ctx, domain.SendMessageCommand{ReceiverID: "u2", Body: "hi"})

	req.NoError(err)
	sent := conn.Sent()
	last := sent[len(sent)-1]
	req.Equal(domain.EventMessage, last.Event)
	req.Equal(domain.ChatPayload{Message: result.Message, Thread: result.SenderView}, last.Data)
}

func TestSession_Close_Broadcasts_Offline_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t)
	f.knownUsers("u1", "u2")
	watcherConn := newFakeConn()
	_, err := f.hub.Open(watcherConn).Identify(ctx, "u2", "")
	req.NoError(err)
	conn := newFakeConn()
	session := f.hub.Open(conn)
	_, err = session.Identify(ctx, "u1", "")
	req.NoError(err)

	// When the connection closes twice
	req.NoError(session.Close(ctx))
	req.NoError(session.Close(ctx))

	// Then u1 is offline and announced once
	req.False(f.registry.IsOnline("u1"))
	req.Equal(Closed, session.State())
	req.True(conn.closed)
	offline := domain.Envelope{
		Event: domain.EventPresenceChanged,
		Data:  domain.PresenceChanged{UserID: "u1", Status: domain.OFFLINE},
	}
	count := 0
	for _, e := range watcherConn.Sent() {
		if e == offline {
			count++
		}
	}
	req.Equal(1, count)

	// And nothing works anymore
	_, err = session.Identify(ctx, "u1", "")
	req.ErrorIs(err, errors.ErrConnectionClosed)
}

func TestSession_Stale_Close_Keeps_Newer_Connection(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t)
	f.knownUsers("u1")
	first := f.hub.Open(newFakeConn())
	_, err := first.Identify(ctx, "u1", "")
	req.NoError(err)
	secondConn := newFakeConn()
	second := f.hub.Open(secondConn)
	_, err = second.Identify(ctx, "u1", "")
	req.NoError(err)

	// When the replaced connection closes
	req.NoError(first.Close(ctx))

	// Then u1 stays online on the newer connection without an OFFLINE event
	entry, ok := f.registry.Find("u1")
	req.True(ok)
	req.Equal(secondConn.ID(), entry.ConnectionID)
	for _, e := range secondConn.Sent() {
		req.NotEqual(domain.PresenceChanged{UserID: "u1", Status: domain.OFFLINE}, e.Data)
	}
}

func TestSession_Disconnect_Scenario(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t)
	f.knownUsers("u1", "u2")
	s1 := f.hub.Open(newFakeConn())
	s2 := f.hub.Open(newFakeConn())
	_, err := s1.Identify(ctx, "u1", "")
	req.NoError(err)
	_, err = s2.Identify(ctx, "u2", "")
	req.NoError(err)

	// When u2 disconnects
	req.NoError(s2.Close(ctx))

	// Then a delivery to u1 and u2 reaches u1 only
	delivered := NewRouter(slog.Default(), f.registry).Deliver(ctx, []string{"u1", "u2"}, domain.Envelope{Event: domain.EventNotification})
	req.Equal(domain.NewUserSet("u1"), delivered)
}

func TestSession_Reidentify_As_Another_User(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t)
	f.knownUsers("u1", "u2")
	conn := newFakeConn()
	session := f.hub.Open(conn)
	_, err := session.Identify(ctx, "u1", "")
	req.NoError(err)

	_, err = session.Identify(ctx, "u2", "Bob")

	req.NoError(err)
	req.False(f.registry.IsOnline("u1"))
	entry, ok := f.registry.Find("u2")
	req.True(ok)
	req.Equal("Bob", entry.DisplayName)
	req.Equal("u2", session.UserID())
	req.Contains(conn.Sent(), domain.Envelope{
		Event: domain.EventPresenceChanged,
		Data:  domain.PresenceChanged{UserID: "u1", Status: domain.OFFLINE},
	})
}
