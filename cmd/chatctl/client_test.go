package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeServer acks identify and echoes sendMessage as a message event.
func fakeServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/socket", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			var in struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := ws.ReadJSON(&in); err != nil {
				return
			}
			switch in.Event {
			case "identify":
				_ = ws.WriteJSON(map[string]any{"event": "identified", "data": in.Data})
			case "sendMessage":
				_ = ws.WriteJSON(map[string]any{"event": "message", "data": in.Data})
			}
		}
	})
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"responseCode":    200,
			"responseMessage": "Login successful",
			"responseResult":  map[string]string{"token": "abc"},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSocketURL(t *testing.T) {
	req := require.New(t)

	u, err := socketURL("http://localhost:8080", "/socket")
	req.NoError(err)
	req.Equal("ws://localhost:8080/socket", u)

	u, err = socketURL("https://live.example/", "/ws")
	req.NoError(err)
	req.Equal("wss://live.example/ws", u)
}

func TestSend_Prints_Echo(t *testing.T) {
	req := require.New(t)
	// Given a server that echoes messages
	server := fakeServer(t)
	var out bytes.Buffer
	cmd := newRootCmd(Config{ServerURL: server.URL}, &out)

	// When a message is sent
	cmd.SetArgs([]string{"send", "u1", "u2", "hello"})
	err := cmd.Execute()

	// Then the identify ack and the echo are printed
	req.NoError(err)
	req.Contains(out.String(), "[identified]")
	req.Contains(out.String(), "[message]")
	req.Contains(out.String(), "hello")
}

func TestLogin_Prints_Token(t *testing.T) {
	req := require.New(t)
	server := fakeServer(t)
	var out bytes.Buffer
	cmd := newRootCmd(Config{ServerURL: server.URL}, &out)

	cmd.SetArgs([]string{"login", "--email", "a@b.c", "--password", "secret"})
	err := cmd.Execute()

	req.NoError(err)
	req.Equal("abc\n", out.String())
}

func TestNotifications_Requires_Token(t *testing.T) {
	cmd := newRootCmd(Config{ServerURL: "http://localhost:1"}, &bytes.Buffer{})
	cmd.SetArgs([]string{"notifications"})

	require.Error(t, cmd.Execute())
}
