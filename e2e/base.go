package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseSuite struct {
	suite.Suite
	Config Config
}

type document struct {
	ResponseCode    int             `json:"responseCode"`
	ResponseMessage string          `json:"responseMessage"`
	ResponseResult  json.RawMessage `json:"responseResult"`
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("E2E_SERVER_URL is not set")
	}
}

// Step prints a header so each phase of a scenario stands out in the logs.
func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Call performs a JSON request against the REST API.
func (s *BaseSuite) Call(method, path, token string, body any) (int, document) {
	var payload bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, strings.TrimSuffix(s.Config.ServerURL, "/")+path, &payload)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var doc document
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&doc))
	s.T().Logf("HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		s.T().Logf("RESPONSE: %s", doc.ResponseResult)
	}
	return resp.StatusCode, doc
}

// Dial opens a WebSocket on path of the configured server.
func (s *BaseSuite) Dial(path string) *websocket.Conn {
	u, err := url.Parse(s.Config.ServerURL)
	s.Require().NoError(err)
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = path

	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to connect to "+u.String())
	s.T().Cleanup(func() { _ = ws.Close() })
	return ws
}

func (s *BaseSuite) Emit(ws *websocket.Conn, event string, data any) {
	s.Require().NoError(ws.WriteJSON(map[string]any{"event": event, "data": data}))
}

// Expect skips frames until the named event arrives.
func (s *BaseSuite) Expect(ws *websocket.Conn, event string) json.RawMessage {
	s.Require().NoError(ws.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		var f frame
		s.Require().NoError(ws.ReadJSON(&f))
		if s.Config.DebugJSON {
			s.T().Logf("FRAME %s: %s", f.Event, f.Data)
		}
		if f.Event == event {
			return f.Data
		}
	}
}
