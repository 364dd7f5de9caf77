package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
)

// frame is one decoded server frame of either dialect. Legacy frames have
// no event name and are printed whole.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	raw   []byte
}

type Client struct {
	cfg Config
	out io.Writer
	ws  *websocket.Conn
}

// Dial opens a WebSocket on path, switching the configured http(s) scheme to ws(s).
func Dial(ctx context.Context, cfg Config, out io.Writer, path string) (*Client, error) {
	endpoint, err := socketURL(cfg.ServerURL, path)
	if err != nil {
		return nil, err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", endpoint, err)
	}
	return &Client{cfg: cfg, out: out, ws: ws}, nil
}

func socketURL(server, path string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", server, err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}

func (c *Client) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.ws.Close()
}

// Emit sends a named event.
func (c *Client) Emit(event string, data any) error {
	return c.ws.WriteJSON(map[string]any{"event": event, "data": data})
}

// Request sends a raw legacy frame.
func (c *Client) Request(request any) error {
	return c.ws.WriteJSON(request)
}

// Next blocks until a frame arrives or ctx is done.
func (c *Client) Next(ctx context.Context) (frame, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return frame{}, ctx.Err()
		}
		return frame{}, err
	}
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return frame{}, fmt.Errorf("unreadable frame: %w", err)
	}
	f.raw = raw
	return f, nil
}

// WaitFor prints frames until one of the events arrives.
func (c *Client) WaitFor(ctx context.Context, events ...string) (frame, error) {
	for {
		f, err := c.Next(ctx)
		if err != nil {
			return frame{}, err
		}
		c.Print(f)
		for _, event := range events {
			if f.Event == event {
				return f, nil
			}
		}
	}
}

func (c *Client) Print(f frame) {
	if f.Event == "" {
		fmt.Fprintln(c.out, indent(f.raw))
		return
	}
	name := fmt.Sprintf("[%s]", f.Event)
	if c.cfg.Colours {
		style := color.New(color.FgGreen)
		if f.Event == "error" {
			style = color.New(color.FgRed, color.OpBold)
		}
		name = style.Render(name)
	}
	data := string(f.Data)
	if c.cfg.DebugJSON {
		data = indent(f.Data)
	}
	fmt.Fprintf(c.out, "%s %s\n", name, data)
}

func indent(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// login exchanges credentials for a bearer token over the REST API.
func login(ctx context.Context, cfg Config, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(cfg.ServerURL, "/")+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var document struct {
		ResponseMessage string `json:"responseMessage"`
		ResponseResult  struct {
			Token string `json:"token"`
		} `json:"responseResult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&document); err != nil {
		return "", fmt.Errorf("unreadable response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login refused (%d): %s", resp.StatusCode, document.ResponseMessage)
	}
	return document.ResponseResult.Token, nil
}
