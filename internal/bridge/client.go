package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sam/internal/chat"
	"sam/internal/logging"
	"sam/internal/services"
)

// ErrClosed is returned for requests issued after the connection ended.
var ErrClosed = errors.New("bridge connection closed")

// Options configures a Client.
type Options struct {
	URL            string
	Token          string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Client is one websocket session with the chat bridge.
type Client struct {
	url     string
	token   string
	timeout time.Duration
	logger  *slog.Logger
	dialer  *websocket.Dialer

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan Frame
	closed  bool
}

// NewClient prepares a client. Call Run to connect.
func NewClient(opts Options) *Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:     strings.TrimSpace(opts.URL),
		token:   strings.TrimSpace(opts.Token),
		timeout: timeout,
		logger:  logging.NewComponentLogger(opts.Logger, "bridge"),
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
	}
}

// Dial opens the websocket using the configured URL and token.
func Dial(ctx context.Context, dialer *websocket.Dialer, url, token string) (*websocket.Conn, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, services.Wrap(services.ErrTransport, "bridge", "dial", fmt.Sprintf("%s (status %d)", url, resp.StatusCode), err)
		}
		return nil, services.Wrap(services.ErrTransport, "bridge", "dial", url, err)
	}
	return conn, nil
}

// Run connects, delivers inbound messages to handler in order, and returns
// when the connection drops or ctx is cancelled. A nil error means ctx ended.
func (c *Client) Run(ctx context.Context, handler chat.Handler) error {
	if c.url == "" {
		return services.Wrap(services.ErrTransport, "bridge", "run", "bridge url not configured", nil)
	}
	conn, err := Dial(ctx, c.dialer, c.url, c.token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.pending = make(map[string]chan Frame)
	c.closed = false
	c.mu.Unlock()

	c.logger.Info("bridge connected",
		logging.String("url", c.url),
		logging.String(logging.FieldEventType, "bridge_connected"),
	)

	inbox := make(chan chat.Message)
	deliver := make(chan chat.Message)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pump(inbox, deliver)
	}()
	go func() {
		defer wg.Done()
		for msg := range deliver {
			handler.Handle(ctx, msg)
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = conn.Close()
	})
	defer stop()

	readErr := c.readLoop(conn, inbox)
	close(inbox)
	c.shutdown()
	wg.Wait()
	_ = conn.Close()

	if ctx.Err() != nil {
		return nil
	}
	if websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return services.Wrap(services.ErrTransport, "bridge", "read", "bridge closed the connection", readErr)
	}
	return services.Wrap(services.ErrTransport, "bridge", "read", "", readErr)
}

func (c *Client) readLoop(conn *websocket.Conn, inbox chan<- chat.Message) error {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		switch frame.Event {
		case EventMessage:
			if frame.Message == nil {
				c.logger.Debug("message frame without payload ignored")
				continue
			}
			inbox <- &message{client: c, frame: *frame.Message}
		case EventMedia, EventAck:
			c.resolve(frame)
		default:
			c.logger.Debug("unknown bridge frame ignored", logging.String("event", frame.Event))
		}
	}
}

// pump forwards messages from in to out without ever blocking the sender,
// buffering as needed. It closes out once in is closed and drained.
func pump(in <-chan chat.Message, out chan<- chat.Message) {
	defer close(out)
	var queue []chat.Message
	for in != nil || len(queue) > 0 {
		var (
			send chan<- chat.Message
			next chat.Message
		)
		if len(queue) > 0 {
			send, next = out, queue[0]
		}
		select {
		case msg, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, msg)
		case send <- next:
			queue[0] = nil
			queue = queue[1:]
		}
	}
}

func (c *Client) resolve(frame Frame) {
	c.mu.Lock()
	ch, ok := c.pending[frame.RequestID]
	if ok {
		delete(c.pending, frame.RequestID)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("response for unknown request ignored",
			logging.String(logging.FieldCorrelationID, frame.RequestID),
			logging.String("event", frame.Event),
		)
		return
	}
	ch <- frame
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// request sends frame and waits for the correlated response.
func (c *Client) request(ctx context.Context, frame Frame) (Frame, error) {
	frame.RequestID = uuid.NewString()
	ch := make(chan Frame, 1)

	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return Frame{}, services.Wrap(services.ErrTransport, "bridge", frame.Action, "", ErrClosed)
	}
	c.pending[frame.RequestID] = ch
	conn := c.conn
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, frame.RequestID)
		c.mu.Unlock()
	}

	logger := logging.WithContext(services.WithRequestID(ctx, frame.RequestID), c.logger)
	c.writeMu.Lock()
	err := conn.WriteJSON(frame)
	c.writeMu.Unlock()
	if err != nil {
		forget()
		return Frame{}, services.Wrap(services.ErrTransport, "bridge", frame.Action, "write frame", err)
	}
	logger.Debug("bridge request sent", logging.String("action", frame.Action))

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case resp, ok := <-ch:
		if !ok {
			return Frame{}, services.Wrap(services.ErrTransport, "bridge", frame.Action, "", ErrClosed)
		}
		if resp.Error != "" {
			return resp, services.Wrap(services.ErrTransport, "bridge", frame.Action, "bridge rejected request", errors.New(resp.Error))
		}
		return resp, nil
	case <-timer.C:
		forget()
		return Frame{}, services.Wrap(services.ErrTransport, "bridge", frame.Action, fmt.Sprintf("no response after %s", c.timeout), context.DeadlineExceeded)
	case <-ctx.Done():
		forget()
		return Frame{}, ctx.Err()
	}
}

func (c *Client) reply(ctx context.Context, to, messageID, text string) error {
	_, err := c.request(ctx, Frame{Action: ActionReply, To: to, MessageID: messageID, Text: text})
	return err
}

func (c *Client) sendFile(ctx context.Context, to, messageID, path, caption string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Wrap(services.ErrIO, "bridge", "read file", path, err)
	}
	media := &chat.Media{MimeType: mimetype.Detect(data).String(), Data: data, Filename: filepath.Base(path)}
	_, err = c.request(ctx, Frame{
		Action:    ActionSendFile,
		To:        to,
		MessageID: messageID,
		Caption:   caption,
		Media:     encodeMedia(media),
	})
	return err
}

func (c *Client) downloadMedia(ctx context.Context, messageID string) (*chat.Media, error) {
	resp, err := c.request(ctx, Frame{Action: ActionDownloadMedia, MessageID: messageID})
	if err != nil {
		return nil, err
	}
	media, err := resp.Media.decode()
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "bridge", ActionDownloadMedia, "", err)
	}
	return media, nil
}

type message struct {
	client *Client
	frame  MessageFrame
}

var _ chat.Message = (*message)(nil)

func (m *message) ID() string     { return m.frame.ID }
func (m *message) From() string   { return m.frame.From }
func (m *message) Body() string   { return m.frame.Body }
func (m *message) Type() string   { return m.frame.Type }
func (m *message) HasMedia() bool { return m.frame.HasMedia }

func (m *message) DownloadMedia(ctx context.Context) (*chat.Media, error) {
	if !m.frame.HasMedia {
		return nil, services.Wrap(services.ErrNotFound, "bridge", ActionDownloadMedia, "message has no media", nil)
	}
	return m.client.downloadMedia(ctx, m.frame.ID)
}

func (m *message) Reply(ctx context.Context, text string) error {
	return m.client.reply(ctx, m.frame.From, m.frame.ID, text)
}

func (m *message) ReplyFile(ctx context.Context, path, caption string) error {
	return m.client.sendFile(ctx, m.frame.From, m.frame.ID, path, caption)
}
