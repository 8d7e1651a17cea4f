package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"sam/internal/chat"
	"sam/internal/services"
)

type fakeBridge struct {
	t        *testing.T
	token    string
	inbound  []Frame
	mu       sync.Mutex
	received []Frame
	reject   map[string]string
	silent   map[string]bool
}

func (b *fakeBridge) frames() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Frame(nil), b.received...)
}

func (b *fakeBridge) serve(w http.ResponseWriter, r *http.Request) {
	if b.token != "" && r.Header.Get("Authorization") != "Bearer "+b.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	for _, f := range b.inbound {
		if err := conn.WriteJSON(f); err != nil {
			return
		}
	}
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		b.mu.Lock()
		b.received = append(b.received, f)
		b.mu.Unlock()

		if b.silent[f.Action] {
			continue
		}
		resp := Frame{Event: EventAck, RequestID: f.RequestID, OK: true}
		if reason, ok := b.reject[f.Action]; ok {
			resp.OK = false
			resp.Error = reason
		} else if f.Action == ActionDownloadMedia {
			resp = Frame{
				Event:     EventMedia,
				RequestID: f.RequestID,
				Media:     &MediaFrame{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString([]byte("png-bytes"))},
			}
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClientRoundTrip(t *testing.T) {
	bridge := &fakeBridge{
		t:     t,
		token: "secret",
		inbound: []Frame{
			{Event: EventAck, RequestID: "stale"},
			{Event: EventMessage, Message: &MessageFrame{ID: "m1", From: "5511@c.us", Body: "caption", Type: chat.TypeImage, HasMedia: true}},
		},
	}
	server := httptest.NewServer(http.HandlerFunc(bridge.serve))
	defer server.Close()

	dir := t.TempDir()
	attachment := filepath.Join(dir, "mosaic.jpg")
	if err := os.WriteFile(attachment, []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	client := NewClient(Options{URL: wsURL(server), Token: "secret", RequestTimeout: 5 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type outcome struct {
		msg   chat.Message
		media *chat.Media
		err   error
	}
	results := make(chan outcome, 1)
	handler := chat.HandlerFunc(func(hctx context.Context, msg chat.Message) {
		media, err := msg.DownloadMedia(hctx)
		if err == nil {
			err = msg.Reply(hctx, "saved")
		}
		if err == nil {
			err = msg.ReplyFile(hctx, attachment, "here")
		}
		results <- outcome{msg: msg, media: media, err: err}
	})

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx, handler) }()

	var got outcome
	select {
	case got = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
	if got.err != nil {
		t.Fatalf("handler error: %v", got.err)
	}
	if got.msg.ID() != "m1" || got.msg.From() != "5511@c.us" || got.msg.Body() != "caption" || !got.msg.HasMedia() {
		t.Fatalf("unexpected message fields")
	}
	if got.media.MimeType != "image/png" || string(got.media.Data) != "png-bytes" {
		t.Fatalf("unexpected media %+v", got.media)
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	frames := bridge.frames()
	if len(frames) != 3 {
		t.Fatalf("expected 3 outbound frames, got %d", len(frames))
	}
	if frames[0].Action != ActionDownloadMedia || frames[0].MessageID != "m1" {
		t.Fatalf("unexpected first frame %+v", frames[0])
	}
	if frames[1].Action != ActionReply || frames[1].Text != "saved" || frames[1].To != "5511@c.us" {
		t.Fatalf("unexpected reply frame %+v", frames[1])
	}
	file := frames[2]
	if file.Action != ActionSendFile || file.Caption != "here" || file.Media == nil || file.Media.Filename != "mosaic.jpg" || file.Media.MimeType != "image/jpeg" {
		t.Fatalf("unexpected send_file frame %+v", file)
	}
	ids := map[string]bool{}
	for _, f := range frames {
		if f.RequestID == "" || ids[f.RequestID] {
			t.Fatalf("request ids must be unique and non-empty: %+v", frames)
		}
		ids[f.RequestID] = true
	}
}

func TestClientRejectedRequest(t *testing.T) {
	bridge := &fakeBridge{
		t:       t,
		inbound: []Frame{{Event: EventMessage, Message: &MessageFrame{ID: "m2", From: "1@c.us", Body: "hi"}}},
		reject:  map[string]string{ActionReply: "chat not found"},
	}
	server := httptest.NewServer(http.HandlerFunc(bridge.serve))
	defer server.Close()

	client := NewClient(Options{URL: wsURL(server), RequestTimeout: 5 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 1)
	handler := chat.HandlerFunc(func(hctx context.Context, msg chat.Message) {
		errs <- msg.Reply(hctx, "hello")
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx, handler)
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, services.ErrTransport) || !strings.Contains(err.Error(), "chat not found") {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
	cancel()
	<-done
}

func TestClientRequestTimeout(t *testing.T) {
	bridge := &fakeBridge{
		t:       t,
		inbound: []Frame{{Event: EventMessage, Message: &MessageFrame{ID: "m3", From: "1@c.us", Body: "hi"}}},
		silent:  map[string]bool{ActionReply: true},
	}
	server := httptest.NewServer(http.HandlerFunc(bridge.serve))
	defer server.Close()

	client := NewClient(Options{URL: wsURL(server), RequestTimeout: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 1)
	handler := chat.HandlerFunc(func(hctx context.Context, msg chat.Message) {
		errs <- msg.Reply(hctx, "hello")
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx, handler)
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected timeout, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
	cancel()
	<-done
}

func TestClientDialUnauthorized(t *testing.T) {
	bridge := &fakeBridge{t: t, token: "right"}
	server := httptest.NewServer(http.HandlerFunc(bridge.serve))
	defer server.Close()

	client := NewClient(Options{URL: wsURL(server), Token: "wrong"})
	err := client.Run(context.Background(), chat.HandlerFunc(func(context.Context, chat.Message) {}))
	if !errors.Is(err, services.ErrTransport) || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected transport error with status, got %v", err)
	}
}

func TestClientRunRequiresURL(t *testing.T) {
	client := NewClient(Options{})
	if err := client.Run(context.Background(), nil); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestClientServerClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart"))
		_ = conn.Close()
	}))
	defer server.Close()

	client := NewClient(Options{URL: wsURL(server)})
	err := client.Run(context.Background(), chat.HandlerFunc(func(context.Context, chat.Message) {}))
	if err == nil || !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error after server close, got %v", err)
	}
}

func TestPumpPreservesOrder(t *testing.T) {
	in := make(chan chat.Message)
	out := make(chan chat.Message)
	go pump(in, out)

	for i := range 5 {
		in <- &message{frame: MessageFrame{ID: string(rune('a' + i))}}
	}
	close(in)

	var ids []string
	for msg := range out {
		ids = append(ids, msg.ID())
	}
	if strings.Join(ids, "") != "abcde" {
		t.Fatalf("order = %v", ids)
	}
}
