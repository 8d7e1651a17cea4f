package testsupport

import (
	"context"
	"errors"
	"sync"

	"sam/internal/chat"
)

// FileReply records a ReplyFile call.
type FileReply struct {
	Path    string
	Caption string
}

// Message is an in-memory chat.Message that records replies.
type Message struct {
	MsgID    string
	Sender   string
	Text     string
	Kind     string
	Media    *chat.Media
	MediaErr error
	// Hold, when set, makes DownloadMedia wait until it is closed.
	Hold     <-chan struct{}

	mu      sync.Mutex
	replies []string
	files   []FileReply
}

var _ chat.Message = (*Message)(nil)

// TextMessage builds a plain text message.
func TextMessage(id, from, body string) *Message {
	return &Message{MsgID: id, Sender: from, Text: body, Kind: chat.TypeChat}
}

// MediaMessage builds a message carrying an attachment.
func MediaMessage(id, from, mimeType string, data []byte) *Message {
	return &Message{
		MsgID:  id,
		Sender: from,
		Kind:   chat.TypeImage,
		Media:  &chat.Media{MimeType: mimeType, Data: data},
	}
}

func (m *Message) ID() string     { return m.MsgID }
func (m *Message) From() string   { return m.Sender }
func (m *Message) Body() string   { return m.Text }
func (m *Message) Type() string   { return m.Kind }
func (m *Message) HasMedia() bool { return m.Media != nil || m.MediaErr != nil }

func (m *Message) DownloadMedia(ctx context.Context) (*chat.Media, error) {
	if m.Hold != nil {
		select {
		case <-m.Hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.MediaErr != nil {
		return nil, m.MediaErr
	}
	if m.Media == nil {
		return nil, errors.New("message has no media")
	}
	return m.Media, nil
}

func (m *Message) Reply(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, text)
	return nil
}

func (m *Message) ReplyFile(_ context.Context, path, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, FileReply{Path: path, Caption: caption})
	return nil
}

// Replies returns the text replies sent so far.
func (m *Message) Replies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.replies...)
}

// LastReply returns the most recent text reply or "".
func (m *Message) LastReply() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return ""
	}
	return m.replies[len(m.replies)-1]
}

// Files returns the file replies sent so far.
func (m *Message) Files() []FileReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FileReply(nil), m.files...)
}
