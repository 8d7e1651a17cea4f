package chat

import (
	"context"
	"strings"
)

// Message types reported by the transport.
const (
	TypeChat     = "chat"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeVoice    = "ptt"
	TypeDocument = "document"
	TypeSticker  = "sticker"
)

// Media is a downloaded attachment.
type Media struct {
	MimeType string
	Data     []byte
	Filename string
}

// Message is one inbound chat message.
type Message interface {
	// ID is the transport-assigned message identifier.
	ID() string
	// From is the sender address, for example "5511999999999@c.us".
	From() string
	// Body is the text or caption.
	Body() string
	// Type is one of the Type constants or a transport-specific value.
	Type() string
	// HasMedia reports whether DownloadMedia can return an attachment.
	HasMedia() bool
	DownloadMedia(ctx context.Context) (*Media, error)
	Reply(ctx context.Context, text string) error
	// ReplyFile sends the file at path back to the sender.
	ReplyFile(ctx context.Context, path, caption string) error
}

// Handler consumes messages.
type Handler interface {
	Handle(ctx context.Context, msg Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) { f(ctx, msg) }

// FileSafeID returns msg.ID() reduced to characters usable in a file name.
// Transport IDs such as "false_5511@c.us_3EB0" keep their shape minus
// separators the filesystem dislikes.
func FileSafeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.' || r == '@':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
