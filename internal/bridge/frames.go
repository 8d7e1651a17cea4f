package bridge

import (
	"encoding/base64"
	"fmt"

	"sam/internal/chat"
)

// Frame event and action names.
const (
	EventMessage = "message"
	EventMedia   = "media"
	EventAck     = "ack"

	ActionReply         = "reply"
	ActionSendFile      = "send_file"
	ActionDownloadMedia = "download_media"
)

// Frame is the envelope for both directions.
type Frame struct {
	Event     string        `json:"event,omitempty"`
	Action    string        `json:"action,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Message   *MessageFrame `json:"message,omitempty"`
	Media     *MediaFrame   `json:"media,omitempty"`

	// Outbound fields.
	MessageID string `json:"message_id,omitempty"`
	To        string `json:"to,omitempty"`
	Text      string `json:"text,omitempty"`
	Caption   string `json:"caption,omitempty"`

	// Ack fields.
	OK    bool   `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

// MessageFrame describes an inbound chat message.
type MessageFrame struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	HasMedia  bool   `json:"hasMedia"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// MediaFrame carries base64 attachment data.
type MediaFrame struct {
	MimeType string `json:"mimetype"`
	Data     string `json:"data"`
	Filename string `json:"filename,omitempty"`
}

func (m *MediaFrame) decode() (*chat.Media, error) {
	if m == nil {
		return nil, fmt.Errorf("media frame missing payload")
	}
	data, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return nil, fmt.Errorf("decode media payload: %w", err)
	}
	return &chat.Media{MimeType: m.MimeType, Data: data, Filename: m.Filename}, nil
}

func encodeMedia(media *chat.Media) *MediaFrame {
	return &MediaFrame{
		MimeType: media.MimeType,
		Data:     base64.StdEncoding.EncodeToString(media.Data),
		Filename: media.Filename,
	}
}
