package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sam/internal/config"
)

const userAgent = "SAM-Go/0.1.0"

// Event names a notification type.
type Event string

const (
	EventSessionActivated Event = "session_activated"
	EventMosaicReady      Event = "mosaic_ready"
	EventJobFailed        Event = "job_failed"
	EventError            Event = "error"
	EventTest             Event = "test"
)

// Payload carries event fields keyed by name.
type Payload map[string]any

// Service defines the notification surface exposed to SAM components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventSessionActivated: cfg.Notifications.Sessions,
			EventMosaicReady:      cfg.Notifications.Mosaic,
			EventJobFailed:        cfg.Notifications.JobFailures,
			EventError:            true,
			EventTest:             true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventSessionActivated:
		session := payload.text("session")
		body := fmt.Sprintf("📁 Session active: %s", session)
		if from := payload.text("from"); from != "" {
			body = fmt.Sprintf("%s\nBy: %s", body, from)
		}
		return message{
			title: "SAM - Session Active",
			body:  body,
			tags:  []string{"sam", "session", "activated"},
		}, true
	case EventMosaicReady:
		session := payload.text("session")
		body := fmt.Sprintf("🖼️ Mosaic ready: %s", session)
		if images := payload.text("images"); images != "" {
			body = fmt.Sprintf("%s (%s images)", body, images)
		}
		return message{
			title: "SAM - Mosaic Ready",
			body:  body,
			tags:  []string{"sam", "mosaic", "completed"},
		}, true
	case EventJobFailed:
		return message{
			title:    "SAM - Job Failed",
			body:     fmt.Sprintf("❌ %s job failed for %s: %s", fallback(payload.text("kind"), "unknown"), fallback(payload.text("session"), "unknown session"), fallback(payload.text("error"), "unknown error")),
			tags:     []string{"sam", "job", "failed"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		builder.WriteString(fallback(payload.text("error"), "unknown"))
		return message{
			title:    "SAM - Error",
			body:     builder.String(),
			tags:     []string{"sam", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "SAM - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"sam", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// NewNoop returns a service that drops every event.
func NewNoop() Service { return noopService{} }
