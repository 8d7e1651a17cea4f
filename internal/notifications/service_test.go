package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sam/internal/config"
	"sam/internal/jobqueue"
	"sam/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventMosaicReady, notifications.Payload{"session": "x"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type capture struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T) (*httptest.Server, chan capture) {
	t.Helper()
	ch := make(chan capture, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		_ = r.Body.Close()
		ch <- capture{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, ch
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "session activated",
			event:         notifications.EventSessionActivated,
			payload:       notifications.Payload{"session": "test1", "from": "5511@c.us"},
			expectTitle:   "SAM - Session Active",
			expectMessage: "📁 Session active: test1\nBy: 5511@c.us",
			expectTags:    "sam,session,activated",
		},
		{
			name:          "mosaic ready",
			event:         notifications.EventMosaicReady,
			payload:       notifications.Payload{"session": "test1", "images": 7},
			expectTitle:   "SAM - Mosaic Ready",
			expectMessage: "🖼️ Mosaic ready: test1 (7 images)",
			expectTags:    "sam,mosaic,completed",
		},
		{
			name:           "job failed",
			event:          notifications.EventJobFailed,
			payload:        notifications.Payload{"session": "test1", "kind": "save_media", "error": errors.New("disk full")},
			expectTitle:    "SAM - Job Failed",
			expectMessage:  "❌ save_media job failed for test1: disk full",
			expectTags:     "sam,job,failed",
			expectPriority: "high",
		},
		{
			name:           "error",
			event:          notifications.EventError,
			payload:        notifications.Payload{"context": "bridge", "error": "connection refused"},
			expectTitle:    "SAM - Error",
			expectMessage:  "❌ Error with bridge: connection refused",
			expectTags:     "sam,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "SAM - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "sam,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, ch := captureServer(t)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.Sessions = true
			cfg.Notifications.Mosaic = true
			cfg.Notifications.JobFailures = true

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			captured := <-ch
			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Sessions = false
	cfg.Notifications.Mosaic = false
	cfg.Notifications.JobFailures = false

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventSessionActivated,
		notifications.EventMosaicReady,
		notifications.EventJobFailed,
		notifications.Event("unknown"),
	}

	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestJobObserverPublishesFailures(t *testing.T) {
	server, ch := captureServer(t)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobFailures = true

	obs := notifications.NewJobObserver(notifications.NewService(&cfg), nil)
	info := jobqueue.JobInfo{ID: "j1", Session: "trip", Kind: "mosaic", Seq: 1}
	obs.JobFinished(info, time.Millisecond, nil)
	obs.JobFinished(info, time.Millisecond, errors.New("no images"))

	select {
	case got := <-ch:
		if got.body != "❌ mosaic job failed for trip: no images" {
			t.Fatalf("unexpected body %q", got.body)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job failure notification")
	}
	select {
	case extra := <-ch:
		t.Fatalf("successful job must not notify, got %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}
