package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portalsync/internal/config"
	"portalsync/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, chan capturedRequest) {
	t.Helper()
	requests := make(chan capturedRequest, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func newService(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyActionFailed(context.Background(), "id", "submit_feedback", "boom"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier for nil config, got %v", err)
	}
}

func TestNtfyServiceFormatsMessages(t *testing.T) {
	tests := []struct {
		name         string
		send         func(notifications.Service) error
		wantTitle    string
		wantBody     string
		wantTags     string
		wantPriority string
	}{
		{
			name: "action failed",
			send: func(s notifications.Service) error {
				return s.NotifyActionFailed(context.Background(), "a1", "review_document", "document locked")
			},
			wantTitle:    "Portalsync - Action Failed",
			wantBody:     "review_document (a1) was not accepted: document locked",
			wantTags:     "portalsync,queue,failed",
			wantPriority: "high",
		},
		{
			name: "queue synced with backlog",
			send: func(s notifications.Service) error {
				return s.NotifyQueueSynced(context.Background(), 3, 2)
			},
			wantTitle: "Portalsync - Queue Synced",
			wantBody:  "Synced 3 queued action(s), 2 still waiting",
			wantTags:  "portalsync,queue,synced",
		},
		{
			name: "back online",
			send: func(s notifications.Service) error {
				return s.NotifyConnectivityChanged(context.Background(), true, 4)
			},
			wantTitle: "Portalsync - Back Online",
			wantBody:  "4 queued action(s) to replay",
			wantTags:  "portalsync,connectivity,online",
		},
		{
			name: "offline",
			send: func(s notifications.Service) error {
				return s.NotifyConnectivityChanged(context.Background(), false, 0)
			},
			wantTitle: "Portalsync - Offline",
			wantBody:  "changes will be queued",
			wantTags:  "portalsync,connectivity,offline",
		},
		{
			name:         "test",
			send:         func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			wantTitle:    "Portalsync - Test",
			wantBody:     "Notification system test",
			wantTags:     "portalsync,test",
			wantPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, requests := newNtfyServer(t, http.StatusOK)
			if err := tc.send(newService(srv.URL)); err != nil {
				t.Fatalf("send: %v", err)
			}
			got := <-requests
			if got.title != tc.wantTitle {
				t.Fatalf("title = %q, want %q", got.title, tc.wantTitle)
			}
			if !strings.Contains(got.body, tc.wantBody) {
				t.Fatalf("body = %q, want it to contain %q", got.body, tc.wantBody)
			}
			if got.tags != tc.wantTags {
				t.Fatalf("tags = %q, want %q", got.tags, tc.wantTags)
			}
			if got.priority != tc.wantPriority {
				t.Fatalf("priority = %q, want %q", got.priority, tc.wantPriority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newNtfyServer(t, http.StatusForbidden)
	err := newService(srv.URL).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
