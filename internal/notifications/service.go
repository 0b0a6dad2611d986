package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"portalsync/internal/config"
)

const userAgent = "portalsync/0.1"

// Service is the notification surface used by the run agent.
type Service interface {
	NotifyActionFailed(ctx context.Context, actionID, actionType, reason string) error
	NotifyQueueSynced(ctx context.Context, confirmed, remaining int) error
	NotifyConnectivityChanged(ctx context.Context, online bool, queued int) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy-backed Service, or a noop when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: cfg.NotifyTimeout()},
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
}

func (n *ntfyService) NotifyActionFailed(ctx context.Context, actionID, actionType, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	return n.send(ctx, message{
		title:    "Portalsync - Action Failed",
		body:     fmt.Sprintf("%s (%s) was not accepted: %s\nRun: portalsync queue retry %s", actionType, actionID, reason, actionID),
		tags:     []string{"portalsync", "queue", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyQueueSynced(ctx context.Context, confirmed, remaining int) error {
	body := fmt.Sprintf("Synced %d queued action(s)", confirmed)
	if remaining > 0 {
		body = fmt.Sprintf("%s, %d still waiting", body, remaining)
	}
	return n.send(ctx, message{
		title: "Portalsync - Queue Synced",
		body:  body,
		tags:  []string{"portalsync", "queue", "synced"},
	})
}

func (n *ntfyService) NotifyConnectivityChanged(ctx context.Context, online bool, queued int) error {
	if online {
		return n.send(ctx, message{
			title: "Portalsync - Back Online",
			body:  fmt.Sprintf("Live backend reachable again; %d queued action(s) to replay", queued),
			tags:  []string{"portalsync", "connectivity", "online"},
		})
	}
	return n.send(ctx, message{
		title: "Portalsync - Offline",
		body:  "Live backend unreachable; changes will be queued",
		tags:  []string{"portalsync", "connectivity", "offline"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "Portalsync - Test",
		body:     "Notification system test",
		tags:     []string{"portalsync", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) NotifyActionFailed(context.Context, string, string, string) error { return nil }
func (noopService) NotifyQueueSynced(context.Context, int, int) error                { return nil }
func (noopService) NotifyConnectivityChanged(context.Context, bool, int) error       { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
