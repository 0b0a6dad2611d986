package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"portalsync/internal/services"
)

const (
	defaultUserAgent   = "portalsync/0.1"
	defaultTimeout     = 10 * time.Second
	maxErrorBodyBytes  = 64 << 10
	maxErrorTextBytes  = 200
	idempotencyHeader  = "Idempotency-Key"
	requestIDHeader    = "X-Request-ID"
	actionPathTemplate = "api/actions/%s"
	healthPath         = "api/health"
)

// LiveOptions configures the live HTTP backend.
type LiveOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// ReplayRate bounds queued-action replays per second. Zero disables pacing.
	ReplayRate  float64
	ReplayBurst int
	HTTPClient  *http.Client
	UserAgent   string
}

// Live talks to the portal service over HTTP.
type Live struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
	limiter   *rate.Limiter
}

var (
	_ Backend  = (*Live)(nil)
	_ Replayer = (*Live)(nil)
	_ Prober   = (*Live)(nil)
)

// NewLive builds a live backend client.
func NewLive(opts LiveOptions) (*Live, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	var limiter *rate.Limiter
	if opts.ReplayRate > 0 {
		burst := opts.ReplayBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.ReplayRate), burst)
	}
	return &Live{
		baseURL:   base,
		http:      client,
		token:     strings.TrimSpace(opts.Token),
		userAgent: userAgent,
		limiter:   limiter,
	}, nil
}

// Name identifies the backend in logs and envelopes.
func (l *Live) Name() string { return string(ModeLive) }

// BaseURL returns the service root.
func (l *Live) BaseURL() string { return l.baseURL.String() }

// Call posts one operation to the service and returns the response body.
func (l *Live) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	if l == nil {
		return nil, fmt.Errorf("live backend is nil")
	}
	actionType := strings.TrimSpace(req.ActionType)
	if actionType == "" {
		return nil, services.Wrap(services.ErrApplication, "live", "call", "action type is empty", nil)
	}
	if strings.ContainsAny(actionType, "/?#%") {
		return nil, services.Wrap(services.ErrApplication, "live", "call", fmt.Sprintf("invalid action type %q", actionType), nil)
	}
	body := req.Payload
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	rel := &url.URL{Path: fmt.Sprintf(actionPathTemplate, actionType)}
	return l.doURL(ctx, http.MethodPost, rel, body)
}

// Replay is Call paced by the replay rate limiter.
func (l *Live) Replay(ctx context.Context, req Request) (json.RawMessage, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for replay slot: %w", err)
		}
	}
	return l.Call(ctx, req)
}

// Probe checks the service health endpoint. Any failure reaching the service
// is a connectivity error.
func (l *Live) Probe(ctx context.Context) error {
	_, err := l.doURL(ctx, http.MethodGet, &url.URL{Path: healthPath}, nil)
	if err != nil && !services.IsConnectivity(err) {
		// A reachable service answering with an error still counts as online.
		return nil
	}
	return err
}

func (l *Live) doURL(ctx context.Context, method string, rel *url.URL, body []byte) (json.RawMessage, error) {
	reqURL := l.baseURL.ResolveReference(rel)
	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, services.Wrap(services.ErrApplication, "live", rel.Path, "create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", l.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
	if id, ok := services.ActionIDFromContext(ctx); ok {
		req.Header.Set(idempotencyHeader, id)
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set(requestIDHeader, id)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s %s: %w", method, rel.Path, err)
		}
		if services.IsTransportFailure(err) {
			return nil, services.Wrap(services.ErrConnectivity, "live", rel.Path, "execute request", err)
		}
		return nil, services.Wrap(services.ErrApplication, "live", rel.Path, "execute request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, statusError(rel.Path, resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		if services.IsTransportFailure(err) {
			return nil, services.Wrap(services.ErrConnectivity, "live", rel.Path, "read response", err)
		}
		return nil, services.Wrap(services.ErrApplication, "live", rel.Path, "read response", err)
	}
	if len(strings.TrimSpace(string(payload))) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(payload) {
		return nil, services.Wrap(services.ErrApplication, "live", rel.Path, "response is not valid JSON", nil)
	}
	return json.RawMessage(payload), nil
}

// statusError classifies an HTTP error response. Gateway and timeout statuses
// mean the service itself was not reached.
func statusError(path string, resp *http.Response) error {
	detail := fmt.Sprintf("status %d", resp.StatusCode)
	if msg := errorMessage(resp.Body); msg != "" {
		detail += ": " + msg
	}
	switch resp.StatusCode {
	case http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return services.Wrap(services.ErrConnectivity, "live", path, detail, nil)
	default:
		return services.Wrap(services.ErrApplication, "live", path, detail, nil)
	}
}

func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var decoded struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &decoded) == nil {
		if decoded.Error != "" {
			return decoded.Error
		}
		if decoded.Message != "" {
			return decoded.Message
		}
	}
	return truncateText(strings.TrimSpace(string(raw)), maxErrorTextBytes)
}

// truncateText cuts s to at most limit bytes without splitting a rune.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("live backend url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse live backend url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("live backend url %q has no host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
