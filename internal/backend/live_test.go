package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"portalsync/internal/backend"
	"portalsync/internal/services"
)

func newLive(t *testing.T, url string, opts ...func(*backend.LiveOptions)) *backend.Live {
	t.Helper()
	options := backend.LiveOptions{BaseURL: url, Token: "secret", Timeout: 2 * time.Second}
	for _, opt := range opts {
		opt(&options)
	}
	live, err := backend.NewLive(options)
	if err != nil {
		t.Fatalf("NewLive: %v", err)
	}
	return live
}

func TestLiveCallPostsActionWithHeaders(t *testing.T) {
	var (
		gotPath, gotMethod, gotAuth, gotKey, gotType string
		gotBody                                      []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("Idempotency-Key")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"doc_001","status":"approved"}`))
	}))
	defer srv.Close()

	live := newLive(t, srv.URL+"/portal/")
	ctx := services.WithActionID(context.Background(), "0190a000-0000-7000-8000-000000000001")
	data, err := live.Call(ctx, backend.Request{
		ActionType: backend.OpReviewDocument,
		Payload:    json.RawMessage(`{"documentId":"doc_001","action":"approve"}`),
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if gotPath != "/portal/api/actions/review_document" || gotMethod != http.MethodPost {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer secret" || gotType != "application/json" {
		t.Fatalf("unexpected headers auth=%q type=%q", gotAuth, gotType)
	}
	if gotKey != "0190a000-0000-7000-8000-000000000001" {
		t.Fatalf("idempotency key = %q", gotKey)
	}
	if string(gotBody) != `{"documentId":"doc_001","action":"approve"}` {
		t.Fatalf("body = %s", gotBody)
	}
	if string(data) != `{"id":"doc_001","status":"approved"}` {
		t.Fatalf("data = %s", data)
	}
}

func TestLiveClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		want    services.Kind
		message string
	}{
		{status: http.StatusServiceUnavailable, want: services.KindConnectivity},
		{status: http.StatusBadGateway, want: services.KindConnectivity},
		{status: http.StatusGatewayTimeout, want: services.KindConnectivity},
		{status: http.StatusRequestTimeout, want: services.KindConnectivity},
		{status: http.StatusUnprocessableEntity, body: `{"error":"formType is required"}`, want: services.KindApplication, message: "formType is required"},
		{status: http.StatusNotFound, body: `{"message":"no such document"}`, want: services.KindApplication, message: "no such document"},
		{status: http.StatusInternalServerError, body: "boom", want: services.KindApplication, message: "boom"},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newLive(t, srv.URL).Call(context.Background(), backend.Request{ActionType: backend.OpCreateApplication})
			if got := services.KindOf(err); got != tc.want {
				t.Fatalf("kind = %q, want %q (err=%v)", got, tc.want, err)
			}
			if tc.message != "" && !strings.Contains(err.Error(), tc.message) {
				t.Fatalf("error %q does not carry server message %q", err, tc.message)
			}
		})
	}
}

func TestLiveTruncatesPlainErrorBodyOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", 199) + "é" + strings.Repeat("b", 50)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	_, err := newLive(t, srv.URL).Call(context.Background(), backend.Request{ActionType: backend.OpCreateApplication})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !utf8.ValidString(msg) {
		t.Fatalf("error message is not valid UTF-8: %q", msg)
	}
	if !strings.HasSuffix(msg, ": "+strings.Repeat("a", 199)) {
		t.Fatalf("unexpected truncation: %q", msg)
	}
}

func TestLiveTransportFailureIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newLive(t, url).Call(context.Background(), backend.Request{ActionType: backend.OpGetProfile})
	if !services.IsConnectivity(err) {
		t.Fatalf("expected connectivity fault, got %v", err)
	}
}

func TestLiveTimeoutIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	live := newLive(t, srv.URL, func(o *backend.LiveOptions) { o.Timeout = 50 * time.Millisecond })
	_, err := live.Call(context.Background(), backend.Request{ActionType: backend.OpGetProfile})
	if !services.IsConnectivity(err) {
		t.Fatalf("expected connectivity fault, got %v", err)
	}
}

func TestLiveCallerCancellationIsNotConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newLive(t, srv.URL).Call(ctx, backend.Request{ActionType: backend.OpGetProfile})
	if !errors.Is(err, context.Canceled) || services.IsConnectivity(err) {
		t.Fatalf("expected plain cancellation, got %v", err)
	}
}

func TestLiveEmptyBodyIsNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	data, err := newLive(t, srv.URL).Call(context.Background(), backend.Request{ActionType: backend.OpSubmitFeedback})
	if err != nil || string(data) != "null" {
		t.Fatalf("data=%s err=%v", data, err)
	}
}

func TestLiveRejectsPathLikeActionType(t *testing.T) {
	live := newLive(t, "http://127.0.0.1:1")
	_, err := live.Call(context.Background(), backend.Request{ActionType: "../admin"})
	if services.KindOf(err) != services.KindApplication {
		t.Fatalf("expected application error, got %v", err)
	}
}

func TestLiveProbe(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("unexpected probe path %s", r.URL.Path)
		}
		w.WriteHeader(int(status.Load()))
	}))
	live := newLive(t, srv.URL)

	if err := live.Probe(context.Background()); err != nil {
		t.Fatalf("healthy probe: %v", err)
	}
	status.Store(http.StatusInternalServerError)
	if err := live.Probe(context.Background()); err != nil {
		t.Fatalf("reachable but unhealthy service should count as online: %v", err)
	}
	srv.Close()
	if err := live.Probe(context.Background()); !services.IsConnectivity(err) {
		t.Fatalf("expected connectivity fault after close, got %v", err)
	}
}

func TestLiveReplayIsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	live := newLive(t, srv.URL, func(o *backend.LiveOptions) {
		o.ReplayRate = 0.01
		o.ReplayBurst = 1
	})
	req := backend.Request{ActionType: backend.OpSubmitFeedback, Payload: json.RawMessage(`{"rating":4}`)}
	if _, err := live.Replay(context.Background(), req); err != nil {
		t.Fatalf("first Replay: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := live.Replay(ctx, req); err == nil {
		t.Fatal("expected second replay to be held back by the limiter")
	}
	// Interactive calls are not paced.
	if _, err := live.Call(context.Background(), req); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestNewLiveRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "http://"} {
		if _, err := backend.NewLive(backend.LiveOptions{BaseURL: raw}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
