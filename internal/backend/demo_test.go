package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"portalsync/internal/backend"
	"portalsync/internal/services"
)

func callDemo(t *testing.T, demo *backend.Demo, op, payload string, dest any) error {
	t.Helper()
	data, err := demo.Call(context.Background(), backend.Request{ActionType: op, Payload: json.RawMessage(payload)})
	if err != nil {
		return err
	}
	if dest != nil {
		if err := json.Unmarshal(data, dest); err != nil {
			t.Fatalf("decode %s response: %v", op, err)
		}
	}
	return nil
}

func TestDemoServesSeededData(t *testing.T) {
	demo := backend.NewDemo(0)

	var profile backend.Profile
	if err := callDemo(t, demo, backend.OpGetProfile, `{}`, &profile); err != nil || profile.ID == "" {
		t.Fatalf("get_profile = %#v, %v", profile, err)
	}
	var docs []backend.Document
	if err := callDemo(t, demo, backend.OpListDocuments, `{"applicationId":"app_001"}`, &docs); err != nil {
		t.Fatalf("list_documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents for app_001, got %d", len(docs))
	}
	var apps []backend.Application
	if err := callDemo(t, demo, backend.OpListApplications, `{"status":"in_review"}`, &apps); err != nil || len(apps) != 1 {
		t.Fatalf("list_applications = %d, %v", len(apps), err)
	}
}

func TestDemoMutationsChangeState(t *testing.T) {
	demo := backend.NewDemo(0)

	var doc backend.Document
	if err := callDemo(t, demo, backend.OpReviewDocument, `{"documentId":"doc_001","action":"approve"}`, &doc); err != nil {
		t.Fatalf("review_document: %v", err)
	}
	if doc.Status != backend.StatusApproved {
		t.Fatalf("status = %q", doc.Status)
	}

	var app backend.Application
	if err := callDemo(t, demo, backend.OpCreateApplication, `{"formType":"parking_permit"}`, &app); err != nil {
		t.Fatalf("create_application: %v", err)
	}
	if app.ID != "app_003" || app.Status != backend.StatusSubmitted {
		t.Fatalf("unexpected application %#v", app)
	}
	var fetched backend.Application
	if err := callDemo(t, demo, backend.OpGetApplication, `{"applicationId":"app_003"}`, &fetched); err != nil || fetched.FormType != "parking_permit" {
		t.Fatalf("get_application = %#v, %v", fetched, err)
	}

	var profile backend.Profile
	if err := callDemo(t, demo, backend.OpUpdateProfile, `{"name":"B"}`, &profile); err != nil || profile.Name != "B" {
		t.Fatalf("update_profile = %#v, %v", profile, err)
	}
}

func TestDemoRejectsBadRequests(t *testing.T) {
	demo := backend.NewDemo(0)
	tests := []struct {
		name    string
		op      string
		payload string
	}{
		{name: "unknown operation", op: "delete_everything", payload: `{}`},
		{name: "malformed payload", op: backend.OpReviewDocument, payload: `{"documentId":7}`},
		{name: "unknown review action", op: backend.OpReviewDocument, payload: `{"documentId":"doc_001","action":"shred"}`},
		{name: "missing document", op: backend.OpReviewDocument, payload: `{"documentId":"doc_999","action":"approve"}`},
		{name: "rating out of range", op: backend.OpSubmitFeedback, payload: `{"rating":9}`},
		{name: "missing form type", op: backend.OpCreateApplication, payload: `{}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := callDemo(t, demo, tc.op, tc.payload, nil)
			if services.KindOf(err) != services.KindApplication {
				t.Fatalf("expected application error, got %v", err)
			}
		})
	}
}

func TestDemoLatencyHonoursContext(t *testing.T) {
	demo := backend.NewDemo(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := demo.Call(ctx, backend.Request{ActionType: backend.OpGetProfile})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCatalog(t *testing.T) {
	for _, op := range []string{backend.OpCreateApplication, backend.OpUpdateProfile, backend.OpReviewDocument, backend.OpSubmitFeedback} {
		if !backend.IsMutating(op) || !backend.IsKnown(op) {
			t.Fatalf("%s should be a known mutating operation", op)
		}
	}
	for _, op := range []string{backend.OpGetProfile, backend.OpListApplications, backend.OpGetApplication, backend.OpListDocuments} {
		if backend.IsMutating(op) || !backend.IsKnown(op) {
			t.Fatalf("%s should be a known read operation", op)
		}
	}
	if backend.IsKnown("drop_tables") || len(backend.Operations()) != 8 {
		t.Fatal("unexpected catalog contents")
	}
}
