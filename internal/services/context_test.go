package services_test

import (
	"context"
	"testing"

	"portalsync/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithActionID(ctx, "act-42")
	ctx = services.WithActionType(ctx, "review_document")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ActionIDFromContext(ctx); !ok || id != "act-42" {
		t.Fatalf("unexpected action id: %v %v", id, ok)
	}
	if actionType, ok := services.ActionTypeFromContext(ctx); !ok || actionType != "review_document" {
		t.Fatalf("unexpected action type: %v %v", actionType, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithActionType(ctx, "")
	ctx = services.WithActionID(ctx, "")
	if _, ok := services.ActionTypeFromContext(ctx); ok {
		t.Fatal("expected no action type value")
	}
	if _, ok := services.ActionIDFromContext(ctx); ok {
		t.Fatal("expected no action id value")
	}
}
