package api

import (
	"context"
	"encoding/json"

	"portalsync/internal/backend"
	"portalsync/internal/envelope"
)

// StatusQueued marks optimistic data for an action that has not reached the
// backend yet.
const StatusQueued = "queued"

// GetProfile reads the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) envelope.Result[backend.Profile] {
	return read[backend.Profile](ctx, c, backend.OpGetProfile, struct{}{})
}

// ListApplications lists applications, optionally filtered by status.
func (c *Client) ListApplications(ctx context.Context, filter backend.ApplicationFilter) envelope.Result[[]backend.Application] {
	return read[[]backend.Application](ctx, c, backend.OpListApplications, filter)
}

// GetApplication reads one application.
func (c *Client) GetApplication(ctx context.Context, applicationID string) envelope.Result[backend.Application] {
	return read[backend.Application](ctx, c, backend.OpGetApplication, backend.ApplicationQuery{ApplicationID: applicationID})
}

// ListDocuments lists documents, optionally for one application.
func (c *Client) ListDocuments(ctx context.Context, applicationID string) envelope.Result[[]backend.Document] {
	return read[[]backend.Document](ctx, c, backend.OpListDocuments, backend.DocumentFilter{ApplicationID: applicationID})
}

// CreateApplication submits a new application.
func (c *Client) CreateApplication(ctx context.Context, input backend.NewApplication) envelope.Result[backend.Application] {
	return mutate(ctx, c, backend.OpCreateApplication, input, backend.Application{
		FormType: input.FormType,
		Status:   StatusQueued,
		Fields:   input.Fields,
	})
}

// UpdateProfile changes profile fields. Empty fields are left unchanged.
func (c *Client) UpdateProfile(ctx context.Context, input backend.ProfileUpdate) envelope.Result[backend.Profile] {
	return mutate(ctx, c, backend.OpUpdateProfile, input, backend.Profile{
		Name:  input.Name,
		Email: input.Email,
	})
}

// ReviewDocument approves or rejects a document.
func (c *Client) ReviewDocument(ctx context.Context, input backend.DocumentReview) envelope.Result[backend.Document] {
	status := StatusQueued
	switch input.Action {
	case "approve":
		status = backend.StatusApproved
	case "reject":
		status = backend.StatusRejected
	}
	return mutate(ctx, c, backend.OpReviewDocument, input, backend.Document{
		ID:         input.DocumentID,
		Status:     status,
		ReviewNote: input.Note,
	})
}

// SubmitFeedback sends a rating and comment.
func (c *Client) SubmitFeedback(ctx context.Context, input backend.Feedback) envelope.Result[backend.FeedbackReceipt] {
	return mutate(ctx, c, backend.OpSubmitFeedback, input, backend.FeedbackReceipt{})
}

func read[T any](ctx context.Context, c *Client, actionType string, input any) envelope.Result[T] {
	payload, err := encode(actionType, input)
	if err != nil {
		return envelope.Fail[T](err)
	}
	return typed[T](c.dispatch(ctx, backend.Request{ActionType: actionType, Payload: payload}))
}

// mutate dispatches a mutating operation. optimistic is returned as the data
// of an offline envelope.
func mutate[T any](ctx context.Context, c *Client, actionType string, input any, optimistic T) envelope.Result[T] {
	payload, err := encode(actionType, input)
	if err != nil {
		return envelope.Fail[T](err)
	}
	res := c.dispatch(ctx, backend.Request{ActionType: actionType, Payload: json.RawMessage(payload)})
	if res.Offline {
		return envelope.OfflineAck(optimistic, res.ActionID)
	}
	return typed[T](res)
}
