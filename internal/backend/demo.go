package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"portalsync/internal/services"
)

// Demo serves synthetic portal data from memory. It never touches the network
// and succeeds for every well-formed request.
type Demo struct {
	latency time.Duration
	now     func() time.Time

	mu           sync.Mutex
	profile      Profile
	applications []Application
	documents    []Document
	nextApp      int
	nextFeedback int
}

var _ Backend = (*Demo)(nil)

// NewDemo returns a demo backend seeded with sample data. latency is added to
// every call to imitate a network round trip.
func NewDemo(latency time.Duration) *Demo {
	seeded := time.Date(2026, 1, 12, 10, 30, 0, 0, time.UTC)
	return &Demo{
		latency: latency,
		now:     time.Now,
		profile: Profile{ID: "usr_001", Name: "Demo Citizen", Email: "citizen@example.org", Role: "citizen"},
		applications: []Application{
			{ID: "app_001", FormType: "residence_permit", Status: StatusInReview, Fields: map[string]string{"district": "north"}, SubmittedAt: seeded},
			{ID: "app_002", FormType: "business_license", Status: StatusSubmitted, Fields: map[string]string{"trade": "bakery"}, SubmittedAt: seeded.Add(48 * time.Hour)},
		},
		documents: []Document{
			{ID: "doc_001", ApplicationID: "app_001", Name: "proof_of_address.pdf", Status: StatusPending},
			{ID: "doc_002", ApplicationID: "app_001", Name: "passport_scan.pdf", Status: StatusApproved},
			{ID: "doc_003", ApplicationID: "app_002", Name: "floor_plan.pdf", Status: StatusPending},
		},
		nextApp:      3,
		nextFeedback: 1,
	}
}

// Name identifies the backend in logs and envelopes.
func (d *Demo) Name() string { return string(ModeDemo) }

// Call executes req against the in-memory data set.
func (d *Demo) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	if d.latency > 0 {
		timer := time.NewTimer(d.latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		result any
		err    error
	)
	switch req.ActionType {
	case OpGetProfile:
		result = d.profile
	case OpListApplications:
		result, err = d.listApplications(req.Payload)
	case OpGetApplication:
		result, err = d.getApplication(req.Payload)
	case OpListDocuments:
		result, err = d.listDocuments(req.Payload)
	case OpCreateApplication:
		result, err = d.createApplication(req.Payload)
	case OpUpdateProfile:
		result, err = d.updateProfile(req.Payload)
	case OpReviewDocument:
		result, err = d.reviewDocument(req.Payload)
	case OpSubmitFeedback:
		result, err = d.submitFeedback(req.Payload)
	default:
		err = demoError(req.ActionType, "unknown operation")
	}
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, services.Wrap(services.ErrApplication, "demo", req.ActionType, "encode response", err)
	}
	return raw, nil
}

func (d *Demo) listApplications(payload json.RawMessage) ([]Application, error) {
	var filter ApplicationFilter
	if err := decodePayload(OpListApplications, payload, &filter); err != nil {
		return nil, err
	}
	out := make([]Application, 0, len(d.applications))
	for _, app := range d.applications {
		if filter.Status == "" || app.Status == filter.Status {
			out = append(out, app)
		}
	}
	return out, nil
}

func (d *Demo) getApplication(payload json.RawMessage) (Application, error) {
	var query ApplicationQuery
	if err := decodePayload(OpGetApplication, payload, &query); err != nil {
		return Application{}, err
	}
	idx := slices.IndexFunc(d.applications, func(app Application) bool { return app.ID == query.ApplicationID })
	if idx < 0 {
		return Application{}, demoError(OpGetApplication, fmt.Sprintf("application %q not found", query.ApplicationID))
	}
	return d.applications[idx], nil
}

func (d *Demo) listDocuments(payload json.RawMessage) ([]Document, error) {
	var filter DocumentFilter
	if err := decodePayload(OpListDocuments, payload, &filter); err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(d.documents))
	for _, doc := range d.documents {
		if filter.ApplicationID == "" || doc.ApplicationID == filter.ApplicationID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *Demo) createApplication(payload json.RawMessage) (Application, error) {
	var input NewApplication
	if err := decodePayload(OpCreateApplication, payload, &input); err != nil {
		return Application{}, err
	}
	if strings.TrimSpace(input.FormType) == "" {
		return Application{}, demoError(OpCreateApplication, "formType is required")
	}
	app := Application{
		ID:          fmt.Sprintf("app_%03d", d.nextApp),
		FormType:    input.FormType,
		Status:      StatusSubmitted,
		Fields:      input.Fields,
		SubmittedAt: d.now().UTC(),
	}
	d.nextApp++
	d.applications = append(d.applications, app)
	return app, nil
}

func (d *Demo) updateProfile(payload json.RawMessage) (Profile, error) {
	var input ProfileUpdate
	if err := decodePayload(OpUpdateProfile, payload, &input); err != nil {
		return Profile{}, err
	}
	if input.Name == "" && input.Email == "" {
		return Profile{}, demoError(OpUpdateProfile, "nothing to update")
	}
	if input.Name != "" {
		d.profile.Name = input.Name
	}
	if input.Email != "" {
		d.profile.Email = input.Email
	}
	return d.profile, nil
}

func (d *Demo) reviewDocument(payload json.RawMessage) (Document, error) {
	var input DocumentReview
	if err := decodePayload(OpReviewDocument, payload, &input); err != nil {
		return Document{}, err
	}
	var status string
	switch input.Action {
	case "approve":
		status = StatusApproved
	case "reject":
		status = StatusRejected
	default:
		return Document{}, demoError(OpReviewDocument, fmt.Sprintf("unknown review action %q", input.Action))
	}
	idx := slices.IndexFunc(d.documents, func(doc Document) bool { return doc.ID == input.DocumentID })
	if idx < 0 {
		return Document{}, demoError(OpReviewDocument, fmt.Sprintf("document %q not found", input.DocumentID))
	}
	d.documents[idx].Status = status
	d.documents[idx].ReviewNote = input.Note
	return d.documents[idx], nil
}

func (d *Demo) submitFeedback(payload json.RawMessage) (FeedbackReceipt, error) {
	var input Feedback
	if err := decodePayload(OpSubmitFeedback, payload, &input); err != nil {
		return FeedbackReceipt{}, err
	}
	if input.Rating < 1 || input.Rating > 5 {
		return FeedbackReceipt{}, demoError(OpSubmitFeedback, "rating must be between 1 and 5")
	}
	receipt := FeedbackReceipt{ID: fmt.Sprintf("fb_%03d", d.nextFeedback), Received: true}
	d.nextFeedback++
	return receipt, nil
}

func decodePayload(op string, payload json.RawMessage, dest any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return services.Wrap(services.ErrApplication, "demo", op, "malformed payload", err)
	}
	return nil
}

func demoError(op, message string) error {
	return services.Wrap(services.ErrApplication, "demo", op, message, nil)
}
