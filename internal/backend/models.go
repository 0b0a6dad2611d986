package backend

import "time"

// Profile is the signed-in user's portal profile.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Application is a submitted form.
type Application struct {
	ID          string            `json:"id"`
	FormType    string            `json:"formType"`
	Status      string            `json:"status"`
	Fields      map[string]string `json:"fields,omitempty"`
	SubmittedAt time.Time         `json:"submittedAt"`
}

// Document is a supporting document attached to an application.
type Document struct {
	ID            string `json:"id"`
	ApplicationID string `json:"applicationId"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	ReviewNote    string `json:"reviewNote,omitempty"`
}

// FeedbackReceipt acknowledges submitted feedback.
type FeedbackReceipt struct {
	ID       string `json:"id"`
	Received bool   `json:"received"`
}

// Request payloads.
type (
	ApplicationQuery struct {
		ApplicationID string `json:"applicationId"`
	}
	ApplicationFilter struct {
		Status string `json:"status,omitempty"`
	}
	DocumentFilter struct {
		ApplicationID string `json:"applicationId,omitempty"`
	}
	NewApplication struct {
		FormType string            `json:"formType"`
		Fields   map[string]string `json:"fields,omitempty"`
	}
	ProfileUpdate struct {
		Name  string `json:"name,omitempty"`
		Email string `json:"email,omitempty"`
	}
	DocumentReview struct {
		DocumentID string `json:"documentId"`
		Action     string `json:"action"`
		Note       string `json:"note,omitempty"`
	}
	Feedback struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment,omitempty"`
	}
)

// Application and document statuses.
const (
	StatusSubmitted = "submitted"
	StatusInReview  = "in_review"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)
