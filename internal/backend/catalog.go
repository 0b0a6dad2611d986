package backend

import (
	"encoding/json"
	"slices"
)

// Read operations. These are never queued.
const (
	OpGetProfile       = "get_profile"
	OpListApplications = "list_applications"
	OpGetApplication   = "get_application"
	OpListDocuments    = "list_documents"
)

// Mutating operations. These may be deferred to the offline queue.
const (
	OpCreateApplication = "create_application"
	OpUpdateProfile     = "update_profile"
	OpReviewDocument    = "review_document"
	OpSubmitFeedback    = "submit_feedback"
)

var readOperations = []string{OpGetProfile, OpListApplications, OpGetApplication, OpListDocuments}

var mutatingOperations = []string{OpCreateApplication, OpUpdateProfile, OpReviewDocument, OpSubmitFeedback}

// Request is one logical portal operation.
type Request struct {
	ActionType string
	Payload    json.RawMessage
}

// IsMutating reports whether actionType changes backend state.
func IsMutating(actionType string) bool {
	return slices.Contains(mutatingOperations, actionType)
}

// IsKnown reports whether actionType is in the catalog.
func IsKnown(actionType string) bool {
	return IsMutating(actionType) || slices.Contains(readOperations, actionType)
}

// Operations returns every catalog operation, reads first.
func Operations() []string {
	return slices.Concat(readOperations, mutatingOperations)
}
