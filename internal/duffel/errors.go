package duffel

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a vendor failure. Both kinds are terminal for a job
// today; the kind is recorded in the diagnostic so a retry policy for
// transient outages can be added without a schema change.
type ErrorKind string

const (
	// KindRejected means the vendor understood and refused the request
	// (unserved route, validation failure). Never worth retrying.
	KindRejected ErrorKind = "vendor_rejected"
	// KindUnavailable means the vendor could not be reached or answered with
	// a server error or an unusable body.
	KindUnavailable ErrorKind = "vendor_unavailable"
)

// APIError is a failed call to the vendor API.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = "no error detail provided"
	}
	return fmt.Sprintf("duffel: %s (status %d): %s", e.Kind, e.StatusCode, msg)
}

func newAPIError(status int, docs []apiErrorDoc) *APIError {
	kind := KindRejected
	if status >= 500 || status == 0 {
		kind = KindUnavailable
	}
	msgs := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Message != "" {
			msgs = append(msgs, d.Message)
		} else if d.Title != "" {
			msgs = append(msgs, d.Title)
		}
	}
	return &APIError{Kind: kind, StatusCode: status, Messages: msgs}
}
