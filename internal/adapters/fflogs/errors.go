package fflogs

import (
	"fmt"
	"time"
)

// APIError is a non-2xx response that survived the retry budget.
type APIError struct {
	Status int
	Body   string

	// retryAfter is the server-requested wait for 429 responses
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fflogs api status %d: %s", e.Status, e.Body)
}

// QueryError carries GraphQL-level errors from a 200 response. These are
// terminal for the call and never retried.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("fflogs graphql errors: %v", e.Messages)
}
