// Package registry resolves requirement IDs against the remote requirements
// registry, with a file-backed cache, client-side rate limiting, and
// retry-with-backoff on transient failures.
package registry

import (
	"time"

	"github.com/c360studio/goldenthread/trace"
)

// Record is one registry entry for a requirement ID.
type Record struct {
	ID        string       `json:"id"`
	Type      trace.IDType `json:"type"`
	Title     string       `json:"title,omitempty"`
	Status    string       `json:"status,omitempty"`
	// Related holds IDs this record links to, keyed by relation name
	// (e.g. "test_cases", "evidence", "requirements").
	Related   map[string][]string `json:"related,omitempty"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// StatusVerified marks a verification whose evidence must exist. Status
// values come from registry users, so comparisons are case-insensitive.
const StatusVerified = "Verified"

// RelatedAll flattens Related into a single sorted-input-order slice.
func (r *Record) RelatedAll() []string {
	var ids []string
	for _, group := range r.Related {
		ids = append(ids, group...)
	}
	return ids
}
