// Package storage declares the persistence contracts for the portal.
// Implementations map a category name to an underlying collection of
// rows or documents and address individual records by an opaque handle.
package storage

import (
	"context"
	"errors"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
)

// ErrNotFound is returned when no record matches a lookup key or handle.
var ErrNotFound = errors.New("record not found")

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// Match pairs a record with the storage handle addressing it. Handles are
// opaque: a row index for tabular backends, a document id for document
// backends.
type Match struct {
	Lead   lead.Lead
	Handle string
}

// LeadStore is the row/document adapter for lead collections. FindByID may
// return zero, one or many matches; legacy data permits duplicate
// identifiers and callers disambiguate. Matches are ordered
// most-recent-first.
type LeadStore interface {
	Append(ctx context.Context, category string, l lead.Lead) (handle string, err error)
	FindByID(ctx context.Context, category, id string) ([]Match, error)
	Get(ctx context.Context, category, handle string) (lead.Lead, error)
	Update(ctx context.Context, category, handle string, l lead.Lead) error
	UpdateStatus(ctx context.Context, category, handle, status string) error
	Delete(ctx context.Context, category, handle string) error
	List(ctx context.Context, category string) ([]lead.Lead, error)
}

// User is a manager credential row in the auth collection.
type User struct {
	ID       string
	Password string
	Role     string
}

// AuthStore resolves manager credentials.
type AuthStore interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// Reconnector is implemented by stores that can re-establish their
// backing connection after a transient failure.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}
