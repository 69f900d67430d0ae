// Package connector defines the Connector contract: the small
// interface the core consumes to talk to a concrete backend driver,
// without depending on which one is behind it.
package connector

import (
	"context"
	"strings"

	"github.com/dbshell/dbshell/internal/value"
)

// Kind distinguishes which family of backend an Info describes.
type Kind int

const (
	Unknown Kind = iota
	DocumentStore
	Relational
)

func (k Kind) String() string {
	switch k {
	case DocumentStore:
		return "document-store"
	case Relational:
		return "relational"
	default:
		return "unknown"
	}
}

// Info describes a connector without requiring a live reference to it,
// so it can be carried inside bus events.
type Info struct {
	URI      string
	Host     string
	Database string
	Kind     Kind
}

// Pagination is a half-open [Start, Start+Limit) cursor into the result
// stream; Limit must be > 0.
type Pagination struct {
	Start uint64
	Limit uint32
}

// DetectKind applies a simple URI heuristic: any URI containing
// "mongodb" is a document store, everything else is relational.
func DetectKind(uri string) Kind {
	if strings.Contains(uri, "mongodb") {
		return DocumentStore
	}
	return Relational
}

// Connector is the capability set every backend driver implements.
// GetData, SetDatabase, and SetConnection may suspend; Info is pure.
type Connector interface {
	Info() Info
	GetData(ctx context.Context, queryText string, page Pagination) ([]value.Object, error)
	SetDatabase(ctx context.Context, name string) error
	SetConnection(ctx context.Context, uri string) (Info, error)
}
