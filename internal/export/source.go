// Package export walks a hierarchical document store and flattens every
// collection level into an independently named relation with explicit
// parent-link fields, writing each record to a relation writer as soon as it
// is produced so interrupted runs leave valid partial output.
package export

import "context"

// Document is one fetched document: its store-assigned identifier plus an
// open attribute map.
type Document struct {
	ID   string
	Data map[string]any
}

// Source abstracts the hierarchical document store. Collection paths are
// slash-separated ("users", "users/u1/orders"); document paths append the
// document ID to their collection path.
type Source interface {
	// FetchPage returns up to limit documents of the collection at path,
	// starting at offset. An empty result signals the end of the collection.
	FetchPage(ctx context.Context, path string, offset, limit int) ([]Document, error)

	// ListSubcollections returns the names of the immediate nested
	// collections under the document at docPath.
	ListSubcollections(ctx context.Context, docPath string) ([]string, error)
}

// TransformFunc is the pluggable per-collection document hook, applied to
// every document before identity assignment and linkage stamping. The
// logical collection path (without document IDs) is passed alongside.
type TransformFunc func(collectionPath string, doc Document) Document
