package export

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirestoreSource adapts a Firestore project to the Source interface.
type FirestoreSource struct {
	client *firestore.Client
}

// NewFirestoreSource connects to the given project. credentialsFile is
// optional; when empty, ambient credentials are used.
func NewFirestoreSource(ctx context.Context, projectID, credentialsFile string) (*FirestoreSource, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to firestore project %s: %w", projectID, err)
	}
	return &FirestoreSource{client: client}, nil
}

// Close releases the underlying client.
func (s *FirestoreSource) Close() error {
	return s.client.Close()
}

// FetchPage implements Source using offset/limit pagination.
func (s *FirestoreSource) FetchPage(ctx context.Context, path string, offset, limit int) ([]Document, error) {
	iter := s.client.Collection(path).Offset(offset).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetching %s at offset %d: %w", path, offset, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

// ListSubcollections implements Source.
func (s *FirestoreSource) ListSubcollections(ctx context.Context, docPath string) ([]string, error) {
	iter := s.client.Doc(docPath).Collections(ctx)

	var names []string
	for {
		col, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing subcollections of %s: %w", docPath, err)
		}
		names = append(names, col.ID)
	}
	return names, nil
}
